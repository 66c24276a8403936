package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Avyoraj/Attend-Fresh/internal/beacon"
	"github.com/Avyoraj/Attend-Fresh/internal/config"
	"github.com/Avyoraj/Attend-Fresh/internal/domain"
	"github.com/Avyoraj/Attend-Fresh/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionService 课堂会话服务（开课/下课/信标轮换/会话发现）
type SessionService struct {
	sessionsRepo repository.SessionsRepository
	cfg          config.BeaconConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewSessionService 创建会话服务
func NewSessionService(sessionsRepo repository.SessionsRepository, cfg config.BeaconConfig, logger *zap.Logger) *SessionService {
	return &SessionService{
		sessionsRepo: sessionsRepo,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// StartSessionRequest 开课请求
type StartSessionRequest struct {
	RoomID      string `json:"roomId"`
	ClassID     string `json:"classId"`
	ClassName   string `json:"className"`
	TeacherID   string `json:"teacherId"`
	TeacherName string `json:"teacherName"`
	BeaconMajor int    `json:"beaconMajor"`
	BeaconMinor int    `json:"beaconMinor"`
}

// StartSession 创建活跃会话，把教室（信标）和一节课绑定起来
// 当前挑战初始化为原始 minor，学生可以立即签到；
// 窗口先用宽松值，信标控制器开始轮换后才收紧
func (s *SessionService) StartSession(ctx context.Context, req StartSessionRequest) (*domain.Session, error) {
	if req.RoomID == "" || req.ClassID == "" || req.TeacherID == "" {
		return nil, domain.E(domain.KindValidation, "missing_params", "Missing required session parameters")
	}

	major := req.BeaconMajor
	if major == 0 {
		major = s.cfg.DefaultMajor
	}
	minor := req.BeaconMinor
	if minor == 0 {
		minor = s.cfg.DefaultMinor
	}

	now := s.now()
	currentMinor := minor
	session := &domain.Session{
		ID:                   uuid.New().String(),
		RoomID:               req.RoomID,
		ClassID:              req.ClassID,
		ClassName:            req.ClassName,
		TeacherID:            req.TeacherID,
		TeacherName:          req.TeacherName,
		BeaconMajor:          major,
		BeaconMinor:          minor,
		CurrentMinorID:       &currentMinor,
		LastRotationAt:       &now,
		RotationIntervalMins: s.cfg.InitialWindowMins,
		Status:               domain.SessionActive,
		ActualStart:          &now,
	}

	if err := s.sessionsRepo.CreateSession(ctx, session); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.E(domain.KindConflict, "session_active", "A session is already active in this room")
		}
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.logger.Info("session started",
		zap.String("session_id", session.ID),
		zap.String("class_name", session.ClassName),
		zap.String("room_id", session.RoomID),
	)
	return session, nil
}

// EndSession 结束会话并记录下课时间；已结束的会话不可变
func (s *SessionService) EndSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, domain.E(domain.KindValidation, "missing_params", "Missing sessionId")
	}

	session, err := s.sessionsRepo.EndSession(ctx, sessionID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}
	if session == nil {
		return nil, domain.E(domain.KindNotFound, "session_not_found", "Session not found or already ended")
	}

	s.logger.Info("session ended", zap.String("session_id", session.ID))
	return session, nil
}

// SyncMinor 信标轮换心跳：更新期望的挑战标识并收紧验证窗口
// 并发下是幂等覆盖，签到验证总是读最新提交的挑战
func (s *SessionService) SyncMinor(ctx context.Context, sessionID string, newMinor int) (*domain.Session, error) {
	if sessionID == "" || newMinor == 0 {
		return nil, domain.E(domain.KindValidation, "missing_params", "Missing sessionId or newMinorId")
	}

	session, err := s.sessionsRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, domain.E(domain.KindNotFound, "session_not_active", "Active session not found")
	}

	now := s.now()
	if err := beacon.Rotate(session, newMinor, now, s.cfg.RotatedWindowMins); err != nil {
		return nil, err
	}

	updated, err := s.sessionsRepo.UpdateRotation(ctx, sessionID, newMinor, now, s.cfg.RotatedWindowMins)
	if err != nil {
		return nil, fmt.Errorf("failed to sync minor: %w", err)
	}
	if updated == nil {
		return nil, domain.E(domain.KindNotFound, "session_not_active", "Active session not found")
	}

	s.logger.Info("beacon minor synced",
		zap.String("session_id", sessionID),
		zap.Int("new_minor", newMinor),
	)
	return updated, nil
}

// Discover 学生端发现会话：按检测到的 minor（当前或原始）查找活跃会话
func (s *SessionService) Discover(ctx context.Context, minor int) (*domain.Session, error) {
	session, err := s.sessionsRepo.FindActiveByMinor(ctx, minor)
	if err != nil {
		return nil, fmt.Errorf("failed to discover session: %w", err)
	}
	if session == nil {
		return nil, domain.E(domain.KindNotFound, "no_session_for_beacon", "No active session found for this beacon")
	}
	return session, nil
}
