package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Avyoraj/Attend-Fresh/internal/beacon"
	"github.com/Avyoraj/Attend-Fresh/internal/domain"
	"github.com/Avyoraj/Attend-Fresh/internal/repository"
	"github.com/Avyoraj/Attend-Fresh/internal/security"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// defaultRSSI 签到未上报信号强度时的缺省值
const defaultRSSI = -70

// AttendanceService 在场验证状态机
// 签到 -> 二次挑战 -> 分析定论，外加生物识别兜底与教师手动确认
type AttendanceService struct {
	studentsRepo   repository.StudentsRepository
	sessionsRepo   repository.SessionsRepository
	attendanceRepo repository.AttendanceRepository
	rssiRepo       repository.RssiStreamsRepository
	verifier       *security.Verifier
	logger         *zap.Logger
	now            func() time.Time
}

// NewAttendanceService 创建出勤服务
func NewAttendanceService(
	studentsRepo repository.StudentsRepository,
	sessionsRepo repository.SessionsRepository,
	attendanceRepo repository.AttendanceRepository,
	rssiRepo repository.RssiStreamsRepository,
	verifier *security.Verifier,
	logger *zap.Logger,
) *AttendanceService {
	return &AttendanceService{
		studentsRepo:   studentsRepo,
		sessionsRepo:   sessionsRepo,
		attendanceRepo: attendanceRepo,
		rssiRepo:       rssiRepo,
		verifier:       verifier,
		logger:         logger,
		now:            time.Now,
	}
}

// CheckInRequest 签到请求
type CheckInRequest struct {
	StudentID       string `json:"studentId"`
	ClassID         string `json:"classId"`
	SessionID       string `json:"sessionId"`
	DeviceID        string `json:"deviceId"`
	DeviceSignature string `json:"deviceSignature"`
	ReportedMinor   int    `json:"reportedMinor"`
	RSSI            *int   `json:"rssi"`
}

// CheckInResult 签到结果
type CheckInResult struct {
	Already    bool
	Attendance *domain.AttendanceRecord
}

// CheckIn 初次签到：逐级校验，首个失败即拒绝，不留部分副作用
//
// 校验顺序：设备签名 -> 设备绑定 -> 会话活跃 -> 挑战匹配 -> 轮换窗口。
// 全部通过后插入 provisional 记录；(student, session) 唯一约束触发的
// 重复插入视为幂等成功（已签到），不是错误
func (s *AttendanceService) CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error) {
	if req.StudentID == "" || req.ClassID == "" || req.SessionID == "" || req.DeviceID == "" {
		return nil, domain.E(domain.KindValidation, "missing_params", "Missing required check-in parameters")
	}

	// 1. 设备签名
	if !s.verifier.Verify(req.DeviceID, req.DeviceSignature) {
		return nil, domain.E(domain.KindUnauthorized, "invalid_signature", "Invalid device signature")
	}

	// 2. 设备绑定：首次签到绑定，之后必须同一设备
	student, err := s.studentsRepo.GetStudent(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	if student.DeviceBound() && !student.DeviceMatches(req.DeviceID) {
		return nil, errDeviceMismatch()
	}
	if !student.DeviceBound() {
		bound, err := s.studentsRepo.BindDevice(ctx, req.StudentID, req.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("failed to bind device: %w", err)
		}
		if !bound {
			// 并发首次签到输掉了绑定竞争：重读胜者的绑定再做匹配检查
			student, err = s.studentsRepo.GetStudent(ctx, req.StudentID)
			if err != nil {
				return nil, fmt.Errorf("failed to reload student: %w", err)
			}
			if !student.DeviceMatches(req.DeviceID) {
				return nil, errDeviceMismatch()
			}
		} else {
			s.logger.Info("device bound",
				zap.String("student_id", req.StudentID),
				zap.String("device_prefix", devicePrefix(req.DeviceID)),
			)
		}
	}

	// 3. 会话必须存在且活跃
	session, err := s.sessionsRepo.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !session.IsActive() {
		return nil, domain.E(domain.KindForbidden, "no_active_session", "No active session found for this class")
	}

	// 4. 上报标识必须等于当前挑战
	if req.ReportedMinor != beacon.CurrentChallenge(session) {
		return nil, domain.E(domain.KindForbidden, "minor_mismatch", "Invalid Beacon ID")
	}

	// 5. 轮换窗口
	now := s.now()
	if !beacon.WithinRotationWindow(session, now) {
		return nil, domain.E(domain.KindForbidden, "beacon_expired", "Wait for next rotation")
	}

	// 6. 插入 provisional 记录
	rssi := defaultRSSI
	if req.RSSI != nil {
		rssi = *req.RSSI
	}
	record := &domain.AttendanceRecord{
		ID:          uuid.New().String(),
		StudentID:   req.StudentID,
		ClassID:     req.ClassID,
		SessionID:   req.SessionID,
		DeviceID:    req.DeviceID,
		Status:      domain.StatusProvisional,
		RSSI:        rssi,
		BeaconMinor: req.ReportedMinor,
		SessionDate: now.Format(dateLayout),
		CheckedInAt: now,
	}

	if err := s.attendanceRepo.InsertAttendance(ctx, record); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			existing, err := s.attendanceRepo.GetBySessionStudent(ctx, req.SessionID, req.StudentID)
			if err != nil {
				return nil, fmt.Errorf("failed to load existing attendance: %w", err)
			}
			return &CheckInResult{Already: true, Attendance: existing}, nil
		}
		return nil, fmt.Errorf("failed to insert attendance: %w", err)
	}

	s.logger.Info("check-in recorded",
		zap.String("student_id", req.StudentID),
		zap.Int("minor", req.ReportedMinor),
	)
	return &CheckInResult{Attendance: record}, nil
}

// UploadRssiRequest RSSI 采样上报请求
type UploadRssiRequest struct {
	StudentID string              `json:"studentId"`
	ClassID   string              `json:"classId"`
	RssiData  []domain.RssiSample `json:"rssiData"`
}

// UploadRssi 追加一批抽查采样到当天的采样流（存储级原子追加）
func (s *AttendanceService) UploadRssi(ctx context.Context, req UploadRssiRequest) error {
	if req.StudentID == "" || req.ClassID == "" {
		return domain.E(domain.KindValidation, "missing_params", "Missing studentId or classId")
	}
	day := s.now().Format(dateLayout)
	if err := s.rssiRepo.AppendSamples(ctx, req.ClassID, req.StudentID, day, req.RssiData); err != nil {
		return fmt.Errorf("failed to append rssi samples: %w", err)
	}
	return nil
}

// Step2Request 二次挑战请求
type Step2Request struct {
	StudentID     string `json:"studentId"`
	SessionID     string `json:"sessionId"`
	ReportedMinor int    `json:"reportedMinor"`
}

// Step2Result 二次挑战结果
type Step2Result struct {
	Already bool
	Status  domain.AttendanceStatus
}

// VerifyStep2 二次挑战：信标轮换后上报新标识，证明持续在场
//
// 关键规则：新上报的标识必须不同于签到时的标识——两次上报同一个
// 标识证明不了持续在场（中间必须发生过轮换）。
// 通过后 provisional -> step2_verified；最终结论由分析给出
func (s *AttendanceService) VerifyStep2(ctx context.Context, req Step2Request) (*Step2Result, error) {
	if req.StudentID == "" || req.SessionID == "" {
		return nil, domain.E(domain.KindValidation, "missing_params", "Missing studentId or sessionId")
	}

	session, err := s.sessionsRepo.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !session.IsActive() {
		return nil, domain.E(domain.KindNotFound, "session_ended", "Session ended")
	}

	if req.ReportedMinor != beacon.CurrentChallenge(session) {
		return nil, domain.E(domain.KindForbidden, "minor_mismatch", "Step-2 failed")
	}

	att, err := s.attendanceRepo.GetBySessionStudent(ctx, req.SessionID, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}
	if att == nil {
		return nil, domain.E(domain.KindNotFound, "no_check_in", "No check-in found")
	}
	if att.Status == domain.StatusConfirmed || att.Status == domain.StatusStep2Verified {
		return &Step2Result{Already: true, Status: att.Status}, nil
	}

	if req.ReportedMinor == att.BeaconMinor {
		return nil, domain.E(domain.KindForbidden, "same_minor", "Wait for beacon rotation")
	}

	changed, err := s.attendanceRepo.MarkStep2Verified(ctx, att.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to mark step2_verified: %w", err)
	}
	if !changed {
		// 并发请求已完成转移
		return &Step2Result{Already: true, Status: domain.StatusStep2Verified}, nil
	}

	s.logger.Info("step-2 verified",
		zap.String("student_id", req.StudentID),
		zap.Int("check_in_minor", att.BeaconMinor),
		zap.Int("reported_minor", req.ReportedMinor),
	)
	return &Step2Result{Status: domain.StatusStep2Verified}, nil
}

// BiometricRequest 生物识别兜底确认请求
type BiometricRequest struct {
	StudentID string `json:"studentId"`
	SessionID string `json:"sessionId"`
	DeviceID  string `json:"deviceId"`
}

// BiometricConfirm 二次挑战超时后的指纹自确认兜底
// 设备仍须与绑定一致；flagged 记录不可被自确认翻转
func (s *AttendanceService) BiometricConfirm(ctx context.Context, req BiometricRequest) (*Step2Result, error) {
	if req.StudentID == "" || req.SessionID == "" {
		return nil, domain.E(domain.KindValidation, "missing_params", "Missing studentId or sessionId")
	}

	student, err := s.studentsRepo.GetStudent(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	if student.DeviceBound() && !student.DeviceMatches(req.DeviceID) {
		return nil, errDeviceMismatch()
	}

	att, err := s.attendanceRepo.GetBySessionStudent(ctx, req.SessionID, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}
	if att == nil {
		return nil, domain.E(domain.KindNotFound, "no_check_in", "No check-in found")
	}
	if att.Status == domain.StatusConfirmed {
		return &Step2Result{Already: true, Status: att.Status}, nil
	}

	now := s.now()
	changed, err := s.attendanceRepo.MarkConfirmed(ctx, att.ID, now, &now, "")
	if err != nil {
		return nil, fmt.Errorf("failed to mark confirmed: %w", err)
	}
	if !changed {
		return s.resolveUnchanged(ctx, req.SessionID, req.StudentID)
	}

	s.logger.Info("biometric confirmed", zap.String("student_id", req.StudentID))
	return &Step2Result{Status: domain.StatusConfirmed}, nil
}

// FinalizeRequest 教师手动确认请求
type FinalizeRequest struct {
	AttendanceID     string `json:"attendanceId"`
	TeacherID        string `json:"teacherId"`
	VerificationType string `json:"verificationType"` // "biometric" / "physical"
}

// Finalize 教师现场核验后的手动确认（physical 或 biometric）
// flagged 记录不会被翻转：复核结论由教师在复核流程里单独处理
func (s *AttendanceService) Finalize(ctx context.Context, req FinalizeRequest) (*domain.AttendanceRecord, error) {
	if req.AttendanceID == "" || req.TeacherID == "" {
		return nil, domain.E(domain.KindValidation, "missing_params", "Missing attendanceId or teacherId")
	}

	att, err := s.attendanceRepo.GetByID(ctx, req.AttendanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}
	if att == nil {
		return nil, domain.E(domain.KindNotFound, "attendance_not_found", "Attendance record not found")
	}

	now := s.now()
	var biometricAt *time.Time
	if req.VerificationType == "biometric" {
		biometricAt = &now
	}

	changed, err := s.attendanceRepo.MarkConfirmed(ctx, req.AttendanceID, now, biometricAt, req.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize: %w", err)
	}
	if !changed && att.Status == domain.StatusFlagged {
		return nil, domain.E(domain.KindForbidden, "record_flagged", "Record is flagged and requires review")
	}

	updated, err := s.attendanceRepo.GetByID(ctx, req.AttendanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload attendance: %w", err)
	}
	s.logger.Info("attendance finalized",
		zap.String("attendance_id", req.AttendanceID),
		zap.String("teacher_id", req.TeacherID),
	)
	return updated, nil
}

// ResetDevice 清除设备绑定（教师操作），之后学生可用新设备签到
func (s *AttendanceService) ResetDevice(ctx context.Context, studentID string) error {
	if studentID == "" {
		return domain.E(domain.KindValidation, "missing_params", "Missing studentId")
	}
	if err := s.studentsRepo.ResetDevice(ctx, studentID); err != nil {
		return fmt.Errorf("failed to reset device: %w", err)
	}
	s.logger.Info("device binding reset", zap.String("student_id", studentID))
	return nil
}

// resolveUnchanged 确认转移未发生时重读状态：并发确认视为幂等成功，
// flagged 则明确拒绝
func (s *AttendanceService) resolveUnchanged(ctx context.Context, sessionID, studentID string) (*Step2Result, error) {
	att, err := s.attendanceRepo.GetBySessionStudent(ctx, sessionID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload attendance: %w", err)
	}
	if att != nil && att.Status == domain.StatusConfirmed {
		return &Step2Result{Already: true, Status: att.Status}, nil
	}
	return nil, domain.E(domain.KindForbidden, "record_flagged", "Record is flagged and requires review")
}

func errDeviceMismatch() error {
	return domain.E(domain.KindForbidden, "device_mismatch",
		"This account is bound to a different device. Contact your teacher to reset.")
}

// devicePrefix 日志里只输出设备标识前缀
func devicePrefix(deviceID string) string {
	if len(deviceID) > 8 {
		return deviceID[:8] + "..."
	}
	return deviceID
}
