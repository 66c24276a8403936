package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Avyoraj/Attend-Fresh/internal/detector"
	"github.com/Avyoraj/Attend-Fresh/internal/domain"
	"github.com/Avyoraj/Attend-Fresh/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnomalyService 代理检测分析服务
// 在分析窗口结束时读取全班采样流，产出 confirm/flag 结论并落到出勤记录；
// 两两风险评分超标时额外生成待复核的异常记录
type AnomalyService struct {
	rssiRepo       repository.RssiStreamsRepository
	attendanceRepo repository.AttendanceRepository
	anomaliesRepo  repository.AnomaliesRepository
	detector       *detector.ProxyDetector
	logger         *zap.Logger
	now            func() time.Time
}

// NewAnomalyService 创建分析服务
func NewAnomalyService(
	rssiRepo repository.RssiStreamsRepository,
	attendanceRepo repository.AttendanceRepository,
	anomaliesRepo repository.AnomaliesRepository,
	proxyDetector *detector.ProxyDetector,
	logger *zap.Logger,
) *AnomalyService {
	return &AnomalyService{
		rssiRepo:       rssiRepo,
		attendanceRepo: attendanceRepo,
		anomaliesRepo:  anomaliesRepo,
		detector:       proxyDetector,
		logger:         logger,
		now:            time.Now,
	}
}

// AnalyzeRequest 分析请求（内部触发）
type AnalyzeRequest struct {
	StudentID string `json:"studentId"`
	SessionID string `json:"sessionId"`
	ClassID   string `json:"classId"`
}

// Analyze 对单个学生运行抽查分析并应用结论
//
//   - inconclusive：无数据，不改记录，交给生物识别/人工兜底
//   - flagged / confirmed：按状态机推进出勤记录（confirmed 记确认时间）
//
// 另对每个同班采样流做完整两两风险评分，超标的落异常记录供教师复核
func (s *AnomalyService) Analyze(ctx context.Context, req AnalyzeRequest) (*detector.Verdict, error) {
	if req.StudentID == "" || req.SessionID == "" || req.ClassID == "" {
		return nil, domain.E(domain.KindValidation, "missing_params", "Missing studentId, sessionId or classId")
	}

	day := s.now().Format(dateLayout)

	mine, err := s.rssiRepo.GetStream(ctx, req.ClassID, req.StudentID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load rssi stream: %w", err)
	}

	peers, err := s.rssiRepo.ListClassStreams(ctx, req.ClassID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load class streams: %w", err)
	}
	delete(peers, req.StudentID)

	verdict := s.detector.AnalyzeStudent(req.StudentID, mine, peers)

	if err := s.applyVerdict(ctx, req.SessionID, req.StudentID, verdict); err != nil {
		return nil, err
	}

	if err := s.recordPairAnomalies(ctx, req, day, mine, peers); err != nil {
		// 异常记录只是复核线索，失败不影响分析结论
		s.logger.Error("failed to record pair anomalies", zap.Error(err))
	}

	return &verdict, nil
}

// ListPending 按班级列出待复核的异常记录
func (s *AnomalyService) ListPending(ctx context.Context, classID string) ([]*domain.Anomaly, error) {
	if classID == "" {
		return nil, domain.E(domain.KindValidation, "missing_params", "Missing classId")
	}
	anomalies, err := s.anomaliesRepo.ListPending(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list anomalies: %w", err)
	}
	return anomalies, nil
}

// applyVerdict 把分析结论落到出勤记录（无签到记录时只返回结论）
func (s *AnomalyService) applyVerdict(ctx context.Context, sessionID, studentID string, verdict detector.Verdict) error {
	if verdict.Status == detector.VerdictInconclusive {
		return nil
	}

	att, err := s.attendanceRepo.GetBySessionStudent(ctx, sessionID, studentID)
	if err != nil {
		return fmt.Errorf("failed to load attendance: %w", err)
	}
	if att == nil {
		return nil
	}

	switch verdict.Status {
	case detector.VerdictFlagged:
		if _, err := s.attendanceRepo.MarkFlagged(ctx, att.ID); err != nil {
			return fmt.Errorf("failed to flag attendance: %w", err)
		}
	case detector.VerdictConfirmed:
		if _, err := s.attendanceRepo.MarkConfirmed(ctx, att.ID, s.now(), nil, ""); err != nil {
			return fmt.Errorf("failed to confirm attendance: %w", err)
		}
	}
	return nil
}

// recordPairAnomalies 对同班每条采样流做两两风险评分，超标落异常记录
func (s *AnomalyService) recordPairAnomalies(ctx context.Context, req AnalyzeRequest, day string, mine []domain.RssiSample, peers map[string][]domain.RssiSample) error {
	peerIDs := make([]string, 0, len(peers))
	for id := range peers {
		peerIDs = append(peerIDs, id)
	}
	sort.Strings(peerIDs)

	for _, peerID := range peerIDs {
		risk := s.detector.AnalyzeRisk(mine, peers[peerID])
		if !risk.Flagged {
			continue
		}
		anomaly := &domain.Anomaly{
			AnomalyID:        uuid.New().String(),
			StudentID1:       req.StudentID,
			StudentID2:       peerID,
			ClassID:          req.ClassID,
			SessionDate:      day,
			CorrelationScore: risk.Pearson,
			Status:           domain.AnomalyPending,
			CreatedAt:        s.now(),
		}
		if err := s.anomaliesRepo.CreateAnomaly(ctx, anomaly); err != nil {
			return err
		}
		s.logger.Info("pair anomaly recorded",
			zap.String("student_id_1", req.StudentID),
			zap.String("student_id_2", peerID),
			zap.Int("risk_score", risk.Score),
			zap.Float64("pearson", risk.Pearson),
		)
	}
	return nil
}
