// Package detector 实现代理出勤的行为检测
//
// 检测三类代理模式：
//   - 静置设备：手机放在桌上代人签到（低运动占比 + 近零抖动）
//   - 中途离场：应用被杀或人已离开（漏报抽查）
//   - 同步移动：一人带多部手机，或脚本化代理（跨学生信号高相关）
package detector

import (
	"fmt"
	"math"
	"sort"

	"github.com/Avyoraj/Attend-Fresh/internal/config"
	"github.com/Avyoraj/Attend-Fresh/internal/domain"

	"go.uber.org/zap"
)

// 分析结论
const (
	VerdictInconclusive = "inconclusive"
	VerdictConfirmed    = "confirmed"
	VerdictFlagged      = "flagged"
)

// Verdict 单人分析结论
type Verdict struct {
	Status    string   `json:"status"`
	RiskScore int      `json:"riskScore"`
	Reasons   []string `json:"reasons"`
}

// PairRisk 两两风险评分结果
type PairRisk struct {
	Score     int     `json:"score"`
	Flagged   bool    `json:"isFlagged"`
	Pearson   float64 `json:"pearson"`
	PearsonOK bool    `json:"-"`
}

// ProxyDetector 代理检测器
// 所有阈值与分值来自配置，策略可独立调整
type ProxyDetector struct {
	cfg    config.DetectorConfig
	logger *zap.Logger
}

// NewProxyDetector 创建代理检测器
func NewProxyDetector(cfg config.DetectorConfig, logger *zap.Logger) *ProxyDetector {
	return &ProxyDetector{cfg: cfg, logger: logger}
}

// AnalyzeStudent 对单个学生的采样流做代理分析
//
// mine 为该学生当天的完整采样流，peers 为同班其他学生的采样流（只读）。
// 结论：
//   - 空流 -> inconclusive（交给人工/生物识别兜底，不是错误）
//   - 漏报数达到阈值 -> 直接 flagged
//   - 否则按运动占比、抖动、漏报、两两相关累计风险分，达到阈值 flagged
func (d *ProxyDetector) AnalyzeStudent(studentID string, mine []domain.RssiSample, peers map[string][]domain.RssiSample) Verdict {
	if len(mine) == 0 {
		return Verdict{Status: VerdictInconclusive, Reasons: []string{"No spot check data received"}}
	}

	valid, missedCount := domain.SplitSamples(mine)

	// 漏报抽查：应用被杀或学生已离场
	if missedCount >= d.cfg.MissedFlagCount {
		d.logger.Info("spot checks missed, flagging",
			zap.String("student_id", studentID),
			zap.Int("missed", missedCount),
		)
		return Verdict{Status: VerdictFlagged, Reasons: []string{"Missed spot checks"}}
	}

	// 运动占比：手机是否真的被人拿着
	motionCount := 0
	for _, s := range valid {
		if s.HasMotion {
			motionCount++
		}
	}
	motionRatio := 0.0
	if len(valid) > 0 {
		motionRatio = float64(motionCount) / float64(len(valid))
	}

	// 抖动：桌面静置的手机 RSSI 几乎不变
	values := domain.SampleValues(valid)
	jitter := Jitter(values)

	riskScore := 0
	var reasons []string

	if motionRatio < d.cfg.MotionRatioThreshold {
		riskScore += d.cfg.ScoreLowMotion
		reasons = append(reasons, "Low motion detected")
	}
	if jitter < d.cfg.JitterThreshold && len(valid) >= d.cfg.JitterMinSamples {
		riskScore += d.cfg.ScoreLowJitter
		reasons = append(reasons, "Static RSSI (desk?)")
	}
	if missedCount >= 1 {
		riskScore += d.cfg.ScoreMissed
		reasons = append(reasons, "Missed a spot check")
	}

	// 两两相关：两部设备同步移动。一个强相关即足够，停止扫描
	for _, peerID := range sortedPeerIDs(peers) {
		peerValid, _ := domain.SplitSamples(peers[peerID])
		if len(peerValid) < d.cfg.AnalysisMinSamples {
			continue
		}
		pearson, ok := Pearson(values, domain.SampleValues(peerValid), d.cfg.AnalysisMinSamples)
		if !ok {
			continue
		}
		if pearson > d.cfg.CorrelationThreshold {
			riskScore += d.cfg.ScoreCorrelation
			reasons = append(reasons, fmt.Sprintf("High correlation (%.2f) with %s", pearson, peerID))
			break
		}
	}

	status := VerdictConfirmed
	if riskScore >= d.cfg.FlagRiskScore {
		status = VerdictFlagged
	}

	d.logger.Info("spot check analysis complete",
		zap.String("student_id", studentID),
		zap.String("verdict", status),
		zap.Int("risk_score", riskScore),
		zap.Strings("reasons", reasons),
	)

	return Verdict{Status: status, RiskScore: riskScore, Reasons: reasons}
}

// AnalyzeRisk 对两条采样流做完整的两两风险评分
//
// 与单人分析不同，这里要求更长的序列（PairMinSamples），用于生成
// 教师复核用的异常记录：
//   - 高相关：两部设备同步移动
//   - 抖动差近零：移动模式一致
//   - 采样数相同：上报节奏完全一致（非常可疑）
func (d *ProxyDetector) AnalyzeRisk(a, b []domain.RssiSample) PairRisk {
	validA, _ := domain.SplitSamples(a)
	validB, _ := domain.SplitSamples(b)
	valuesA := domain.SampleValues(validA)
	valuesB := domain.SampleValues(validB)

	pearson, ok := Pearson(valuesA, valuesB, d.cfg.PairMinSamples)

	jitterA := Jitter(valuesA)
	jitterB := Jitter(valuesB)

	score := 0
	if ok && pearson > d.cfg.CorrelationThreshold {
		score += d.cfg.ScoreCorrelation
	}
	if math.Abs(jitterA-jitterB) < d.cfg.JitterDeltaThreshold {
		score += d.cfg.ScorePairJitter
	}
	if len(valuesA) == len(valuesB) {
		score += d.cfg.ScorePairCount
	}

	return PairRisk{
		Score:     score,
		Flagged:   score >= d.cfg.PairFlagRiskScore,
		Pearson:   pearson,
		PearsonOK: ok,
	}
}

// sortedPeerIDs 固定遍历顺序，保证评分结果确定可测
func sortedPeerIDs(peers map[string][]domain.RssiSample) []string {
	ids := make([]string, 0, len(peers))
	for id := range peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
