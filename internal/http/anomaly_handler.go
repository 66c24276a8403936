package httpapi

import (
	"net/http"

	"github.com/Avyoraj/Attend-Fresh/internal/service"

	"go.uber.org/zap"
)

// AnomalyHandler 异常分析 HTTP 处理器
type AnomalyHandler struct {
	anomalies *service.AnomalyService
	logger    *zap.Logger
}

// NewAnomalyHandler 创建异常处理器
func NewAnomalyHandler(anomalies *service.AnomalyService, logger *zap.Logger) *AnomalyHandler {
	return &AnomalyHandler{anomalies: anomalies, logger: logger}
}

// Analyze POST /anomalies/analyze（内部触发）
// 返回分析结论、风险分与原因列表
func (h *AnomalyHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req service.AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	verdict, err := h.anomalies.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    verdict.Status,
		"riskScore": verdict.RiskScore,
		"reasons":   verdict.Reasons,
	})
}

// Pending GET /anomalies/pending?classId=
func (h *AnomalyHandler) Pending(w http.ResponseWriter, r *http.Request) {
	classID := r.URL.Query().Get("classId")

	anomalies, err := h.anomalies.ListPending(r.Context(), classID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]map[string]any, 0, len(anomalies))
	for _, a := range anomalies {
		items = append(items, map[string]any{
			"anomalyId":        a.AnomalyID,
			"studentId1":       a.StudentID1,
			"studentId2":       a.StudentID2,
			"classId":          a.ClassID,
			"sessionDate":      a.SessionDate,
			"correlationScore": a.CorrelationScore,
			"status":           a.Status,
			"createdAt":        a.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, items)
}
