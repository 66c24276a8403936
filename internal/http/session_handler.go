package httpapi

import (
	"net/http"
	"strconv"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"
	"github.com/Avyoraj/Attend-Fresh/internal/service"

	"go.uber.org/zap"
)

// SessionHandler 会话 HTTP 处理器
type SessionHandler struct {
	sessions *service.SessionService
	logger   *zap.Logger
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(sessions *service.SessionService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// sessionJSON 会话响应体
func sessionJSON(s *domain.Session) map[string]any {
	m := map[string]any{
		"id":                   s.ID,
		"roomId":               s.RoomID,
		"classId":              s.ClassID,
		"className":            s.ClassName,
		"teacherId":            s.TeacherID,
		"teacherName":          s.TeacherName,
		"beaconMajor":          s.BeaconMajor,
		"beaconMinor":          s.BeaconMinor,
		"rotationIntervalMins": s.RotationIntervalMins,
		"status":               s.Status,
	}
	if s.CurrentMinorID != nil {
		m["currentMinorId"] = *s.CurrentMinorID
	}
	if s.LastRotationAt != nil {
		m["lastRotationAt"] = *s.LastRotationAt
	}
	if s.ActualStart != nil {
		m["actualStart"] = *s.ActualStart
	}
	if s.ActualEnd != nil {
		m["actualEnd"] = *s.ActualEnd
	}
	return m
}

// StartSession POST /sessions/start
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req service.StartSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	session, err := h.sessions.StartSession(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"session": sessionJSON(session),
	})
}

// EndSession POST /sessions/{id}/end
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := h.sessions.EndSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"session": sessionJSON(session),
	})
}

// SyncMinor PATCH /sessions/sync-minor
func (h *SessionHandler) SyncMinor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID  string `json:"sessionId"`
		NewMinorID int    `json:"newMinorId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	session, err := h.sessions.SyncMinor(r.Context(), req.SessionID, req.NewMinorID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"current_minor_id": *session.CurrentMinorID,
	})
}

// Discover GET /sessions/discover?minor=
func (h *SessionHandler) Discover(w http.ResponseWriter, r *http.Request) {
	minor, err := strconv.Atoi(r.URL.Query().Get("minor"))
	if err != nil {
		writeError(w, h.logger, domain.E(domain.KindValidation, "invalid_minor", "Missing or invalid minor parameter"))
		return
	}

	session, svcErr := h.sessions.Discover(r.Context(), minor)
	if svcErr != nil {
		writeError(w, h.logger, svcErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": session.ID,
		"classId":   session.ClassID,
		"className": session.ClassName,
	})
}
