package httpapi

import (
	"net/http"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"
	"github.com/Avyoraj/Attend-Fresh/internal/service"

	"go.uber.org/zap"
)

// AttendanceHandler 出勤 HTTP 处理器
type AttendanceHandler struct {
	attendance *service.AttendanceService
	logger     *zap.Logger
}

// NewAttendanceHandler 创建出勤处理器
func NewAttendanceHandler(attendance *service.AttendanceService, logger *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, logger: logger}
}

// attendanceJSON 出勤记录响应体
func attendanceJSON(a *domain.AttendanceRecord) map[string]any {
	m := map[string]any{
		"id":          a.ID,
		"studentId":   a.StudentID,
		"classId":     a.ClassID,
		"sessionId":   a.SessionID,
		"status":      string(a.Status),
		"rssi":        a.RSSI,
		"beaconMinor": a.BeaconMinor,
		"sessionDate": a.SessionDate,
		"checkedInAt": a.CheckedInAt,
	}
	if a.Step2VerifiedAt != nil {
		m["step2VerifiedAt"] = *a.Step2VerifiedAt
	}
	if a.ConfirmedAt != nil {
		m["confirmedAt"] = *a.ConfirmedAt
	}
	if a.BiometricVerifiedAt != nil {
		m["biometricVerifiedAt"] = *a.BiometricVerifiedAt
	}
	if a.PhysicalVerifiedBy != "" {
		m["physicalVerifiedBy"] = a.PhysicalVerifiedBy
	}
	return m
}

// CheckIn POST /attendance/check-in
// 201 新建 provisional；重复签到幂等返回 200
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req service.CheckInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.attendance.CheckIn(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if result.Already {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Already checked in"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"status":     string(domain.StatusProvisional),
		"attendance": attendanceJSON(result.Attendance),
	})
}

// StreamRssi POST /attendance/stream-rssi
func (h *AttendanceHandler) StreamRssi(w http.ResponseWriter, r *http.Request) {
	var req service.UploadRssiRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.attendance.UploadRssi(r.Context(), req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// VerifyStep2 POST /attendance/verify-step2
func (h *AttendanceHandler) VerifyStep2(w http.ResponseWriter, r *http.Request) {
	var req service.Step2Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.attendance.VerifyStep2(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if result.Already {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Already confirmed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  string(result.Status),
	})
}

// BiometricConfirm POST /attendance/biometric-confirm
func (h *AttendanceHandler) BiometricConfirm(w http.ResponseWriter, r *http.Request) {
	var req service.BiometricRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.attendance.BiometricConfirm(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if result.Already {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Already confirmed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  string(result.Status),
	})
}

// Finalize POST /attendance/finalize
func (h *AttendanceHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req service.FinalizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	record, err := h.attendance.Finalize(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"attendance": attendanceJSON(record),
	})
}

// ResetDevice POST /attendance/reset-device
func (h *AttendanceHandler) ResetDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID string `json:"studentId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.attendance.ResetDevice(r.Context(), req.StudentID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
