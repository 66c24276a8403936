package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Avyoraj/Attend-Fresh/internal/config"
	"github.com/Avyoraj/Attend-Fresh/internal/detector"
	"github.com/Avyoraj/Attend-Fresh/internal/repository"
	"github.com/Avyoraj/Attend-Fresh/internal/security"
	"github.com/Avyoraj/Attend-Fresh/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type apiFixture struct {
	router   *Router
	verifier *security.Verifier
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zap.NewNop()
	verifier := security.NewVerifier("test_salt")

	studentsRepo := repository.NewMemoryStudentsRepo()
	sessionsRepo := repository.NewMemorySessionsRepo()
	attendanceRepo := repository.NewMemoryAttendanceRepo()
	rssiRepo := repository.NewMemoryRssiStreamsRepo()
	anomaliesRepo := repository.NewMemoryAnomaliesRepo()

	beaconCfg := config.BeaconConfig{
		InitialWindowMins: 60,
		RotatedWindowMins: 3,
		DefaultMajor:      1,
		DefaultMinor:      101,
	}
	detectorCfg := config.DetectorConfig{
		MotionRatioThreshold: 0.3,
		JitterThreshold:      0.5,
		JitterMinSamples:     3,
		CorrelationThreshold: 0.85,
		MissedFlagCount:      2,
		ScoreLowMotion:       40,
		ScoreLowJitter:       30,
		ScoreMissed:          20,
		ScoreCorrelation:     50,
		FlagRiskScore:        60,
		PairMinSamples:       5,
		AnalysisMinSamples:   3,
		JitterDeltaThreshold: 0.5,
		ScorePairJitter:      30,
		ScorePairCount:       20,
		PairFlagRiskScore:    70,
	}

	sessionService := service.NewSessionService(sessionsRepo, beaconCfg, logger)
	attendanceService := service.NewAttendanceService(studentsRepo, sessionsRepo, attendanceRepo, rssiRepo, verifier, logger)
	anomalyService := service.NewAnomalyService(rssiRepo, attendanceRepo, anomaliesRepo,
		detector.NewProxyDetector(detectorCfg, logger), logger)

	router := NewRouter(logger)
	router.RegisterRoutes(
		NewSessionHandler(sessionService, logger),
		NewAttendanceHandler(attendanceService, logger),
		NewAnomalyHandler(anomalyService, logger),
	)
	return &apiFixture{router: router, verifier: verifier}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// startSession 开课并返回会话ID
func (f *apiFixture) startSession(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/sessions/start", map[string]any{
		"roomId":    "room-1",
		"classId":   "cs101",
		"className": "Algorithms",
		"teacherId": "teacher-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	session := body["session"].(map[string]any)
	return session["id"].(string)
}

func (f *apiFixture) checkInBody(sessionID string, minor int) map[string]any {
	return map[string]any{
		"studentId":       "alice",
		"classId":         "cs101",
		"sessionId":       sessionID,
		"deviceId":        "device-alice",
		"deviceSignature": f.verifier.Sign("device-alice"),
		"reportedMinor":   minor,
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "OK", body["status"])
}

func TestStartSession_Conflict(t *testing.T) {
	f := newAPIFixture(t)
	f.startSession(t)

	rec := f.do(t, http.MethodPost, "/sessions/start", map[string]any{
		"roomId": "room-1", "classId": "cs102", "teacherId": "teacher-2",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "session_active", body["error"])
}

func TestCheckIn_CreatedThenIdempotent(t *testing.T) {
	f := newAPIFixture(t)
	sessionID := f.startSession(t)

	rec := f.do(t, http.MethodPost, "/attendance/check-in", f.checkInBody(sessionID, 101))
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "provisional", body["status"])
	att := body["attendance"].(map[string]any)
	assert.Equal(t, "alice", att["studentId"])

	rec = f.do(t, http.MethodPost, "/attendance/check-in", f.checkInBody(sessionID, 101))
	assert.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "Already checked in", body["message"])
}

func TestCheckIn_InvalidSignature(t *testing.T) {
	f := newAPIFixture(t)
	sessionID := f.startSession(t)

	body := f.checkInBody(sessionID, 101)
	body["deviceSignature"] = "forged"
	rec := f.do(t, http.MethodPost, "/attendance/check-in", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_signature", decodeBody(t, rec)["error"])
}

func TestCheckIn_WrongMinor(t *testing.T) {
	f := newAPIFixture(t)
	sessionID := f.startSession(t)

	rec := f.do(t, http.MethodPost, "/attendance/check-in", f.checkInBody(sessionID, 999))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "minor_mismatch", decodeBody(t, rec)["error"])
}

func TestCheckIn_InvalidJSONBody(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/attendance/check-in", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_body", decodeBody(t, rec)["error"])
}

func TestSyncMinorThenStep2(t *testing.T) {
	f := newAPIFixture(t)
	sessionID := f.startSession(t)

	rec := f.do(t, http.MethodPost, "/attendance/check-in", f.checkInBody(sessionID, 101))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPatch, "/sessions/sync-minor", map[string]any{
		"sessionId": sessionID, "newMinorId": 205,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(205), decodeBody(t, rec)["current_minor_id"])

	rec = f.do(t, http.MethodPost, "/attendance/verify-step2", map[string]any{
		"studentId": "alice", "sessionId": sessionID, "reportedMinor": 205,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "step2_verified", decodeBody(t, rec)["status"])
}

func TestVerifyStep2_SameMinorRejected(t *testing.T) {
	f := newAPIFixture(t)
	sessionID := f.startSession(t)

	rec := f.do(t, http.MethodPost, "/attendance/check-in", f.checkInBody(sessionID, 101))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/attendance/verify-step2", map[string]any{
		"studentId": "alice", "sessionId": sessionID, "reportedMinor": 101,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "same_minor", body["error"])
	assert.Equal(t, "Wait for beacon rotation", body["message"])
}

func TestEndSessionRoute(t *testing.T) {
	f := newAPIFixture(t)
	sessionID := f.startSession(t)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/sessions/%s/end", sessionID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	session := decodeBody(t, rec)["session"].(map[string]any)
	assert.Equal(t, "ended", session["status"])

	// 畸形路径
	rec = f.do(t, http.MethodPost, "/sessions/abc/def/end", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, fmt.Sprintf("/sessions/%s/end", sessionID), nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDiscoverSession(t *testing.T) {
	f := newAPIFixture(t)
	sessionID := f.startSession(t)

	rec := f.do(t, http.MethodGet, "/sessions/discover?minor=101", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, sessionID, body["sessionId"])
	assert.Equal(t, "cs101", body["classId"])

	rec = f.do(t, http.MethodGet, "/sessions/discover?minor=999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_session_for_beacon", decodeBody(t, rec)["error"])

	rec = f.do(t, http.MethodGet, "/sessions/discover", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamRssiAndAnalyze(t *testing.T) {
	f := newAPIFixture(t)
	sessionID := f.startSession(t)

	rec := f.do(t, http.MethodPost, "/attendance/check-in", f.checkInBody(sessionID, 101))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/attendance/stream-rssi", map[string]any{
		"studentId": "alice",
		"classId":   "cs101",
		"rssiData": []map[string]any{
			{"rssi": -70, "hasMotion": false, "timestamp": 1},
			{"rssi": -70, "hasMotion": false, "timestamp": 2},
			{"rssi": -70, "hasMotion": false, "timestamp": 3},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/anomalies/analyze", map[string]any{
		"studentId": "alice", "sessionId": sessionID, "classId": "cs101",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "flagged", body["status"])
	assert.Equal(t, float64(70), body["riskScore"])
}

func TestAnomaliesPending(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/anomalies/pending?classId=cs101", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Empty(t, items)

	rec = f.do(t, http.MethodGet, "/anomalies/pending", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBiometricConfirmRoute(t *testing.T) {
	f := newAPIFixture(t)
	sessionID := f.startSession(t)

	rec := f.do(t, http.MethodPost, "/attendance/check-in", f.checkInBody(sessionID, 101))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/attendance/biometric-confirm", map[string]any{
		"studentId": "alice", "sessionId": sessionID, "deviceId": "device-alice",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "confirmed", decodeBody(t, rec)["status"])

	rec = f.do(t, http.MethodPost, "/attendance/biometric-confirm", map[string]any{
		"studentId": "alice", "sessionId": sessionID, "deviceId": "device-alice",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Already confirmed", decodeBody(t, rec)["message"])
}

func TestMethodNotAllowed(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/attendance/check-in", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	rec = f.do(t, http.MethodPost, "/sessions/discover", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
