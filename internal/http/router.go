package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterRoutes 注册全部 API 路由
func (r *Router) RegisterRoutes(s *SessionHandler, a *AttendanceHandler, an *AnomalyHandler) {
	// health
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "OK",
			"message": "Attend-Fresh Backend",
		})
	})

	// sessions（开课/下课/轮换心跳/会话发现）
	r.Handle("/sessions/start", post(s.StartSession))
	r.Handle("/sessions/sync-minor", method(http.MethodPatch, s.SyncMinor))
	r.Handle("/sessions/discover", method(http.MethodGet, s.Discover))
	r.Handle("/sessions/", func(w http.ResponseWriter, req *http.Request) {
		// POST /sessions/{id}/end
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/sessions/")
		id := strings.TrimSuffix(rest, "/end")
		if id == "" || id == rest || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s.EndSession(w, req, id)
	})

	// attendance（签到/采样上报/二次挑战/兜底确认/手动确认/设备重置）
	r.Handle("/attendance/check-in", post(a.CheckIn))
	r.Handle("/attendance/stream-rssi", post(a.StreamRssi))
	r.Handle("/attendance/verify-step2", post(a.VerifyStep2))
	r.Handle("/attendance/biometric-confirm", post(a.BiometricConfirm))
	r.Handle("/attendance/finalize", post(a.Finalize))
	r.Handle("/attendance/reset-device", post(a.ResetDevice))

	// anomalies（分析触发/待复核列表）
	r.Handle("/anomalies/analyze", post(an.Analyze))
	r.Handle("/anomalies/pending", method(http.MethodGet, an.Pending))
}

func post(h http.HandlerFunc) http.HandlerFunc {
	return method(http.MethodPost, h)
}

func method(m string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != m {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}
