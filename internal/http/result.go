package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"

	"go.uber.org/zap"
)

// writeJSON 输出 JSON 响应
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorBody 错误响应体（error 为稳定 reason 码，message 为可读信息）
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError 按错误分类映射 HTTP 状态码
// 领域错误原样透出 reason/message；其余一律 500 且不泄露存储细节
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if de := domain.AsError(err); de != nil {
		writeJSON(w, statusForKind(de.Kind), errorBody{Error: de.Reason, Message: de.Message})
		return
	}
	logger.Error("internal error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error", Message: "Internal server error"})
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON 解析请求体；失败返回统一的 ValidationError
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.E(domain.KindValidation, "invalid_body", "Invalid JSON body")
	}
	return nil
}
