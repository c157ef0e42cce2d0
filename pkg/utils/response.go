package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/medvoice/backend/pkg/apperr"
)

// Failure 是所有错误响应的统一结构
type Failure struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("failed to encode response", zap.Int("status", status), zap.Error(err))
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	kind := apperr.KindInternal
	switch status {
	case http.StatusBadRequest:
		kind = apperr.KindInvalid
	case http.StatusUnauthorized:
		kind = apperr.KindUnauthorized
	case http.StatusNotFound:
		kind = apperr.KindNotFound
	}
	RespondJSON(w, status, Failure{Error: message, Kind: kind.String()})
}

// RespondFailure 根据错误分类写出状态码与错误体，成功路径永远不会经过这里
func RespondFailure(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	RespondJSON(w, kind.Status(), Failure{Error: apperr.Message(err), Kind: kind.String()})
}
