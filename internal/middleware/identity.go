package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/medvoice/backend/internal/auth"
	"github.com/zhouzirui/medvoice/backend/pkg/utils"
)

// Identity 解析调用方身份并写入请求上下文，失败时返回 401
func Identity(verifier auth.Verifier, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := verifier.Verify(r)
			if err != nil {
				log.Debug("identity rejected", zap.String("path", r.URL.Path), zap.Error(err))
				utils.RespondFailure(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}
