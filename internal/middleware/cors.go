package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/zhouzirui/medvoice/backend/internal/auth"
)

// CORS 根据允许的来源构建跨域中间件，未配置时放行所有来源
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", auth.IdentityHeader, "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: len(allowedOrigins) > 0,
		MaxAge:           600,
	})
	return c.Handler
}
