package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/medvoice/backend/internal/auth"
	"github.com/zhouzirui/medvoice/backend/internal/handler/call"
	"github.com/zhouzirui/medvoice/backend/internal/handler/consultation"
	"github.com/zhouzirui/medvoice/backend/internal/handler/doctor"
	"github.com/zhouzirui/medvoice/backend/internal/handler/imaging"
	"github.com/zhouzirui/medvoice/backend/internal/handler/report"
	middlewarePkg "github.com/zhouzirui/medvoice/backend/internal/middleware"
	doctorModel "github.com/zhouzirui/medvoice/backend/internal/model/doctor"
	consultationService "github.com/zhouzirui/medvoice/backend/internal/service/consultation"
	reportService "github.com/zhouzirui/medvoice/backend/internal/service/report"
	"github.com/zhouzirui/medvoice/backend/pkg/utils"
)

// Pinger reports database reachability.
type Pinger func(ctx context.Context) error

// Deps carries everything the router wires.
type Deps struct {
	Logger         *zap.Logger
	Verifier       auth.Verifier
	AllowedOrigins []string
	Doctors        doctorModel.Store
	Sessions       *consultationService.Service
	Reports        *reportService.Service
	// Imaging is optional; the route answers 503 without it.
	Imaging    imaging.Analyzer
	Assistants call.Assistants
	Ping       Pinger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(log.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", handleHealth(deps.Ping))
		doctor.New(deps.Doctors).RegisterRoutes(api)

		api.Group(func(private chi.Router) {
			private.Use(middlewarePkg.Identity(deps.Verifier, log.Named("auth")))

			consultation.New(deps.Sessions).RegisterRoutes(private)
			report.New(deps.Reports).RegisterRoutes(private)
			call.NewWebSocketHandler(deps.Sessions, deps.Reports, deps.Assistants, log).RegisterRoutes(private)

			if deps.Imaging != nil {
				imaging.New(deps.Imaging).RegisterRoutes(private)
			} else {
				private.Post("/image-analysis", func(w http.ResponseWriter, r *http.Request) {
					utils.RespondError(w, http.StatusServiceUnavailable, "image analysis unavailable")
				})
			}
		})
	})

	return r
}

// handleHealth 返回服务状态与数据库连通性
func handleHealth(ping Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "database": "unknown"}
		if ping == nil {
			utils.RespondJSON(w, http.StatusOK, status)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			utils.RespondJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
		utils.RespondJSON(w, http.StatusOK, status)
	}
}
