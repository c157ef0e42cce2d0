package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/medvoice/backend/internal/auth"
	"github.com/zhouzirui/medvoice/backend/internal/config"
	"github.com/zhouzirui/medvoice/backend/internal/handler"
	"github.com/zhouzirui/medvoice/backend/internal/handler/call"
	imagingHandler "github.com/zhouzirui/medvoice/backend/internal/handler/imaging"
	"github.com/zhouzirui/medvoice/backend/internal/model/doctor"
	repo "github.com/zhouzirui/medvoice/backend/internal/repository/consultation"
	"github.com/zhouzirui/medvoice/backend/internal/service/consultation"
	"github.com/zhouzirui/medvoice/backend/internal/service/imaging"
	"github.com/zhouzirui/medvoice/backend/internal/service/report"
	"github.com/zhouzirui/medvoice/backend/pkg/database"
	"github.com/zhouzirui/medvoice/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	log := logger.New(logger.Options{Production: cfg.Logging.Production, FilePath: cfg.Logging.FilePath})
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if envErr != nil {
		log.Info("no .env file loaded, continuing with system environment variables only", zap.Error(envErr))
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := database.Open(cfg.Database.URL, log)
	if err != nil {
		return err
	}
	if err := database.WaitReady(ctx, db, cfg.Database.ReadyTimeout, log); err != nil {
		return err
	}

	store := repo.NewGormStore(db)
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	policy, err := consultation.ParseReadPolicy(cfg.Sessions.ReadPolicy)
	if err != nil {
		return err
	}
	sessions := consultation.NewService(store, policy)

	verifier, err := auth.NewVerifier(cfg.Auth.Mode, cfg.Auth.JWTSecret, cfg.Auth.IdentityClaim)
	if err != nil {
		return err
	}
	if cfg.Auth.Mode == auth.ModeHeader {
		log.Warn("AUTH_MODE=header trusts the identity header, use only behind a trusted proxy")
	}

	generator, err := newReportGenerator(ctx, cfg.AI, log)
	if err != nil {
		return err
	}
	reports := report.NewService(sessions, generator, report.Options{
		Timeout:  cfg.Report.Timeout,
		CacheTTL: cfg.Report.CacheTTL,
		Logger:   log,
	})

	var analyzer imagingHandler.Analyzer
	if cfg.Vision.Enabled() {
		analyzer = imaging.NewService(imaging.NewOpenAIClient(cfg.Vision.APIKey, cfg.Vision.BaseURL), imaging.Options{
			Model:         cfg.Vision.Model,
			MaxTokens:     cfg.Vision.MaxTokens,
			MaxImageBytes: cfg.Vision.MaxImageBytes,
			Timeout:       cfg.Vision.Timeout,
			Logger:        log,
		})
	} else {
		log.Warn("OPENROUTER_API_KEY not set, image analysis disabled")
	}

	router := handler.NewRouter(handler.Deps{
		Logger:         log,
		Verifier:       verifier,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Doctors:        doctor.NewMemoryStore(doctor.Seed()),
		Sessions:       sessions,
		Reports:        reports,
		Imaging:        analyzer,
		Assistants: call.Assistants{
			Male:   cfg.Voice.MaleAssistantID,
			Female: cfg.Voice.FemaleAssistantID,
		},
		Ping: func(ctx context.Context) error { return database.Ping(ctx, db) },
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("medvoice backend listening", zap.String("addr", cfg.Server.Addr), zap.String("read_policy", string(policy)))
	return runServer(ctx, srv)
}

// newReportGenerator builds the Ark-backed generator. Without credentials
// every report request fails as an upstream error instead of the server
// refusing to start.
func newReportGenerator(ctx context.Context, cfg config.AIConfig, log *zap.Logger) (report.Generator, error) {
	if !cfg.Enabled() {
		log.Warn("Ark 凭证未配置，报告生成不可用")
		return report.UnavailableGenerator{}, nil
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, err
	}
	generator, err := report.NewLLMGenerator(ctx, chatModel)
	if err != nil {
		return nil, err
	}
	log.Info("report generator initialized", zap.String("model", cfg.Model))
	return generator, nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
