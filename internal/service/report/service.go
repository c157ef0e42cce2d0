package report

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	model "github.com/zhouzirui/medvoice/backend/internal/model/consultation"
	"github.com/zhouzirui/medvoice/backend/pkg/apperr"
)

const (
	DefaultTimeout        = 60 * time.Second
	DefaultCacheTTL       = 10 * time.Minute
	DefaultPersistTimeout = 10 * time.Second
)

// Sessions is the slice of the session service the report flow needs.
type Sessions interface {
	Get(ctx context.Context, caller, sessionID string) (*model.Session, error)
	AttachReport(ctx context.Context, sessionID string, report model.Report) error
}

// Options tunes the attachment flow.
type Options struct {
	Timeout  time.Duration
	CacheTTL time.Duration
	Logger   *zap.Logger

	// PersistTimeout bounds the write of a generated report.
	PersistTimeout time.Duration
}

// Service generates a report for a finished call and stores it on the
// session.
type Service struct {
	sessions       Sessions
	generator      Generator
	timeout        time.Duration
	persistTimeout time.Duration
	flights        singleflight.Group
	recent         *cache.Cache
	log            *zap.Logger
	now            func() time.Time
}

// NewService wires the report flow.
func NewService(sessions Sessions, generator Generator, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = DefaultPersistTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Service{
		sessions:       sessions,
		generator:      generator,
		timeout:        opts.Timeout,
		persistTimeout: opts.PersistTimeout,
		recent:         cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		log:            opts.Logger.Named("report"),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Attach generates the report for transcript and writes it onto a session
// owned by caller. Duplicate calls for the same transcript share a single
// generation; the stored report is overwritten on every successful call.
// Sessions owned by someone else are reported as missing whatever the read
// policy is.
func (s *Service) Attach(ctx context.Context, caller, sessionID string, transcript model.Transcript) (*model.Report, error) {
	const op = "report.attach"

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperr.Invalid(op, "sessionId is required")
	}
	if !hasSpeech(transcript) {
		return nil, apperr.Invalid(op, "transcript is empty")
	}

	session, err := s.sessions.Get(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.CreatedBy != caller {
		return nil, apperr.New(apperr.KindNotFound, op, "session not found")
	}

	key := sessionID + ":" + transcript.Fingerprint()
	// The flight outlives the first caller's request; every step inside it
	// carries its own deadline.
	flightCtx := context.WithoutCancel(ctx)
	flight := s.flights.DoChan(key, func() (any, error) {
		report, err := s.generateOnce(flightCtx, key, *session, transcript)
		if err != nil {
			return nil, err
		}
		if err := s.persist(flightCtx, sessionID, report); err != nil {
			return nil, err
		}
		return report, nil
	})

	var result singleflight.Result
	select {
	case result = <-flight:
	case <-ctx.Done():
		s.log.Warn("report attach abandoned by caller", zap.String("session_id", sessionID), zap.Error(ctx.Err()))
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperr.Wrap(apperr.KindTimeout, op, "report attach timed out", ctx.Err())
		}
		return nil, apperr.Wrap(apperr.KindInternal, op, "request cancelled", ctx.Err())
	}

	if result.Err != nil {
		s.log.Warn("report attach failed",
			zap.String("session_id", sessionID),
			zap.String("kind", apperr.KindOf(result.Err).String()),
			zap.Error(result.Err),
		)
		return nil, result.Err
	}

	report := result.Val.(model.Report)
	s.log.Info("report attached",
		zap.String("session_id", sessionID),
		zap.Bool("shared", result.Shared),
		zap.String("severity", string(report.Severity)),
	)
	return &report, nil
}

// persist writes report within the persist timeout.
func (s *Service) persist(ctx context.Context, sessionID string, report model.Report) error {
	persistCtx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()

	err := s.sessions.AttachReport(persistCtx, sessionID, report)
	if err != nil && errors.Is(persistCtx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindTimeout, "report.persist", "saving report timed out", err)
	}
	return err
}

// generateOnce returns the cached report for key or asks the generator
// within the configured timeout.
func (s *Service) generateOnce(ctx context.Context, key string, session model.Session, transcript model.Transcript) (model.Report, error) {
	if cached, ok := s.recent.Get(key); ok {
		return cached.(model.Report), nil
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	generated, err := s.generator.Generate(genCtx, Request{Session: session, Transcript: transcript})
	if err != nil {
		return model.Report{}, classifyGenerateError(genCtx, err)
	}
	if generated == nil {
		return model.Report{}, apperr.Upstream("report.generate", "report generator returned nothing", nil)
	}

	report := *generated
	report.SessionID = session.SessionID
	report.Agent = session.SelectedDoctor.Specialist
	report.User = session.CreatedBy
	report.Timestamp = s.now().Format(time.RFC3339)

	s.recent.Set(key, report, cache.DefaultExpiration)
	return report, nil
}

func classifyGenerateError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindTimeout, "report.generate", "report generation timed out", err)
	}
	if apperr.KindOf(err) == apperr.KindInternal {
		return apperr.Upstream("report.generate", "report generator failed", err)
	}
	return err
}
