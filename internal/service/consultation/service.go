package consultation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	model "github.com/zhouzirui/medvoice/backend/internal/model/consultation"
	"github.com/zhouzirui/medvoice/backend/internal/model/doctor"
	repo "github.com/zhouzirui/medvoice/backend/internal/repository/consultation"
	"github.com/zhouzirui/medvoice/backend/pkg/apperr"
)

// ReadPolicy decides who may read a single session by its id.
type ReadPolicy string

const (
	// ReadOwner hides sessions owned by someone else behind an empty result.
	ReadOwner ReadPolicy = "owner"
	// ReadOpen lets any authenticated caller read any session by id.
	ReadOpen ReadPolicy = "open"
)

// ParseReadPolicy accepts "owner" or "open"; empty means owner.
func ParseReadPolicy(raw string) (ReadPolicy, error) {
	switch ReadPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ReadOwner:
		return ReadOwner, nil
	case ReadOpen:
		return ReadOpen, nil
	default:
		return "", fmt.Errorf("unknown session read policy %q", raw)
	}
}

// CreateInput is the payload for starting a consultation.
type CreateInput struct {
	Notes          string        `json:"notes"`
	SelectedDoctor doctor.Doctor `json:"selectedDoctor"`
}

// Service manages consultation session records on behalf of a caller.
type Service struct {
	store    repo.Store
	policy   ReadPolicy
	validate *validator.Validate
	now      func() time.Time
}

// NewService wires the session service over a store.
func NewService(store repo.Store, policy ReadPolicy) *Service {
	if policy == "" {
		policy = ReadOwner
	}
	return &Service{
		store:    store,
		policy:   policy,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Policy returns the configured read-one policy.
func (s *Service) Policy() ReadPolicy {
	return s.policy
}

// Create stores a new session owned by owner with a fresh random id.
func (s *Service) Create(ctx context.Context, owner string, input CreateInput) (*model.Session, error) {
	const op = "consultation.create"
	if strings.TrimSpace(owner) == "" {
		return nil, apperr.New(apperr.KindUnauthorized, op, "caller identity required")
	}
	if err := s.validate.Struct(input.SelectedDoctor); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalid, op, "selectedDoctor is malformed", err)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, "generate session id", err)
	}

	session := &model.Session{
		SessionID:      id.String(),
		CreatedBy:      owner,
		Notes:          input.Notes,
		SelectedDoctor: input.SelectedDoctor,
		CreatedOn:      s.now(),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get returns the session visible to caller, or nil when there is none.
func (s *Service) Get(ctx context.Context, caller, sessionID string) (*model.Session, error) {
	if strings.TrimSpace(caller) == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "consultation.get", "caller identity required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, nil
	}

	session, err := s.store.FindBySessionID(ctx, sessionID)
	if err != nil || session == nil {
		return nil, err
	}
	if s.policy == ReadOwner && session.CreatedBy != caller {
		return nil, nil
	}
	return session, nil
}

// ListForOwner returns every session owned by owner, newest first.
func (s *Service) ListForOwner(ctx context.Context, owner string) ([]model.Session, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "consultation.list", "caller identity required")
	}
	return s.store.ListByOwner(ctx, owner)
}

// AttachReport overwrites the session report.
func (s *Service) AttachReport(ctx context.Context, sessionID string, report model.Report) error {
	return s.store.UpdateReport(ctx, sessionID, report)
}
