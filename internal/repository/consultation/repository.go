package consultation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	model "github.com/zhouzirui/medvoice/backend/internal/model/consultation"
	"github.com/zhouzirui/medvoice/backend/internal/model/doctor"
	"github.com/zhouzirui/medvoice/backend/pkg/apperr"
)

// Store persists consultation sessions.
type Store interface {
	Create(ctx context.Context, session *model.Session) error
	FindBySessionID(ctx context.Context, sessionID string) (*model.Session, error)
	ListByOwner(ctx context.Context, owner string) ([]model.Session, error)
	UpdateReport(ctx context.Context, sessionID string, report model.Report) error
}

// record is the table row. ID is the insertion sequence and the list order.
type record struct {
	ID             uint                             `gorm:"primaryKey;autoIncrement"`
	SessionID      string                           `gorm:"type:varchar(64);uniqueIndex;not null"`
	CreatedBy      string                           `gorm:"type:varchar(320);index;not null"`
	Notes          string                           `gorm:"type:text"`
	SelectedDoctor datatypes.JSONType[doctor.Doctor] `gorm:"not null"`
	Report         *datatypes.JSON
	CreatedOn      time.Time `gorm:"not null"`
}

func (record) TableName() string {
	return "session_chats"
}

// GormStore implements Store on top of gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the session table.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&record{})
}

func (s *GormStore) Create(ctx context.Context, session *model.Session) error {
	row, err := toRecord(session)
	if err != nil {
		return apperr.Storage("consultation.create", err)
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return apperr.Storage("consultation.create", err)
	}
	session.ID = row.ID
	return nil
}

// FindBySessionID returns nil, nil when no row matches.
func (s *GormStore) FindBySessionID(ctx context.Context, sessionID string) (*model.Session, error) {
	var row record
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("consultation.find", err)
	}

	session, err := toSession(&row)
	if err != nil {
		return nil, apperr.Storage("consultation.find", err)
	}
	return session, nil
}

// ListByOwner returns the owner's sessions newest first by insertion order.
func (s *GormStore) ListByOwner(ctx context.Context, owner string) ([]model.Session, error) {
	var rows []record
	err := s.db.WithContext(ctx).
		Where("created_by = ?", owner).
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Storage("consultation.list", err)
	}

	sessions := make([]model.Session, 0, len(rows))
	for i := range rows {
		session, err := toSession(&rows[i])
		if err != nil {
			return nil, apperr.Storage("consultation.list", err)
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

// UpdateReport overwrites the report column of a single session.
func (s *GormStore) UpdateReport(ctx context.Context, sessionID string, report model.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return apperr.Storage("consultation.update_report", err)
	}

	blob := datatypes.JSON(payload)
	result := s.db.WithContext(ctx).
		Model(&record{}).
		Where("session_id = ?", sessionID).
		Update("report", &blob)
	if result.Error != nil {
		return apperr.Storage("consultation.update_report", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "consultation.update_report", "session not found")
	}
	return nil
}

func toRecord(session *model.Session) (*record, error) {
	row := &record{
		SessionID:      session.SessionID,
		CreatedBy:      session.CreatedBy,
		Notes:          session.Notes,
		SelectedDoctor: datatypes.NewJSONType(session.SelectedDoctor),
		CreatedOn:      session.CreatedOn,
	}
	if session.Report != nil {
		payload, err := json.Marshal(session.Report)
		if err != nil {
			return nil, err
		}
		blob := datatypes.JSON(payload)
		row.Report = &blob
	}
	return row, nil
}

func toSession(row *record) (*model.Session, error) {
	session := &model.Session{
		ID:             row.ID,
		SessionID:      row.SessionID,
		CreatedBy:      row.CreatedBy,
		Notes:          row.Notes,
		SelectedDoctor: row.SelectedDoctor.Data(),
		CreatedOn:      row.CreatedOn,
	}

	report, err := decodeReport(row.Report)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", row.SessionID, err)
	}
	session.Report = report
	return session, nil
}

func decodeReport(blob *datatypes.JSON) (*model.Report, error) {
	if blob == nil || len(*blob) == 0 || string(*blob) == "null" {
		return nil, nil
	}
	var report model.Report
	if err := json.Unmarshal(*blob, &report); err != nil {
		return nil, fmt.Errorf("decode stored report: %w", err)
	}
	return &report, nil
}
