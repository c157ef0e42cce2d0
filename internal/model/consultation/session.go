package consultation

import (
	"time"

	"github.com/zhouzirui/medvoice/backend/internal/model/doctor"
)

// Session is one consultation between a user and a chosen specialist.
// Report stays nil until the post-call report has been attached.
type Session struct {
	ID             uint          `json:"id"`
	SessionID      string        `json:"sessionId"`
	CreatedBy      string        `json:"createdBy"`
	Notes          string        `json:"notes"`
	SelectedDoctor doctor.Doctor `json:"selectedDoctor"`
	Report         *Report       `json:"report"`
	CreatedOn      time.Time     `json:"createdOn"`
}

// HasReport reports whether the post-call summary is attached.
func (s Session) HasReport() bool {
	return s.Report != nil
}

// Severity grades a condition.
type Severity string

const (
	SeverityMild     Severity = "Mild"
	SeverityModerate Severity = "Moderate"
	SeveritySevere   Severity = "Severe"
)

// Report is the structured post-call consultation summary.
type Report struct {
	SessionID            string   `json:"sessionId"`
	Agent                string   `json:"agent"`
	User                 string   `json:"user"`
	Timestamp            string   `json:"timestamp"`
	ChiefComplaint       string   `json:"chiefComplaint" validate:"required"`
	Summary              string   `json:"summary" validate:"required"`
	Symptoms             []string `json:"symptoms" validate:"required"`
	Duration             string   `json:"duration"`
	Severity             Severity `json:"severity" validate:"required,oneof=Mild Moderate Severe"`
	MedicationsMentioned []string `json:"medicationsMentioned" validate:"required"`
	Recommendations      []string `json:"recommendations" validate:"required"`
}
