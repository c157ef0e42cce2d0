package imaging

import "github.com/zhouzirui/medvoice/backend/internal/model/consultation"

// Analysis is the structured assessment of a health-related photo.
type Analysis struct {
	Condition       string                `json:"condition" validate:"required"`
	Severity        consultation.Severity `json:"severity" validate:"required,oneof=Mild Moderate Severe"`
	Symptoms        []string              `json:"symptoms" validate:"required"`
	PossibleCauses  []string              `json:"possibleCauses" validate:"required"`
	Recommendations []string              `json:"recommendations" validate:"required"`
	UrgencyLevel    string                `json:"urgencyLevel" validate:"required"`
	Disclaimer      string                `json:"disclaimer" validate:"required"`
}
