package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AssessmentStatus string

const (
	StatusInProgress AssessmentStatus = "in_progress"
	StatusCompleted  AssessmentStatus = "completed"
	StatusExpired    AssessmentStatus = "expired"
)

// Assessment is one run through the questionnaire by one user. The server
// copy is the durable source of truth; progress_percentage here may lag the
// locally computed value until the next save round-trips.
type Assessment struct {
	ID            string           `json:"id" gorm:"primaryKey;size:36"`
	UserID        string           `json:"user_id" gorm:"not null;size:36;index"`
	AttemptNumber int              `json:"attempt_number" gorm:"not null;default:1"`
	Status        AssessmentStatus `json:"status" gorm:"default:in_progress;index" validate:"omitempty,oneof=in_progress completed expired"`

	ProgressPercentage float64    `json:"progress_percentage" gorm:"type:decimal(5,2);default:0"`
	StartedAt          time.Time  `json:"started_at"`
	ExpiresAt          *time.Time `json:"expires_at"`
	LastSavedAt        *time.Time `json:"last_saved_at"`
	CompletedAt        *time.Time `json:"completed_at"`

	// Subset of catalog section ids in scope for this run; empty means the
	// full catalog.
	SelectedSectionIDs datatypes.JSONSlice[string] `json:"selected_section_ids"`

	ConsultationInterest *bool   `json:"consultation_interest"`
	ConsultationDetails  *string `json:"consultation_details" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Responses []Response `json:"-" gorm:"foreignKey:AssessmentID"`
}

// IsExpired reports whether the assessment's expiry deadline has passed.
func (a *Assessment) IsExpired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// ConsultationAnswer is the terminal-step answer gating completion.
// Details are optional; when Interest is true and Details is non-empty the
// text must fall within the 10-300 word band.
type ConsultationAnswer struct {
	Interest bool   `json:"consultation_interest"`
	Details  string `json:"consultation_details,omitempty" validate:"omitempty,consultation_details"`
}

func (Assessment) TableName() string {
	return "assessments"
}
