package repositories

import (
	"time"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type AssessmentFilters struct {
	Status    *models.AssessmentStatus `json:"status"`
	DateFrom  *time.Time               `json:"date_from"`
	DateTo    *time.Time               `json:"date_to"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
	SortBy    string                   `json:"sort_by"`    // "started_at", "completed_at"
	SortOrder string                   `json:"sort_order"` // "asc", "desc"
}

// ===== SHARED STATISTICS STRUCTS =====

type AssessmentStats struct {
	TotalAssessments     int     `json:"total_assessments"`
	CompletedAssessments int     `json:"completed_assessments"`
	ExpiredAssessments   int     `json:"expired_assessments"`
	AverageProgress      float64 `json:"average_progress"`
	ConsultationRequests int     `json:"consultation_requests"`
}
