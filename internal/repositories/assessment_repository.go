package repositories

import (
	"context"
	"time"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
)

// AssessmentRepository interface for assessment lifecycle operations
type AssessmentRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, assessment *models.Assessment) error
	GetByID(ctx context.Context, id string) (*models.Assessment, error)

	// Query operations
	// GetActiveByUser returns the user's in-progress assessment, nil when
	// there is none.
	GetActiveByUser(ctx context.Context, userID string) (*models.Assessment, error)
	GetLatestByUser(ctx context.Context, userID string) (*models.Assessment, error)
	ListByUser(ctx context.Context, userID string, filters AssessmentFilters) ([]*models.Assessment, int64, error)
	CountByUser(ctx context.Context, userID string) (int64, error)

	// Lifecycle updates
	UpdateProgress(ctx context.Context, id string, percentage float64, savedAt time.Time) error
	SaveConsultation(ctx context.Context, id string, answer models.ConsultationAnswer) error
	Complete(ctx context.Context, id string, completedAt time.Time) error

	// ExpireOverdue marks in-progress assessments past their deadline as
	// expired and returns how many rows changed.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	// Statistics
	GetStats(ctx context.Context) (*AssessmentStats, error)
}
