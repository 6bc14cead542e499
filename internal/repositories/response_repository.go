package repositories

import (
	"context"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
)

// ResponseRepository interface for answer snapshot persistence
type ResponseRepository interface {
	// ReplaceSnapshot applies a full snapshot for the assessment: upserts
	// every row and removes rows absent from the snapshot, in one
	// transaction. Snapshots are replacements, not deltas; the most
	// recently arrived snapshot wins.
	ReplaceSnapshot(ctx context.Context, assessmentID string, snapshot []models.ResponseUpsert) error

	GetByAssessment(ctx context.Context, assessmentID string) ([]*models.Response, error)
}
