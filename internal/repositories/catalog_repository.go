package repositories

import (
	"context"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
)

// CatalogRepository interface for the immutable section/question tree
type CatalogRepository interface {
	// GetStructure returns the full catalog in display order with
	// questions and options preloaded.
	GetStructure(ctx context.Context) (*models.CatalogStructure, error)
	GetQuestion(ctx context.Context, id string) (*models.Question, error)
	CountQuestions(ctx context.Context) (int64, error)

	// ReplaceCatalog swaps the whole catalog in one transaction; used by
	// the workbook import.
	ReplaceCatalog(ctx context.Context, sections []models.Section) error
}
