package services

import (
	"context"
	"errors"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/session"
)

// sessionBackend adapts the service layer to the taking engine's Backend
// surface for one user. The session never sees user ids; they are bound
// here.
type sessionBackend struct {
	assessments AssessmentService
	catalog     CatalogService
	userID      string
}

// NewSessionBackend binds the services to a user for use as a
// session.Backend.
func NewSessionBackend(assessments AssessmentService, catalog CatalogService, userID string) session.Backend {
	return &sessionBackend{
		assessments: assessments,
		catalog:     catalog,
		userID:      userID,
	}
}

func (b *sessionBackend) GetCurrentAssessment(ctx context.Context) (*models.Assessment, error) {
	return b.assessments.GetCurrent(ctx, b.userID)
}

func (b *sessionBackend) StartAssessment(ctx context.Context, selection session.StartSelection) (*models.Assessment, error) {
	assessment, err := b.assessments.Start(ctx, b.userID, &StartAssessmentRequest{
		Tier:       selection.Tier,
		SectionIDs: selection.SectionIDs,
	})

	// A concurrent start from another tab is not fatal: adopt the row it
	// created.
	if errors.Is(err, ErrAssessmentActiveExists) {
		if current, currentErr := b.assessments.GetCurrent(ctx, b.userID); currentErr == nil && current != nil {
			return current, nil
		}
	}
	return assessment, err
}

func (b *sessionBackend) GetCatalog(ctx context.Context, assessmentID string) (*models.CatalogStructure, error) {
	assessment, err := b.assessments.GetByID(ctx, b.userID, assessmentID)
	if err != nil {
		return nil, err
	}
	return b.catalog.GetStructureForAssessment(ctx, assessment)
}

func (b *sessionBackend) GetResponses(ctx context.Context, assessmentID string) ([]*models.Response, error) {
	return b.assessments.GetResponses(ctx, b.userID, assessmentID)
}

func (b *sessionBackend) SaveProgress(ctx context.Context, assessmentID string, responses []models.ResponseUpsert) (float64, error) {
	return b.assessments.SaveProgress(ctx, b.userID, assessmentID, responses)
}

func (b *sessionBackend) CompleteAssessment(ctx context.Context, assessmentID string) error {
	return b.assessments.Complete(ctx, b.userID, assessmentID)
}

func (b *sessionBackend) SaveConsultationAnswer(ctx context.Context, assessmentID string, answer models.ConsultationAnswer) error {
	return b.assessments.SaveConsultation(ctx, b.userID, assessmentID, answer)
}
