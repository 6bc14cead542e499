package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/session"
)

type fakeCatalogService struct {
	structure *models.CatalogStructure
}

func (f *fakeCatalogService) GetStructure(ctx context.Context) (*models.CatalogStructure, error) {
	return f.structure, nil
}

func (f *fakeCatalogService) GetStructureForAssessment(ctx context.Context, assessment *models.Assessment) (*models.CatalogStructure, error) {
	return f.structure, nil
}

func (f *fakeCatalogService) GetTiers() map[string]models.TierInfo {
	return models.AssessmentTiers
}

func (f *fakeCatalogService) InvalidateCache(ctx context.Context) error {
	return nil
}

func TestSessionBackend_AdoptsConcurrentStart(t *testing.T) {
	existing := &models.Assessment{ID: "a1", UserID: "user-1", Status: models.StatusInProgress}
	assessments := &fakeAssessmentService{
		start: func(ctx context.Context, userID string, req *StartAssessmentRequest) (*models.Assessment, error) {
			return nil, ErrAssessmentActiveExists
		},
		getCurrent: func(ctx context.Context, userID string) (*models.Assessment, error) {
			assert.Equal(t, "user-1", userID)
			return existing, nil
		},
	}

	backend := NewSessionBackend(assessments, &fakeCatalogService{}, "user-1")

	adopted, err := backend.StartAssessment(context.Background(), session.StartSelection{Tier: models.TierQuick})
	require.NoError(t, err)
	assert.Same(t, existing, adopted)
}

func TestSessionBackend_StartPropagatesOtherErrors(t *testing.T) {
	assessments := &fakeAssessmentService{
		start: func(ctx context.Context, userID string, req *StartAssessmentRequest) (*models.Assessment, error) {
			return nil, ErrAttemptLimitExceeded
		},
	}

	backend := NewSessionBackend(assessments, &fakeCatalogService{}, "user-1")

	_, err := backend.StartAssessment(context.Background(), session.StartSelection{})
	require.ErrorIs(t, err, ErrAttemptLimitExceeded)
}

func TestSessionBackend_BindsUser(t *testing.T) {
	structure := testStructure()
	assessments := &fakeAssessmentService{
		getByID: func(ctx context.Context, userID, assessmentID string) (*models.Assessment, error) {
			assert.Equal(t, "user-1", userID)
			return &models.Assessment{ID: assessmentID, UserID: userID}, nil
		},
		getResponses: func(ctx context.Context, userID, assessmentID string) ([]*models.Response, error) {
			assert.Equal(t, "user-1", userID)
			return nil, nil
		},
		saveProgress: func(ctx context.Context, userID, assessmentID string, snapshot []models.ResponseUpsert) (float64, error) {
			assert.Equal(t, "user-1", userID)
			assert.Equal(t, "a1", assessmentID)
			return 25.0, nil
		},
		saveConsultation: func(ctx context.Context, userID, assessmentID string, answer models.ConsultationAnswer) error {
			assert.Equal(t, "user-1", userID)
			assert.True(t, answer.Interest)
			return nil
		},
		complete: func(ctx context.Context, userID, assessmentID string) error {
			assert.Equal(t, "user-1", userID)
			return nil
		},
	}

	backend := NewSessionBackend(assessments, &fakeCatalogService{structure: structure}, "user-1")
	ctx := context.Background()

	catalog, err := backend.GetCatalog(ctx, "a1")
	require.NoError(t, err)
	assert.Same(t, structure, catalog)

	_, err = backend.GetResponses(ctx, "a1")
	require.NoError(t, err)

	percentage, err := backend.SaveProgress(ctx, "a1", []models.ResponseUpsert{snapshotRow("section_1", "s1_q1", "yes")})
	require.NoError(t, err)
	assert.InDelta(t, 25.0, percentage, 0.001)

	require.NoError(t, backend.SaveConsultationAnswer(ctx, "a1", models.ConsultationAnswer{Interest: true}))
	require.NoError(t, backend.CompleteAssessment(ctx, "a1"))
}
