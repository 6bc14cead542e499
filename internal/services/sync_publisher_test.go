package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/repositories"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/sync"
)

// fakeAssessmentService lets tests plug in just the lifecycle methods
// they exercise.
type fakeAssessmentService struct {
	start            func(ctx context.Context, userID string, req *StartAssessmentRequest) (*models.Assessment, error)
	getByID          func(ctx context.Context, userID, assessmentID string) (*models.Assessment, error)
	getCurrent       func(ctx context.Context, userID string) (*models.Assessment, error)
	getResponses     func(ctx context.Context, userID, assessmentID string) ([]*models.Response, error)
	saveProgress     func(ctx context.Context, userID, assessmentID string, snapshot []models.ResponseUpsert) (float64, error)
	saveConsultation func(ctx context.Context, userID, assessmentID string, answer models.ConsultationAnswer) error
	complete         func(ctx context.Context, userID, assessmentID string) error
}

func (f *fakeAssessmentService) Start(ctx context.Context, userID string, req *StartAssessmentRequest) (*models.Assessment, error) {
	return f.start(ctx, userID, req)
}

func (f *fakeAssessmentService) GetByID(ctx context.Context, userID, assessmentID string) (*models.Assessment, error) {
	return f.getByID(ctx, userID, assessmentID)
}

func (f *fakeAssessmentService) GetCurrent(ctx context.Context, userID string) (*models.Assessment, error) {
	return f.getCurrent(ctx, userID)
}

func (f *fakeAssessmentService) GetLatest(ctx context.Context, userID string) (*models.Assessment, error) {
	return nil, ErrAssessmentNotFound
}

func (f *fakeAssessmentService) GetHistory(ctx context.Context, userID string, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	return nil, 0, nil
}

func (f *fakeAssessmentService) GetResponses(ctx context.Context, userID, assessmentID string) ([]*models.Response, error) {
	return f.getResponses(ctx, userID, assessmentID)
}

func (f *fakeAssessmentService) SaveProgress(ctx context.Context, userID, assessmentID string, snapshot []models.ResponseUpsert) (float64, error) {
	return f.saveProgress(ctx, userID, assessmentID, snapshot)
}

func (f *fakeAssessmentService) SaveConsultation(ctx context.Context, userID, assessmentID string, answer models.ConsultationAnswer) error {
	return f.saveConsultation(ctx, userID, assessmentID, answer)
}

func (f *fakeAssessmentService) Complete(ctx context.Context, userID, assessmentID string) error {
	return f.complete(ctx, userID, assessmentID)
}

func (f *fakeAssessmentService) GetStats(ctx context.Context) (*repositories.AssessmentStats, error) {
	return &repositories.AssessmentStats{}, nil
}

type broadcastFixture struct {
	service AssessmentService
	events  chan sync.Event
}

func newBroadcastFixture(t *testing.T, inner AssessmentService) *broadcastFixture {
	t.Helper()

	logger := serviceTestLogger()
	bus := sync.NewBus(sync.NewGoChannelTransport(logger), logger)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Close() })

	events := make(chan sync.Event, 4)
	bus.Subscribe(sync.NewTabID(), func(event sync.Event) { events <- event })

	return &broadcastFixture{
		service: NewBroadcastingAssessmentService(inner, bus, logger),
		events:  events,
	}
}

func (f *broadcastFixture) waitEvent(t *testing.T) sync.Event {
	t.Helper()
	select {
	case event := <-f.events:
		return event
	case <-time.After(time.Second):
		t.Fatal("no sync event received")
		return sync.Event{}
	}
}

func (f *broadcastFixture) assertNoEvent(t *testing.T) {
	t.Helper()
	select {
	case event := <-f.events:
		t.Fatalf("unexpected sync event %s", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastingService_SaveProgressPublishes(t *testing.T) {
	inner := &fakeAssessmentService{
		saveProgress: func(ctx context.Context, userID, assessmentID string, snapshot []models.ResponseUpsert) (float64, error) {
			return 42.5, nil
		},
	}
	f := newBroadcastFixture(t, inner)

	ctx := sync.WithOriginTab(context.Background(), "tab-origin")
	percentage, err := f.service.SaveProgress(ctx, "user-1", "a1", nil)
	require.NoError(t, err)
	assert.InDelta(t, 42.5, percentage, 0.001)

	event := f.waitEvent(t)
	assert.Equal(t, sync.EventProgressSaved, event.Type)
	assert.Equal(t, "a1", event.AssessmentID)
	assert.Equal(t, "tab-origin", event.OriginTabID)
	assert.InDelta(t, 42.5, event.Payload["progress_percentage"].(float64), 0.001)
}

func TestBroadcastingService_StartPublishes(t *testing.T) {
	inner := &fakeAssessmentService{
		start: func(ctx context.Context, userID string, req *StartAssessmentRequest) (*models.Assessment, error) {
			return &models.Assessment{ID: "a1", UserID: userID}, nil
		},
	}
	f := newBroadcastFixture(t, inner)

	assessment, err := f.service.Start(context.Background(), "user-1", &StartAssessmentRequest{})
	require.NoError(t, err)
	require.Equal(t, "a1", assessment.ID)

	event := f.waitEvent(t)
	assert.Equal(t, sync.EventAssessmentStarted, event.Type)
	assert.Equal(t, "a1", event.AssessmentID)
	assert.Empty(t, event.OriginTabID)
}

func TestBroadcastingService_CompletePublishes(t *testing.T) {
	inner := &fakeAssessmentService{
		complete: func(ctx context.Context, userID, assessmentID string) error {
			return nil
		},
	}
	f := newBroadcastFixture(t, inner)

	require.NoError(t, f.service.Complete(context.Background(), "user-1", "a1"))

	event := f.waitEvent(t)
	assert.Equal(t, sync.EventAssessmentCompleted, event.Type)
	assert.Equal(t, "a1", event.AssessmentID)
}

func TestBroadcastingService_NoEventOnFailure(t *testing.T) {
	inner := &fakeAssessmentService{
		saveProgress: func(ctx context.Context, userID, assessmentID string, snapshot []models.ResponseUpsert) (float64, error) {
			return 0, ErrAssessmentAlreadyComplete
		},
	}
	f := newBroadcastFixture(t, inner)

	_, err := f.service.SaveProgress(context.Background(), "user-1", "a1", nil)
	require.ErrorIs(t, err, ErrAssessmentAlreadyComplete)

	f.assertNoEvent(t)
}
