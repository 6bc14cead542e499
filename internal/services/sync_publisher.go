package services

import (
	"context"
	"log/slog"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/sync"
)

// broadcastingAssessmentService decorates an AssessmentService with sync
// bus broadcasts: every successful start, save, and completion is
// announced so other tabs and nodes can react. The origin tab id is taken
// from the request context when the caller supplied one.
type broadcastingAssessmentService struct {
	AssessmentService
	bus    *sync.Bus
	logger *slog.Logger
}

// NewBroadcastingAssessmentService wraps inner so lifecycle milestones are
// published on the sync bus. Broadcast failures are logged, never
// surfaced; the persisted state is already committed by then.
func NewBroadcastingAssessmentService(inner AssessmentService, bus *sync.Bus, logger *slog.Logger) AssessmentService {
	return &broadcastingAssessmentService{
		AssessmentService: inner,
		bus:               bus,
		logger:            logger,
	}
}

func (s *broadcastingAssessmentService) Start(ctx context.Context, userID string, req *StartAssessmentRequest) (*models.Assessment, error) {
	assessment, err := s.AssessmentService.Start(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	s.broadcast(ctx, sync.EventAssessmentStarted, assessment.ID, nil)
	return assessment, nil
}

func (s *broadcastingAssessmentService) SaveProgress(ctx context.Context, userID, assessmentID string, snapshot []models.ResponseUpsert) (float64, error) {
	percentage, err := s.AssessmentService.SaveProgress(ctx, userID, assessmentID, snapshot)
	if err != nil {
		return 0, err
	}
	s.broadcast(ctx, sync.EventProgressSaved, assessmentID, map[string]any{
		"progress_percentage": percentage,
	})
	return percentage, nil
}

func (s *broadcastingAssessmentService) Complete(ctx context.Context, userID, assessmentID string) error {
	if err := s.AssessmentService.Complete(ctx, userID, assessmentID); err != nil {
		return err
	}
	s.broadcast(ctx, sync.EventAssessmentCompleted, assessmentID, nil)
	return nil
}

func (s *broadcastingAssessmentService) broadcast(ctx context.Context, eventType sync.EventType, assessmentID string, payload map[string]any) {
	event := sync.Event{
		Type:         eventType,
		AssessmentID: assessmentID,
		OriginTabID:  sync.OriginTab(ctx),
		Payload:      payload,
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to broadcast sync event",
			"type", eventType,
			"assessment_id", assessmentID,
			"error", err)
	}
}
