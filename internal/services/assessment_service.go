package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/repositories"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/validator"
)

// Defaults for the attempt lifecycle.
const (
	DefaultMaxAttempts = 3
	DefaultExpiryDays  = 30
)

type StartAssessmentRequest struct {
	Tier       string   `json:"tier,omitempty" validate:"omitempty,assessment_tier"`
	SectionIDs []string `json:"section_ids,omitempty"`
}

// AssessmentService owns the server side of the attempt lifecycle: start,
// progress snapshots, consultation, completion. Every operation is scoped
// to the calling user; touching another user's assessment is a permission
// error, never a lookup miss.
type AssessmentService interface {
	Start(ctx context.Context, userID string, req *StartAssessmentRequest) (*models.Assessment, error)
	GetByID(ctx context.Context, userID, assessmentID string) (*models.Assessment, error)

	// GetCurrent returns the user's in-progress assessment, (nil, nil)
	// when there is none. An expired row is transitioned and not returned.
	GetCurrent(ctx context.Context, userID string) (*models.Assessment, error)
	GetLatest(ctx context.Context, userID string) (*models.Assessment, error)

	// GetHistory lists the user's past and current assessments, newest
	// first by default, with the total count before pagination.
	GetHistory(ctx context.Context, userID string, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error)
	GetResponses(ctx context.Context, userID, assessmentID string) ([]*models.Response, error)

	// SaveProgress applies a full response snapshot and returns the
	// server-computed progress percentage.
	SaveProgress(ctx context.Context, userID, assessmentID string, snapshot []models.ResponseUpsert) (float64, error)
	SaveConsultation(ctx context.Context, userID, assessmentID string, answer models.ConsultationAnswer) error
	Complete(ctx context.Context, userID, assessmentID string) error

	GetStats(ctx context.Context) (*repositories.AssessmentStats, error)
}

type AssessmentServiceConfig struct {
	MaxAttempts int
	ExpiryDays  int
}

type assessmentService struct {
	assessments repositories.AssessmentRepository
	responses   repositories.ResponseRepository
	catalog     CatalogService
	logger      *slog.Logger
	ops         *ServiceLogger
	validator   *validator.Validator
	maxAttempts int
	expiryDays  int
}

func NewAssessmentService(
	assessments repositories.AssessmentRepository,
	responses repositories.ResponseRepository,
	catalog CatalogService,
	logger *slog.Logger,
	v *validator.Validator,
	cfg AssessmentServiceConfig,
) AssessmentService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.ExpiryDays <= 0 {
		cfg.ExpiryDays = DefaultExpiryDays
	}
	return &assessmentService{
		assessments: assessments,
		responses:   responses,
		catalog:     catalog,
		logger:      logger,
		ops:         NewServiceLogger(logger, LogConfig{Service: "assessment", Component: "lifecycle"}),
		validator:   v,
		maxAttempts: cfg.MaxAttempts,
		expiryDays:  cfg.ExpiryDays,
	}
}

// ===== LIFECYCLE OPERATIONS =====

func (s *assessmentService) Start(ctx context.Context, userID string, req *StartAssessmentRequest) (result *models.Assessment, err error) {
	op := s.ops.WithOperation(ctx, "start_assessment", userID)
	defer func() { op.LogResult(assessmentID(result), "assessment", err) }()

	s.logger.Info("Starting assessment", "user_id", userID, "tier", req.Tier)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	active, err := s.assessments.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active assessment: %w", err)
	}
	if active != nil && !active.IsExpired(time.Now()) {
		return nil, ErrAssessmentActiveExists
	}

	count, err := s.assessments.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	if int(count) >= s.maxAttempts {
		return nil, ErrAttemptLimitExceeded
	}

	sectionIDs, err := s.resolveSelection(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.AddDate(0, 0, s.expiryDays)
	assessment := &models.Assessment{
		ID:                 uuid.NewString(),
		UserID:             userID,
		AttemptNumber:      int(count) + 1,
		Status:             models.StatusInProgress,
		StartedAt:          now,
		ExpiresAt:          &expiresAt,
		SelectedSectionIDs: datatypes.NewJSONSlice(sectionIDs),
	}

	if err := s.assessments.Create(ctx, assessment); err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}

	s.logger.Info("Assessment started",
		"assessment_id", assessment.ID,
		"user_id", userID,
		"attempt_number", assessment.AttemptNumber,
		"sections", len(sectionIDs))
	return assessment, nil
}

func (s *assessmentService) GetByID(ctx context.Context, userID, assessmentID string) (*models.Assessment, error) {
	return s.getOwned(ctx, userID, assessmentID)
}

func (s *assessmentService) GetCurrent(ctx context.Context, userID string) (*models.Assessment, error) {
	assessment, err := s.assessments.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current assessment: %w", err)
	}
	if assessment == nil {
		return nil, nil
	}

	if assessment.IsExpired(time.Now()) {
		if _, err := s.assessments.ExpireOverdue(ctx, time.Now()); err != nil {
			s.logger.Warn("Failed to expire overdue assessments", "error", err)
		}
		return nil, nil
	}
	return assessment, nil
}

func (s *assessmentService) GetLatest(ctx context.Context, userID string) (*models.Assessment, error) {
	assessment, err := s.assessments.GetLatestByUser(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get latest assessment: %w", err)
	}
	return assessment, nil
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func (s *assessmentService) GetHistory(ctx context.Context, userID string, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultHistoryLimit
	}
	if filters.Limit > maxHistoryLimit {
		filters.Limit = maxHistoryLimit
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	assessments, total, err := s.assessments.ListByUser(ctx, userID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assessments: %w", err)
	}
	return assessments, total, nil
}

func (s *assessmentService) GetResponses(ctx context.Context, userID, assessmentID string) ([]*models.Response, error) {
	if _, err := s.getOwned(ctx, userID, assessmentID); err != nil {
		return nil, err
	}
	return s.responses.GetByAssessment(ctx, assessmentID)
}

// ===== PROGRESS AND COMPLETION =====

func (s *assessmentService) SaveProgress(ctx context.Context, userID, assessmentID string, snapshot []models.ResponseUpsert) (percentage float64, err error) {
	op := s.ops.WithOperation(ctx, "save_progress", userID)
	defer func() { op.LogResult(assessmentID, "assessment", err) }()

	assessment, err := s.getOwnedInProgress(ctx, userID, assessmentID)
	if err != nil {
		return 0, err
	}

	structure, err := s.catalog.GetStructureForAssessment(ctx, assessment)
	if err != nil {
		return 0, err
	}

	if err := s.validateSnapshot(structure, snapshot); err != nil {
		return 0, err
	}

	if err := s.responses.ReplaceSnapshot(ctx, assessmentID, snapshot); err != nil {
		return 0, fmt.Errorf("failed to persist snapshot: %w", err)
	}

	percentage = computePercentage(structure, snapshot)
	if err := s.assessments.UpdateProgress(ctx, assessmentID, percentage, time.Now()); err != nil {
		return 0, fmt.Errorf("failed to update progress: %w", err)
	}

	s.logger.Info("Progress snapshot saved",
		"assessment_id", assessmentID,
		"responses", len(snapshot),
		"progress_percentage", percentage)
	return percentage, nil
}

func (s *assessmentService) SaveConsultation(ctx context.Context, userID, assessmentID string, answer models.ConsultationAnswer) (err error) {
	op := s.ops.WithOperation(ctx, "save_consultation", userID)
	defer func() { op.LogResult(assessmentID, "assessment", err) }()

	if _, err := s.getOwnedInProgress(ctx, userID, assessmentID); err != nil {
		return err
	}

	if !answer.Interest {
		answer.Details = ""
	}
	if err := s.validator.Validate(&answer); err != nil {
		return err
	}

	if err := s.assessments.SaveConsultation(ctx, assessmentID, answer); err != nil {
		return fmt.Errorf("failed to save consultation answer: %w", err)
	}

	s.logger.Info("Consultation answer saved",
		"assessment_id", assessmentID,
		"interest", answer.Interest)
	return nil
}

func (s *assessmentService) Complete(ctx context.Context, userID, assessmentID string) (err error) {
	op := s.ops.WithOperation(ctx, "complete_assessment", userID)
	defer func() { op.LogResult(assessmentID, "assessment", err) }()

	assessment, err := s.getOwnedInProgress(ctx, userID, assessmentID)
	if err != nil {
		return err
	}

	if assessment.ConsultationInterest == nil {
		return ErrConsultationNotAnswered
	}
	if *assessment.ConsultationInterest && assessment.ConsultationDetails != nil {
		details := models.ConsultationAnswer{Interest: true, Details: *assessment.ConsultationDetails}
		if err := s.validator.ValidateStruct(&details); err != nil {
			return ErrConsultationDetailsInvalid
		}
	}

	if err := s.assessments.Complete(ctx, assessmentID, time.Now()); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAssessmentNotInProgress
		}
		return fmt.Errorf("failed to complete assessment: %w", err)
	}

	s.logger.Info("Assessment completed", "assessment_id", assessmentID, "user_id", userID)
	return nil
}

func (s *assessmentService) GetStats(ctx context.Context) (*repositories.AssessmentStats, error) {
	return s.assessments.GetStats(ctx)
}

func assessmentID(assessment *models.Assessment) string {
	if assessment == nil {
		return ""
	}
	return assessment.ID
}
