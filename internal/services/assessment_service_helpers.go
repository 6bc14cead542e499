package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/repositories"
)

// ===== OWNERSHIP AND STATE GUARDS =====

func (s *assessmentService) getOwned(ctx context.Context, userID, assessmentID string) (*models.Assessment, error) {
	assessment, err := s.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if assessment.UserID != userID {
		return nil, NewPermissionError(userID, assessmentID, "assessment", "access", "not the owner")
	}
	return assessment, nil
}

func (s *assessmentService) getOwnedInProgress(ctx context.Context, userID, assessmentID string) (*models.Assessment, error) {
	assessment, err := s.getOwned(ctx, userID, assessmentID)
	if err != nil {
		return nil, err
	}

	switch assessment.Status {
	case models.StatusCompleted:
		return nil, ErrAssessmentAlreadyComplete
	case models.StatusExpired:
		return nil, ErrAssessmentExpired
	}
	if assessment.IsExpired(time.Now()) {
		return nil, ErrAssessmentExpired
	}
	return assessment, nil
}

// ===== SELECTION RESOLUTION =====

// resolveSelection turns a tier or explicit section list into the stored
// section id subset. Empty request means the full catalog, stored as an
// empty list.
func (s *assessmentService) resolveSelection(ctx context.Context, req *StartAssessmentRequest) ([]string, error) {
	if req.Tier != "" {
		tier, ok := models.AssessmentTiers[req.Tier]
		if !ok {
			return nil, ErrInvalidTier
		}
		return tier.Sections, nil
	}

	if len(req.SectionIDs) == 0 {
		return nil, nil
	}

	structure, err := s.catalog.GetStructure(ctx)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(structure.Sections))
	for _, id := range structure.SectionIDs() {
		known[id] = struct{}{}
	}
	for _, id := range req.SectionIDs {
		if _, ok := known[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSectionFilter, id)
		}
	}
	return req.SectionIDs, nil
}

// ===== SNAPSHOT VALIDATION =====

func (s *assessmentService) validateSnapshot(structure *models.CatalogStructure, snapshot []models.ResponseUpsert) error {
	for i := range snapshot {
		if err := s.validator.ValidateStruct(&snapshot[i]); err != nil {
			return fmt.Errorf("%w: row %d: %v", ErrSnapshotInvalid, i, err)
		}
	}

	questions := indexCatalogQuestions(structure)
	if err := s.validator.Answer().ValidateSnapshot(questions, snapshot); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}
	return nil
}

func indexCatalogQuestions(structure *models.CatalogStructure) map[string]*models.Question {
	questions := make(map[string]*models.Question, structure.TotalQuestions)
	for i := range structure.Sections {
		section := &structure.Sections[i]
		for j := range section.Questions {
			questions[section.Questions[j].ID] = &section.Questions[j]
		}
	}
	return questions
}

// computePercentage derives progress from the snapshot over the filtered
// catalog: answered questions over the catalog total.
func computePercentage(structure *models.CatalogStructure, snapshot []models.ResponseUpsert) float64 {
	if structure.TotalQuestions == 0 {
		return 0
	}

	questions := indexCatalogQuestions(structure)
	answered := 0
	for _, row := range snapshot {
		question, ok := questions[row.QuestionID]
		if !ok {
			continue
		}
		if row.AnswerValue.Answers(question.Type) {
			answered++
		}
	}
	return float64(answered) / float64(structure.TotalQuestions) * 100
}
