package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/repositories"
)

type ResponsePostgreSQL struct {
	db *gorm.DB
}

func NewResponsePostgreSQL(db *gorm.DB) repositories.ResponseRepository {
	return &ResponsePostgreSQL{db: db}
}

// ReplaceSnapshot applies a full snapshot in one transaction: every row in
// the snapshot is upserted on (assessment_id, question_id) and rows for
// questions absent from the snapshot are removed. Concurrent saves are
// safe; the last transaction to commit wins whole.
func (r *ResponsePostgreSQL) ReplaceSnapshot(ctx context.Context, assessmentID string, snapshot []models.ResponseUpsert) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keep := make([]string, 0, len(snapshot))

		for _, row := range snapshot {
			value, err := row.AnswerValue.ToJSON()
			if err != nil {
				return fmt.Errorf("failed to encode answer for question %s: %w", row.QuestionID, err)
			}

			response := models.Response{
				AssessmentID: assessmentID,
				SectionID:    row.SectionID,
				QuestionID:   row.QuestionID,
				AnswerValue:  value,
				Comment:      row.Comment,
			}

			err = tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "assessment_id"}, {Name: "question_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"section_id", "answer_value", "comment", "updated_at",
				}),
			}).Create(&response).Error
			if err != nil {
				return fmt.Errorf("failed to upsert response for question %s: %w", row.QuestionID, err)
			}

			keep = append(keep, row.QuestionID)
		}

		// Answers cleared locally disappear from the snapshot; drop them.
		query := tx.Where("assessment_id = ?", assessmentID)
		if len(keep) > 0 {
			query = query.Where("question_id NOT IN ?", keep)
		}
		if err := query.Delete(&models.Response{}).Error; err != nil {
			return fmt.Errorf("failed to prune removed responses: %w", err)
		}

		return nil
	})
}

// GetByAssessment returns all responses for an assessment
func (r *ResponsePostgreSQL) GetByAssessment(ctx context.Context, assessmentID string) ([]*models.Response, error) {
	var responses []*models.Response
	err := r.db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Find(&responses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}
	return responses, nil
}
