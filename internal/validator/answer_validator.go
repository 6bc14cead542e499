package validator

import (
	"fmt"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
)

// AnswerValidator checks answer values against their question definitions
type AnswerValidator struct{}

// NewAnswerValidator creates a new answer validator
func NewAnswerValidator() *AnswerValidator {
	return &AnswerValidator{}
}

// ValidateValue validates an answer value against the question it answers:
// the shape must match the question type and every selected value must be
// one of the question's options.
func (v *AnswerValidator) ValidateValue(question *models.Question, value models.AnswerValue) error {
	if value.IsEmpty() {
		return fmt.Errorf("answer for question %s is empty", question.ID)
	}

	switch question.Type {
	case models.SingleChoice:
		if value.Option == "" {
			return fmt.Errorf("question %s expects a single option value", question.ID)
		}
		if len(value.Options) > 0 {
			return fmt.Errorf("question %s does not accept multiple values", question.ID)
		}
		if !v.hasOption(question, value.Option) {
			return fmt.Errorf("question %s has no option %q", question.ID, value.Option)
		}

	case models.MultiSelect:
		if len(value.Options) == 0 {
			return fmt.Errorf("question %s expects at least one selected option", question.ID)
		}
		seen := make(map[string]struct{}, len(value.Options))
		for _, option := range value.Options {
			if _, dup := seen[option]; dup {
				return fmt.Errorf("question %s has duplicate selection %q", question.ID, option)
			}
			seen[option] = struct{}{}
			if !v.hasOption(question, option) {
				return fmt.Errorf("question %s has no option %q", question.ID, option)
			}
		}

	default:
		return fmt.Errorf("unsupported question type: %s", question.Type)
	}

	return nil
}

// ValidateSnapshot validates every row of a save snapshot against the
// catalog index. Unknown question ids are rejected before they reach the
// persistence layer.
func (v *AnswerValidator) ValidateSnapshot(questions map[string]*models.Question, snapshot []models.ResponseUpsert) error {
	for i, row := range snapshot {
		question, ok := questions[row.QuestionID]
		if !ok {
			return fmt.Errorf("snapshot row %d references unknown question %s", i, row.QuestionID)
		}
		if question.SectionID != row.SectionID {
			return fmt.Errorf("snapshot row %d places question %s in section %s, expected %s",
				i, row.QuestionID, row.SectionID, question.SectionID)
		}
		if err := v.ValidateValue(question, row.AnswerValue); err != nil {
			return err
		}
	}
	return nil
}

func (v *AnswerValidator) hasOption(question *models.Question, value string) bool {
	for _, option := range question.Options {
		if option.Value == value {
			return true
		}
	}
	return false
}
