package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// AnswerValue holds a single option value or a set of option values,
// depending on the question type. Exactly one of the two fields is set.
type AnswerValue struct {
	Option  string   `json:"option,omitempty"`
	Options []string `json:"options,omitempty"`
}

func SingleAnswer(option string) AnswerValue {
	return AnswerValue{Option: option}
}

func MultiAnswer(options ...string) AnswerValue {
	return AnswerValue{Options: options}
}

// IsEmpty reports whether the value would leave the question unanswered:
// no single option and no selected options.
func (v AnswerValue) IsEmpty() bool {
	return v.Option == "" && len(v.Options) == 0
}

// Answers reports whether the value satisfies the given question type.
func (v AnswerValue) Answers(t QuestionType) bool {
	switch t {
	case MultiSelect:
		return len(v.Options) > 0
	default:
		return v.Option != ""
	}
}

// ToJSON encodes the value for the responses table.
func (v AnswerValue) ToJSON() (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// AnswerValueFromJSON decodes a stored answer value.
func AnswerValueFromJSON(raw datatypes.JSON) (AnswerValue, error) {
	var v AnswerValue
	if len(raw) == 0 {
		return v, nil
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}

// Response is the persisted answer to one question, unique per
// (assessment_id, question_id).
type Response struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	AssessmentID string         `json:"assessment_id" gorm:"not null;size:36;uniqueIndex:idx_assessment_question"`
	SectionID    string         `json:"section_id" gorm:"not null;size:64;index"`
	QuestionID   string         `json:"question_id" gorm:"not null;size:64;uniqueIndex:idx_assessment_question"`
	AnswerValue  datatypes.JSON `json:"answer_value" gorm:"type:jsonb"`
	Comment      *string        `json:"comment" gorm:"type:text"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ResponseUpsert is one row of an autosave snapshot: the flat
// {section, question, answer, comment} shape pushed on every save.
type ResponseUpsert struct {
	SectionID   string      `json:"section_id" validate:"required"`
	QuestionID  string      `json:"question_id" validate:"required"`
	AnswerValue AnswerValue `json:"answer_value"`
	Comment     *string     `json:"comment,omitempty" validate:"omitempty,comment_words"`
}

func (Response) TableName() string {
	return "assessment_responses"
}
