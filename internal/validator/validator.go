package validator

import (
	"reflect"
	"strings"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/utils"
	"github.com/go-playground/validator/v10"
)

// Word limits enforced at the input boundary. Comments are capped; when a
// consultation answer carries details, the text must land inside the band.
const (
	CommentWordLimit     = 150
	ConsultationMinWords = 10
	ConsultationMaxWords = 300
)

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator *validator.Validate
	answerValidator *AnswerValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
		answerValidator: NewAnswerValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate performs complete validation and normalizes field errors
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if ve := ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

// Answer returns the answer validator
func (v *Validator) Answer() *AnswerValidator {
	return v.answerValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("assessment_tier", validateAssessmentTier)
	validate.RegisterValidation("comment_words", validateCommentWords)
	validate.RegisterValidation("consultation_details", validateConsultationDetails)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuestionType(fl validator.FieldLevel) bool {
	validTypes := []models.QuestionType{
		models.SingleChoice,
		models.MultiSelect,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func validateAssessmentTier(fl validator.FieldLevel) bool {
	return models.IsValidTier(fl.Field().String())
}

func validateCommentWords(fl validator.FieldLevel) bool {
	return utils.WithinWordLimit(fl.Field().String(), CommentWordLimit)
}

// Consultation details are optional; a non-empty value must fall inside
// the word band. Empty strings pass (interest without details is allowed).
func validateConsultationDetails(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if strings.TrimSpace(value) == "" {
		return true
	}
	return utils.WithinWordBand(value, ConsultationMinWords, ConsultationMaxWords)
}
