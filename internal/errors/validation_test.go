package errors

import (
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("consultation_details", "must be between 10 and 300 words when provided", "too short")

	if err.Field != "consultation_details" {
		t.Errorf("Expected field to be 'consultation_details', got '%s'", err.Field)
	}

	expected := "validation error on field 'consultation_details': must be between 10 and 300 words when provided"
	if err.Error() != expected {
		t.Errorf("Expected error message to be '%s', got '%s'", expected, err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	if errs.Error() != "validation failed" {
		t.Errorf("Expected 'validation failed' for empty errors, got '%s'", errs.Error())
	}

	errs = append(errs, *NewValidationError("comment", "must not exceed 150 words", nil))
	expected := "validation failed: comment must not exceed 150 words"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for single error, got '%s'", expected, errs.Error())
	}

	errs = append(errs, *NewValidationError("tier", "must be a valid assessment tier (quick, standard, deep)", nil))
	expected = "validation failed: 2 field errors"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for multiple errors, got '%s'", expected, errs.Error())
	}
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("type", "must be a valid question type (single_choice, multi_select)", "question_type", "essay")

	if err.Rule != "question_type" {
		t.Errorf("Expected rule to be 'question_type', got '%s'", err.Rule)
	}

	if err.Field != "type" {
		t.Errorf("Expected field to be 'type', got '%s'", err.Field)
	}
}
