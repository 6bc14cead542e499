package services

import (
	"errors"
	"fmt"

	apperrors "github.com/ec-aadishbahati/echostor-security-posture-tool/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("resource conflict")

	// Assessment specific errors
	ErrAssessmentNotFound         = errors.New("assessment not found")
	ErrAssessmentAccessDenied     = errors.New("access denied to assessment")
	ErrAssessmentNotInProgress    = errors.New("assessment is not in progress")
	ErrAssessmentExpired          = errors.New("assessment has expired")
	ErrAssessmentAlreadyComplete  = errors.New("assessment is already completed")
	ErrAssessmentActiveExists     = errors.New("an assessment is already in progress")
	ErrAttemptLimitExceeded       = errors.New("maximum assessment attempts exceeded")
	ErrConsultationNotAnswered    = errors.New("consultation interest must be selected before completion")
	ErrConsultationDetailsInvalid = errors.New("consultation details must be between 10 and 300 words")

	// Catalog specific errors
	ErrCatalogEmpty          = errors.New("catalog has no sections")
	ErrSectionNotFound       = errors.New("catalog section not found")
	ErrQuestionNotFound      = errors.New("catalog question not found")
	ErrInvalidTier           = errors.New("unknown assessment tier")
	ErrInvalidSectionFilter  = errors.New("section filter references unknown sections")
	ErrSnapshotInvalid       = errors.New("response snapshot failed validation")
	ErrCatalogImportRejected = errors.New("catalog import rejected")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAssessmentNotFound) ||
		errors.Is(err, ErrSectionNotFound) ||
		errors.Is(err, ErrQuestionNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrAssessmentAccessDenied) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrSnapshotInvalid) ||
		errors.Is(err, ErrConsultationDetailsInvalid) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrAssessmentActiveExists) ||
		errors.Is(err, ErrAssessmentAlreadyComplete) ||
		errors.Is(err, ErrAttemptLimitExceeded)
}
