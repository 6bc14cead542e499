package session

import "errors"

// ===== SESSION ERRORS =====

var (
	ErrSessionClosed        = errors.New("session is closed")
	ErrNotLoaded            = errors.New("session has no loaded assessment")
	ErrAssessmentCompleted  = errors.New("assessment is already completed")
	ErrUnknownQuestion      = errors.New("question not found in catalog")
	ErrSaveFailed           = errors.New("progress save failed")
	ErrConsultationRequired = errors.New("consultation interest must be selected")
	ErrConsultationDetails  = errors.New("consultation details must be between 10 and 300 words")
)

// IsRecoverable reports whether the error leaves the session usable: the
// local state is intact and the next scheduled or manual trigger retries
// with the latest data.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrSaveFailed)
}
