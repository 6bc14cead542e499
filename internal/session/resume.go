package session

import (
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
)

// ResolveResumePoint finds where a returning user should land: the first
// unanswered question, scanning sections in catalog order and questions
// in order within each section. When every question is answered it
// returns the last question's position with the consultation step raised,
// so a fully answered assessment reopens at the terminal step.
//
// Callers gate this behind the run-at-most-once rules: restored responses
// must be non-empty, server-reported progress must be positive, and the
// user must not have navigated manually since load.
func ResolveResumePoint(sections []models.Section, store *ResponseStore) Position {
	for s := range sections {
		for q := range sections[s].Questions {
			if !store.IsAnswered(&sections[s].Questions[q]) {
				return Position{SectionIndex: s, QuestionIndex: q}
			}
		}
	}

	if len(sections) == 0 {
		return Position{}
	}

	last := len(sections) - 1
	return Position{
		SectionIndex:   last,
		QuestionIndex:  len(sections[last].Questions) - 1,
		AtConsultation: true,
	}
}
