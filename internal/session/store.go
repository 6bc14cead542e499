package session

import (
	"sync"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/utils"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/validator"
)

// ResponseStore holds the in-memory answers and comments for the active
// tab. It is the authoritative copy for in-flight edits until the next
// successful save; on reload it is rebuilt from the durable store.
type ResponseStore struct {
	mu       sync.RWMutex
	answers  map[string]models.AnswerValue
	comments map[string]string
}

// NewResponseStore creates an empty store.
func NewResponseStore() *ResponseStore {
	return &ResponseStore{
		answers:  make(map[string]models.AnswerValue),
		comments: make(map[string]string),
	}
}

// Restore rebuilds the store from persisted responses. Rows whose answer
// value fails to decode are skipped; the durable store wins on conflict,
// so a fresh Restore replaces everything held locally.
func (s *ResponseStore) Restore(responses []*models.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.answers = make(map[string]models.AnswerValue, len(responses))
	s.comments = make(map[string]string)

	for _, response := range responses {
		value, err := models.AnswerValueFromJSON(response.AnswerValue)
		if err != nil || value.IsEmpty() {
			continue
		}
		s.answers[response.QuestionID] = value
		if response.Comment != nil && *response.Comment != "" {
			s.comments[response.QuestionID] = *response.Comment
		}
	}
}

// SetAnswer records the answer for a question, replacing any prior value.
func (s *ResponseStore) SetAnswer(questionID string, value models.AnswerValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value.IsEmpty() {
		delete(s.answers, questionID)
		return
	}
	s.answers[questionID] = value
}

// Answer returns the stored answer for a question.
func (s *ResponseStore) Answer(questionID string) (models.AnswerValue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.answers[questionID]
	return value, ok
}

// SetComment records an optional comment for a question. Updates that
// would exceed the 150-word limit are dropped whole, leaving the previous
// comment intact; the text is never truncated. Returns whether the update
// was applied.
func (s *ResponseStore) SetComment(questionID, text string) bool {
	if !utils.WithinWordLimit(text, validator.CommentWordLimit) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if text == "" {
		delete(s.comments, questionID)
		return true
	}
	s.comments[questionID] = text
	return true
}

// Comment returns the stored comment for a question.
func (s *ResponseStore) Comment(questionID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.comments[questionID]
}

// IsAnswered reports whether the question has a usable answer: a present,
// non-empty value for single-choice; a non-empty set for multi-select.
func (s *ResponseStore) IsAnswered(question *models.Question) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.answers[question.ID]
	if !ok {
		return false
	}
	return value.Answers(question.Type)
}

// AnsweredCount counts answered questions across the given sections.
func (s *ResponseStore) AnsweredCount(sections []models.Section) int {
	count := 0
	for i := range sections {
		for j := range sections[i].Questions {
			if s.IsAnswered(&sections[i].Questions[j]) {
				count++
			}
		}
	}
	return count
}

// Progress derives the completion percentage over all questions in the
// given (already filtered) sections. Recomputed reactively on every
// mutation by callers; this is the immediate-feedback value, with the
// server's percentage authoritative after each save completes.
func (s *ResponseStore) Progress(sections []models.Section) float64 {
	total := 0
	for i := range sections {
		total += len(sections[i].Questions)
	}
	if total == 0 {
		return 0
	}
	return float64(s.AnsweredCount(sections)) / float64(total) * 100
}

// Snapshot flattens the current store content into the save payload, in
// catalog order. Snapshots are complete replacements, not deltas: the
// server always applies the most recently arrived full snapshot.
func (s *ResponseStore) Snapshot(sections []models.Section) []models.ResponseUpsert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snapshot []models.ResponseUpsert
	for i := range sections {
		section := &sections[i]
		for j := range section.Questions {
			question := &section.Questions[j]
			value, ok := s.answers[question.ID]
			if !ok {
				continue
			}

			row := models.ResponseUpsert{
				SectionID:   section.ID,
				QuestionID:  question.ID,
				AnswerValue: value,
			}
			if comment, ok := s.comments[question.ID]; ok {
				row.Comment = &comment
			}
			snapshot = append(snapshot, row)
		}
	}
	return snapshot
}

// Len returns the number of answered questions held locally.
func (s *ResponseStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.answers)
}
