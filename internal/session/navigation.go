package session

import (
	"context"
	"fmt"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
)

// Position addresses a question inside the filtered catalog, or the
// terminal consultation step. While AtConsultation is false the indices
// always point at an existing section and question.
type Position struct {
	SectionIndex   int  `json:"section_index"`
	QuestionIndex  int  `json:"question_index"`
	AtConsultation bool `json:"at_consultation_step"`
}

// Navigator is the traversal state machine over the filtered
// section/question sequence. It has no opinion on answer-completeness;
// callers consult the ResponseStore before advancing. Transitions that
// leave a section flush a save first and block until it lands, so a
// catalog refetch can never race an unsaved answer.
type Navigator struct {
	sections []models.Section
	pos      Position
	manual   bool
	flush    func(context.Context) error
}

// NewNavigator creates a navigator over the filtered sections. flush is
// invoked (and awaited) before any section boundary is crossed; nil
// disables the save hook.
func NewNavigator(sections []models.Section, flush func(context.Context) error) *Navigator {
	return &Navigator{
		sections: sections,
		flush:    flush,
	}
}

// Position returns the current position.
func (n *Navigator) Position() Position {
	return n.pos
}

// Current returns the section and question under the cursor, or nils at
// the consultation step.
func (n *Navigator) Current() (*models.Section, *models.Question) {
	if n.pos.AtConsultation || len(n.sections) == 0 {
		return nil, nil
	}
	section := &n.sections[n.pos.SectionIndex]
	return section, &section.Questions[n.pos.QuestionIndex]
}

// ManuallyNavigated reports whether the user jumped via the sidebar,
// which disables automatic resume positioning for the rest of the session.
func (n *Navigator) ManuallyNavigated() bool {
	return n.manual
}

// Advance moves to the next question. Within a section only the question
// index moves; crossing into the next section, or into the consultation
// step after the last question, first flushes a save and blocks until it
// completes. Advancing while at the consultation step is a no-op
// (finalization is a distinct operation).
func (n *Navigator) Advance(ctx context.Context) error {
	if n.pos.AtConsultation || len(n.sections) == 0 {
		return nil
	}

	section := &n.sections[n.pos.SectionIndex]

	if n.pos.QuestionIndex < len(section.Questions)-1 {
		n.pos.QuestionIndex++
		return nil
	}

	if n.pos.SectionIndex < len(n.sections)-1 {
		if err := n.flushNow(ctx); err != nil {
			return err
		}
		n.pos.SectionIndex++
		n.pos.QuestionIndex = 0
		return nil
	}

	if err := n.flushNow(ctx); err != nil {
		return err
	}
	n.pos.AtConsultation = true
	return nil
}

// Retreat moves to the previous question. From the consultation step it
// returns to the last question of the last section. At the very first
// question it is a no-op; callers may map that to cancel.
func (n *Navigator) Retreat() {
	if len(n.sections) == 0 {
		return
	}

	if n.pos.AtConsultation {
		n.pos.AtConsultation = false
		n.pos.SectionIndex = len(n.sections) - 1
		n.pos.QuestionIndex = len(n.sections[n.pos.SectionIndex].Questions) - 1
		return
	}

	if n.pos.QuestionIndex > 0 {
		n.pos.QuestionIndex--
		return
	}

	if n.pos.SectionIndex > 0 {
		n.pos.SectionIndex--
		n.pos.QuestionIndex = len(n.sections[n.pos.SectionIndex].Questions) - 1
	}
}

// JumpToSection is the direct sidebar jump: it lands on the first
// question of the section, clears the consultation step, and marks the
// session as manually navigated so automatic resume positioning never
// runs again.
func (n *Navigator) JumpToSection(sectionIndex int) error {
	if sectionIndex < 0 || sectionIndex >= len(n.sections) {
		return fmt.Errorf("section index %d out of range [0,%d)", sectionIndex, len(n.sections))
	}

	n.pos = Position{SectionIndex: sectionIndex}
	n.manual = true
	return nil
}

// SetPosition places the cursor directly; used by the resume resolver.
func (n *Navigator) SetPosition(pos Position) {
	n.pos = pos
}

func (n *Navigator) flushNow(ctx context.Context) error {
	if n.flush == nil {
		return nil
	}
	return n.flush(ctx)
}
