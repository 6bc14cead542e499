package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigator_AdvanceWithinSection(t *testing.T) {
	flushes := 0
	nav := NewNavigator(testSections(3), func(context.Context) error {
		flushes++
		return nil
	})

	require.NoError(t, nav.Advance(context.Background()))
	require.NoError(t, nav.Advance(context.Background()))

	assert.Equal(t, Position{SectionIndex: 0, QuestionIndex: 2}, nav.Position())
	assert.Equal(t, 0, flushes, "moves within a section must not save")
}

func TestNavigator_SectionTransitionSavesExactlyOnce(t *testing.T) {
	flushes := 0
	nav := NewNavigator(testSections(2, 2), func(context.Context) error {
		flushes++
		return nil
	})

	require.NoError(t, nav.Advance(context.Background()))
	require.NoError(t, nav.Advance(context.Background()))

	assert.Equal(t, Position{SectionIndex: 1, QuestionIndex: 0}, nav.Position())
	assert.Equal(t, 1, flushes, "crossing a section boundary saves exactly once")
}

func TestNavigator_FailedFlushBlocksTransition(t *testing.T) {
	flushErr := errors.New("save rejected")
	nav := NewNavigator(testSections(1, 1), func(context.Context) error {
		return flushErr
	})

	err := nav.Advance(context.Background())
	assert.ErrorIs(t, err, flushErr)
	assert.Equal(t, Position{}, nav.Position(), "a failed save must not move the cursor")
}

func TestNavigator_AdvanceIntoConsultation(t *testing.T) {
	flushes := 0
	nav := NewNavigator(testSections(1), func(context.Context) error {
		flushes++
		return nil
	})

	require.NoError(t, nav.Advance(context.Background()))
	assert.True(t, nav.Position().AtConsultation)
	assert.Equal(t, 1, flushes)

	section, question := nav.Current()
	assert.Nil(t, section)
	assert.Nil(t, question)

	t.Run("advancing at the consultation step is a no-op", func(t *testing.T) {
		require.NoError(t, nav.Advance(context.Background()))
		assert.True(t, nav.Position().AtConsultation)
		assert.Equal(t, 1, flushes)
	})
}

func TestNavigator_Retreat(t *testing.T) {
	nav := NewNavigator(testSections(2, 3), nil)

	t.Run("first question is a no-op", func(t *testing.T) {
		nav.Retreat()
		assert.Equal(t, Position{}, nav.Position())
	})

	t.Run("section boundary lands on previous last question", func(t *testing.T) {
		nav.SetPosition(Position{SectionIndex: 1, QuestionIndex: 0})
		nav.Retreat()
		assert.Equal(t, Position{SectionIndex: 0, QuestionIndex: 1}, nav.Position())
	})

	t.Run("consultation returns to the last question", func(t *testing.T) {
		nav.SetPosition(Position{SectionIndex: 1, QuestionIndex: 2, AtConsultation: true})
		nav.Retreat()
		assert.Equal(t, Position{SectionIndex: 1, QuestionIndex: 2}, nav.Position())
	})
}

func TestNavigator_JumpToSection(t *testing.T) {
	nav := NewNavigator(testSections(2, 2, 2), nil)
	assert.False(t, nav.ManuallyNavigated())

	require.NoError(t, nav.JumpToSection(2))
	assert.Equal(t, Position{SectionIndex: 2, QuestionIndex: 0}, nav.Position())
	assert.True(t, nav.ManuallyNavigated())

	t.Run("out of range is rejected", func(t *testing.T) {
		assert.Error(t, nav.JumpToSection(3))
		assert.Error(t, nav.JumpToSection(-1))
	})

	t.Run("jump clears the consultation step", func(t *testing.T) {
		nav.SetPosition(Position{SectionIndex: 2, QuestionIndex: 1, AtConsultation: true})
		require.NoError(t, nav.JumpToSection(0))
		assert.False(t, nav.Position().AtConsultation)
	})
}
