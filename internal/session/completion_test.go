package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletionGate(t *testing.T) {
	yes, no := true, false

	t.Run("unanswered consultation blocks", func(t *testing.T) {
		assert.ErrorIs(t, CompletionBlocker(nil, ""), ErrConsultationRequired)
		assert.False(t, CanComplete(nil, ""))
	})

	t.Run("declining interest completes regardless of details", func(t *testing.T) {
		assert.NoError(t, CompletionBlocker(&no, ""))
		assert.True(t, CanComplete(&no, ""))
	})

	t.Run("interest with empty details completes", func(t *testing.T) {
		assert.NoError(t, CompletionBlocker(&yes, ""))
	})

	t.Run("details under the band block", func(t *testing.T) {
		assert.ErrorIs(t, CompletionBlocker(&yes, words(5)), ErrConsultationDetails)
	})

	t.Run("details inside the band complete", func(t *testing.T) {
		assert.NoError(t, CompletionBlocker(&yes, words(250)))
	})

	t.Run("band boundaries are inclusive", func(t *testing.T) {
		assert.NoError(t, CompletionBlocker(&yes, words(10)))
		assert.NoError(t, CompletionBlocker(&yes, words(300)))
		assert.ErrorIs(t, CompletionBlocker(&yes, words(9)), ErrConsultationDetails)
		assert.ErrorIs(t, CompletionBlocker(&yes, words(301)), ErrConsultationDetails)
	})
}
