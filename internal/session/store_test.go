package session

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
)

// testSections builds a catalog slice with the given question counts per
// section. Questions are single-choice with options yes/no/partial.
func testSections(counts ...int) []models.Section {
	sections := make([]models.Section, len(counts))
	for i, count := range counts {
		sectionID := fmt.Sprintf("section_%d", i+1)
		section := models.Section{
			ID:    sectionID,
			Title: fmt.Sprintf("Section %d", i+1),
			Order: i + 1,
		}
		for j := 0; j < count; j++ {
			questionID := fmt.Sprintf("%s_q%d", sectionID, j+1)
			question := models.Question{
				ID:        questionID,
				SectionID: sectionID,
				Text:      fmt.Sprintf("Question %d of %s", j+1, sectionID),
				Type:      models.SingleChoice,
				Order:     j + 1,
				Options: []models.Option{
					{QuestionID: questionID, Value: "yes", Label: "Yes", Order: 1},
					{QuestionID: questionID, Value: "no", Label: "No", Order: 2},
					{QuestionID: questionID, Value: "partial", Label: "Partially", Order: 3},
				},
			}
			section.Questions = append(section.Questions, question)
		}
		sections[i] = section
	}
	return sections
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

func TestResponseStore_Progress(t *testing.T) {
	sections := testSections(3, 3)
	store := NewResponseStore()

	assert.Equal(t, 0.0, store.Progress(sections))

	store.SetAnswer("section_1_q1", models.SingleAnswer("yes"))
	store.SetAnswer("section_1_q2", models.SingleAnswer("no"))
	store.SetAnswer("section_2_q1", models.SingleAnswer("partial"))

	assert.InDelta(t, 50.0, store.Progress(sections), 0.001)

	t.Run("clearing an answer lowers progress", func(t *testing.T) {
		store.SetAnswer("section_2_q1", models.AnswerValue{})
		assert.InDelta(t, 100.0/3.0, store.Progress(sections), 0.001)
	})

	t.Run("empty catalog yields zero", func(t *testing.T) {
		assert.Equal(t, 0.0, store.Progress(nil))
	})
}

func TestResponseStore_IsAnswered(t *testing.T) {
	sections := testSections(1)
	question := &sections[0].Questions[0]
	multi := &models.Question{ID: "multi_q", Type: models.MultiSelect}
	store := NewResponseStore()

	assert.False(t, store.IsAnswered(question))

	store.SetAnswer(question.ID, models.SingleAnswer("yes"))
	assert.True(t, store.IsAnswered(question))

	t.Run("empty multi-select selection does not count", func(t *testing.T) {
		store.SetAnswer(multi.ID, models.MultiAnswer())
		assert.False(t, store.IsAnswered(multi))

		store.SetAnswer(multi.ID, models.MultiAnswer("yes", "no"))
		assert.True(t, store.IsAnswered(multi))
	})
}

func TestResponseStore_SetComment(t *testing.T) {
	store := NewResponseStore()

	assert.True(t, store.SetComment("q1", "short note"))
	assert.Equal(t, "short note", store.Comment("q1"))

	t.Run("over-limit update is dropped whole", func(t *testing.T) {
		applied := store.SetComment("q1", words(151))
		assert.False(t, applied)
		assert.Equal(t, "short note", store.Comment("q1"))
	})

	t.Run("limit boundary is accepted", func(t *testing.T) {
		assert.True(t, store.SetComment("q1", words(150)))
	})

	t.Run("empty text clears the comment", func(t *testing.T) {
		assert.True(t, store.SetComment("q1", ""))
		assert.Equal(t, "", store.Comment("q1"))
	})
}

func TestResponseStore_Snapshot(t *testing.T) {
	sections := testSections(2, 2)
	store := NewResponseStore()

	store.SetAnswer("section_2_q1", models.SingleAnswer("no"))
	store.SetAnswer("section_1_q2", models.SingleAnswer("yes"))
	store.SetComment("section_1_q2", "needs review")

	snapshot := store.Snapshot(sections)
	require.Len(t, snapshot, 2)

	// Snapshot order follows the catalog, not insertion order.
	assert.Equal(t, "section_1_q2", snapshot[0].QuestionID)
	assert.Equal(t, "section_1", snapshot[0].SectionID)
	require.NotNil(t, snapshot[0].Comment)
	assert.Equal(t, "needs review", *snapshot[0].Comment)

	assert.Equal(t, "section_2_q1", snapshot[1].QuestionID)
	assert.Nil(t, snapshot[1].Comment)
}

func TestResponseStore_Restore(t *testing.T) {
	answered, err := models.SingleAnswer("yes").ToJSON()
	require.NoError(t, err)
	comment := "carried over"

	responses := []*models.Response{
		{QuestionID: "section_1_q1", AnswerValue: answered, Comment: &comment},
		{QuestionID: "section_1_q2", AnswerValue: datatypes.JSON(`not json`)},
	}

	store := NewResponseStore()
	store.SetAnswer("stale", models.SingleAnswer("no"))
	store.Restore(responses)

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, "carried over", store.Comment("section_1_q1"))

	_, ok := store.Answer("stale")
	assert.False(t, ok, "restore should replace local state")
}
