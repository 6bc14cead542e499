package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/validator"
)

const importHeader = "section_id,section_title,section_description,question_id,question_text,question_type,options,explanation"

func newImportFixture(t *testing.T) (*MockCatalogRepository, CatalogImportService) {
	t.Helper()

	catalogRepo := &MockCatalogRepository{}
	logger := serviceTestLogger()
	catalog := NewCatalogService(catalogRepo, nil, logger)
	service := NewCatalogImportService(catalogRepo, nil, catalog, logger, validator.New())
	return catalogRepo, service
}

func TestCatalogImport_FromCSV(t *testing.T) {
	catalogRepo, service := newImportFixture(t)
	catalogRepo.On("ReplaceCatalog", mock.Anything, mock.AnythingOfType("[]models.Section")).Return(nil)

	input := strings.Join([]string{
		importHeader,
		`section_1,Identity and Access,,s1_q1,Is MFA enforced?,single_choice,yes:Yes|no:No|partial:Partially,`,
		`section_1,Identity and Access,,s1_q2,Which directories are federated?,multi_select,ad:Active Directory|okta:Okta|other:Other,`,
		`section_2,Network Security,,s2_q1,Is the network segmented?,single_choice,yes:Yes|no:No,`,
	}, "\n")

	result, err := service.ImportCatalogFromCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 2, result.SectionCount)
	assert.Equal(t, 3, result.QuestionCount)
	assert.Zero(t, result.ErrorCount)

	sections := catalogRepo.Calls[len(catalogRepo.Calls)-1].Arguments.Get(1).([]models.Section)
	require.Len(t, sections, 2)
	assert.Equal(t, "section_1", sections[0].ID)
	assert.Equal(t, 1, sections[0].Order)
	require.Len(t, sections[0].Questions, 2)
	assert.Equal(t, models.MultiSelect, sections[0].Questions[1].Type)
	assert.Equal(t, "section_1", sections[0].Questions[1].SectionID)
	require.Len(t, sections[0].Questions[0].Options, 3)
	assert.Equal(t, "Partially", sections[0].Questions[0].Options[2].Label)
}

func TestCatalogImport_RejectsWholeFileOnRowErrors(t *testing.T) {
	catalogRepo, service := newImportFixture(t)

	input := strings.Join([]string{
		importHeader,
		`section_1,Identity,,s1_q1,Is MFA enforced?,single_choice,yes:Yes|no:No,`,
		`section_1,Identity,,s1_q2,Bad type row,likert,yes:Yes|no:No,`,
	}, "\n")

	result, err := service.ImportCatalogFromCSV(context.Background(), strings.NewReader(input))
	assert.ErrorIs(t, err, ErrCatalogImportRejected)

	require.NotNil(t, result)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Equal(t, "question_type", result.Errors[0].Column)

	catalogRepo.AssertNotCalled(t, "ReplaceCatalog", mock.Anything, mock.Anything)
}

func TestCatalogImport_HeaderValidation(t *testing.T) {
	_, service := newImportFixture(t)

	t.Run("missing required column", func(t *testing.T) {
		input := "section_id,question_id,question_text,question_type\ns1,q1,text,single_choice"
		_, err := service.ImportCatalogFromCSV(context.Background(), strings.NewReader(input))
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.Contains(t, err.Error(), "options")
	})

	t.Run("header only", func(t *testing.T) {
		_, err := service.ImportCatalogFromCSV(context.Background(), strings.NewReader(importHeader))
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})
}

func TestCatalogImport_OptionParsing(t *testing.T) {
	cases := []struct {
		name    string
		options string
		message string
	}{
		{"single option", "yes:Yes", "at least 2"},
		{"missing label", "yes:Yes|no", "value:Label"},
		{"duplicate value", "yes:Yes|yes:Also yes", "duplicate"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, service := newImportFixture(t)
			input := strings.Join([]string{
				importHeader,
				`section_1,Identity,,s1_q1,Is MFA enforced?,single_choice,` + tc.options + `,`,
			}, "\n")

			result, err := service.ImportCatalogFromCSV(context.Background(), strings.NewReader(input))
			assert.ErrorIs(t, err, ErrCatalogImportRejected)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, "options", result.Errors[0].Column)
			assert.Contains(t, result.Errors[0].Message, tc.message)
		})
	}
}
