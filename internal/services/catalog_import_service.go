package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/repositories"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/validator"
)

// CatalogImportService handles catalog workbook imports and results export
type CatalogImportService interface {
	// Import operations
	ImportCatalogFromFile(ctx context.Context, file multipart.File, filename string) (*ImportResult, error)
	ImportCatalogFromCSV(ctx context.Context, reader io.Reader) (*ImportResult, error)
	ImportCatalogFromExcel(ctx context.Context, reader io.Reader) (*ImportResult, error)

	// Export operations
	ExportResults(ctx context.Context, userID, assessmentID string) ([]byte, error)
}

type catalogImportService struct {
	catalogRepo repositories.CatalogRepository
	assessments AssessmentService
	catalog     CatalogService
	logger      *slog.Logger
	validator   *validator.Validator
}

func NewCatalogImportService(
	catalogRepo repositories.CatalogRepository,
	assessments AssessmentService,
	catalog CatalogService,
	logger *slog.Logger,
	v *validator.Validator,
) CatalogImportService {
	return &catalogImportService{
		catalogRepo: catalogRepo,
		assessments: assessments,
		catalog:     catalog,
		logger:      logger,
		validator:   v,
	}
}

// ===== IMPORT OPERATIONS =====

type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value"`
}

type ImportResult struct {
	TotalRows     int              `json:"total_rows"`
	ProcessedRows int              `json:"processed_rows"`
	SectionCount  int              `json:"section_count"`
	QuestionCount int              `json:"question_count"`
	ErrorCount    int              `json:"error_count"`
	Errors        []ImportRowError `json:"errors,omitempty"`
}

// Workbook columns, one row per question. Options are packed as
// "value:Label|value:Label".
var catalogColumns = []string{
	"section_id", "section_title", "section_description",
	"question_id", "question_text", "question_type", "options", "explanation",
}

func (s *catalogImportService) ImportCatalogFromFile(ctx context.Context, file multipart.File, filename string) (*ImportResult, error) {
	s.logger.Info("Starting catalog import", "filename", filename)

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return s.ImportCatalogFromCSV(ctx, file)
	case ".xlsx", ".xls":
		return s.ImportCatalogFromExcel(ctx, file)
	default:
		return nil, NewValidationError("file", "unsupported file format", ext)
	}
}

func (s *catalogImportService) ImportCatalogFromCSV(ctx context.Context, reader io.Reader) (*ImportResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return s.importRows(ctx, records)
}

func (s *catalogImportService) ImportCatalogFromExcel(ctx context.Context, reader io.Reader) (*ImportResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewValidationError("file", "Excel file has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	return s.importRows(ctx, rows)
}

func (s *catalogImportService) importRows(ctx context.Context, rows [][]string) (*ImportResult, error) {
	if len(rows) < 2 {
		return nil, NewValidationError("file", "workbook must have a header row and at least one data row", len(rows))
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range []string{"section_id", "question_id", "question_text", "question_type", "options"} {
		if _, exists := headerMap[col]; !exists {
			return nil, NewValidationError("headers", fmt.Sprintf("missing required column: %s", col), col)
		}
	}

	result := &ImportResult{TotalRows: len(rows) - 1}

	// Sections in first-seen order; questions appended in row order.
	var order []string
	sections := make(map[string]*models.Section)

	for rowIndex, record := range rows[1:] {
		rowNum := rowIndex + 2
		result.ProcessedRows++

		section, question, rowErrors := s.parseRow(record, headerMap, rowNum)
		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorCount++
			continue
		}

		existing, ok := sections[section.ID]
		if !ok {
			section.Order = len(order) + 1
			sections[section.ID] = section
			order = append(order, section.ID)
			existing = section
		}
		question.SectionID = existing.ID
		question.Order = len(existing.Questions) + 1
		existing.Questions = append(existing.Questions, *question)
		result.QuestionCount++
	}

	if result.ErrorCount > 0 {
		return result, fmt.Errorf("%w: %d rows failed validation", ErrCatalogImportRejected, result.ErrorCount)
	}
	if len(order) == 0 {
		return result, ErrCatalogEmpty
	}

	ordered := make([]models.Section, 0, len(order))
	for _, id := range order {
		ordered = append(ordered, *sections[id])
	}

	if err := s.catalogRepo.ReplaceCatalog(ctx, ordered); err != nil {
		return result, fmt.Errorf("failed to replace catalog: %w", err)
	}
	if err := s.catalog.InvalidateCache(ctx); err != nil {
		s.logger.Warn("Failed to invalidate catalog cache after import", "error", err)
	}

	result.SectionCount = len(ordered)
	s.logger.Info("Catalog import completed",
		"sections", result.SectionCount,
		"questions", result.QuestionCount,
		"total_rows", result.TotalRows)
	return result, nil
}

// ===== EXPORT OPERATIONS =====

// ExportResults renders one assessment's answers to a workbook: a summary
// sheet and a responses sheet.
func (s *catalogImportService) ExportResults(ctx context.Context, userID, assessmentID string) ([]byte, error) {
	assessment, err := s.assessments.GetByID(ctx, userID, assessmentID)
	if err != nil {
		return nil, err
	}

	responses, err := s.assessments.GetResponses(ctx, userID, assessmentID)
	if err != nil {
		return nil, err
	}

	structure, err := s.catalog.GetStructureForAssessment(ctx, assessment)
	if err != nil {
		return nil, err
	}
	questions := indexCatalogQuestions(structure)

	answers := make(map[string]*models.Response, len(responses))
	for _, response := range responses {
		answers[response.QuestionID] = response
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeSummarySheet(f, assessment); err != nil {
		return nil, err
	}
	if err := s.writeResponsesSheet(f, structure, questions, answers); err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *catalogImportService) writeSummarySheet(f *excelize.File, assessment *models.Assessment) error {
	const sheet = "Summary"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	f.SetActiveSheet(index)

	rows := [][]interface{}{
		{"Assessment ID", assessment.ID},
		{"Attempt", assessment.AttemptNumber},
		{"Status", string(assessment.Status)},
		{"Progress %", assessment.ProgressPercentage},
		{"Started At", assessment.StartedAt.Format("2006-01-02 15:04:05")},
	}
	if assessment.CompletedAt != nil {
		rows = append(rows, []interface{}{"Completed At", assessment.CompletedAt.Format("2006-01-02 15:04:05")})
	}
	if assessment.ConsultationInterest != nil {
		rows = append(rows, []interface{}{"Consultation Interest", *assessment.ConsultationInterest})
		if assessment.ConsultationDetails != nil {
			rows = append(rows, []interface{}{"Consultation Details", *assessment.ConsultationDetails})
		}
	}

	for i, row := range rows {
		for j, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+j, i+1)
			f.SetCellValue(sheet, cell, value)
		}
	}
	return nil
}

func (s *catalogImportService) writeResponsesSheet(
	f *excelize.File,
	structure *models.CatalogStructure,
	questions map[string]*models.Question,
	answers map[string]*models.Response,
) error {
	const sheet = "Responses"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create responses sheet: %w", err)
	}

	headers := []string{"Section", "Question", "Answer", "Comment"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheet, cell, header)
	}

	rowNum := 2
	for i := range structure.Sections {
		section := &structure.Sections[i]
		for j := range section.Questions {
			question := &section.Questions[j]

			row := []interface{}{section.Title, question.Text, "", ""}
			if response, ok := answers[question.ID]; ok {
				value, err := models.AnswerValueFromJSON(response.AnswerValue)
				if err == nil {
					row[2] = formatAnswer(questions[question.ID], value)
				}
				if response.Comment != nil {
					row[3] = *response.Comment
				}
			}

			for colIndex, value := range row {
				cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowNum)
				f.SetCellValue(sheet, cell, value)
			}
			rowNum++
		}
	}
	return nil
}

// ===== HELPER FUNCTIONS =====

func (s *catalogImportService) parseRow(record []string, headerMap map[string]int, rowNum int) (*models.Section, *models.Question, []ImportRowError) {
	var errors []ImportRowError

	getColumn := func(name string) string {
		if index, exists := headerMap[name]; exists && index < len(record) {
			return strings.TrimSpace(record[index])
		}
		return ""
	}
	requireColumn := func(name string) string {
		value := getColumn(name)
		if value == "" {
			errors = append(errors, ImportRowError{
				Row: rowNum, Column: name, Message: "required field", Value: value,
			})
		}
		return value
	}

	sectionID := requireColumn("section_id")
	questionID := requireColumn("question_id")
	questionText := requireColumn("question_text")
	questionTypeStr := requireColumn("question_type")
	optionsStr := requireColumn("options")
	if len(errors) > 0 {
		return nil, nil, errors
	}

	questionType := models.QuestionType(strings.ToLower(questionTypeStr))
	switch questionType {
	case models.SingleChoice, models.MultiSelect:
	default:
		errors = append(errors, ImportRowError{
			Row: rowNum, Column: "question_type",
			Message: "must be single_choice or multi_select", Value: questionTypeStr,
		})
		return nil, nil, errors
	}

	options, optionErrors := parseOptions(optionsStr, rowNum)
	if len(optionErrors) > 0 {
		return nil, nil, optionErrors
	}

	section := &models.Section{
		ID:          sectionID,
		Title:       getColumn("section_title"),
		Description: getColumn("section_description"),
	}
	if section.Title == "" {
		section.Title = sectionID
	}

	question := &models.Question{
		ID:          questionID,
		Text:        questionText,
		Type:        questionType,
		Weight:      1,
		Explanation: getColumn("explanation"),
		Options:     options,
	}

	if err := s.validator.ValidateStruct(question); err != nil {
		errors = append(errors, ImportRowError{
			Row: rowNum, Column: "question", Message: err.Error(), Value: questionID,
		})
		return nil, nil, errors
	}

	return section, question, nil
}

// parseOptions unpacks "value:Label|value:Label" into option rows.
func parseOptions(packed string, rowNum int) ([]models.Option, []ImportRowError) {
	var errors []ImportRowError
	parts := strings.Split(packed, "|")

	options := make([]models.Option, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for _, part := range parts {
		value, label, found := strings.Cut(strings.TrimSpace(part), ":")
		value = strings.TrimSpace(value)
		label = strings.TrimSpace(label)
		if !found || value == "" || label == "" {
			errors = append(errors, ImportRowError{
				Row: rowNum, Column: "options",
				Message: "options must be value:Label pairs separated by |", Value: part,
			})
			return nil, errors
		}
		if _, dup := seen[value]; dup {
			errors = append(errors, ImportRowError{
				Row: rowNum, Column: "options", Message: "duplicate option value", Value: value,
			})
			return nil, errors
		}
		seen[value] = struct{}{}

		options = append(options, models.Option{
			Value: value,
			Label: label,
			Order: len(options) + 1,
		})
	}

	if len(options) < 2 {
		errors = append(errors, ImportRowError{
			Row: rowNum, Column: "options", Message: "must have at least 2 options", Value: packed,
		})
		return nil, errors
	}
	return options, nil
}

func formatAnswer(question *models.Question, value models.AnswerValue) string {
	labels := make(map[string]string)
	if question != nil {
		for _, option := range question.Options {
			labels[option.Value] = option.Label
		}
	}
	display := func(v string) string {
		if label, ok := labels[v]; ok {
			return label
		}
		return v
	}

	if len(value.Options) > 0 {
		parts := make([]string, len(value.Options))
		for i, v := range value.Options {
			parts[i] = display(v)
		}
		return strings.Join(parts, ", ")
	}
	return display(value.Option)
}
