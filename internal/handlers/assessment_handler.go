package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/repositories"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/services"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/utils"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/validator"
)

type AssessmentHandler struct {
	BaseHandler
	assessmentService services.AssessmentService
	validator         *validator.Validator
}

func NewAssessmentHandler(
	assessmentService services.AssessmentService,
	v *validator.Validator,
	logger utils.Logger,
) *AssessmentHandler {
	return &AssessmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assessmentService: assessmentService,
		validator:         v,
	}
}

// SaveProgressRequest carries a full response snapshot; the server replaces
// the stored set, it never merges.
type SaveProgressRequest struct {
	Responses []models.ResponseUpsert `json:"responses"`
}

// SaveProgressResponse returns the server-computed progress.
type SaveProgressResponse struct {
	ProgressPercentage float64 `json:"progress_percentage"`
}

// StartAssessment starts a new attempt for the caller
// @Summary Start assessment
// @Description Starts a new assessment attempt scoped by tier or section ids
// @Tags assessment
// @Accept json
// @Produce json
// @Param selection body services.StartAssessmentRequest true "Tier or section selection"
// @Success 201 {object} models.Assessment
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /assessment/start [post]
func (h *AssessmentHandler) StartAssessment(c *gin.Context) {
	var req services.StartAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.RequireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Starting assessment", "tier", req.Tier, "sections", len(req.SectionIDs))

	assessment, err := h.assessmentService.Start(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assessment)
}

// GetCurrentAssessment returns the caller's in-progress attempt
// @Summary Get current assessment
// @Description Returns the in-progress assessment, or 404 when there is none
// @Tags assessment
// @Produce json
// @Success 200 {object} models.Assessment
// @Failure 404 {object} ErrorResponse
// @Router /assessment/current [get]
func (h *AssessmentHandler) GetCurrentAssessment(c *gin.Context) {
	userID := h.RequireUserID(c)
	if userID == "" {
		return
	}

	assessment, err := h.assessmentService.GetCurrent(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if assessment == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "No assessment in progress",
		})
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// GetLatestAssessment returns the caller's most recent attempt
// @Summary Get latest assessment
// @Tags assessment
// @Produce json
// @Success 200 {object} models.Assessment
// @Failure 404 {object} ErrorResponse
// @Router /assessment/latest [get]
func (h *AssessmentHandler) GetLatestAssessment(c *gin.Context) {
	userID := h.RequireUserID(c)
	if userID == "" {
		return
	}

	assessment, err := h.assessmentService.GetLatest(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// AssessmentHistoryResponse wraps a page of attempts with the total count.
type AssessmentHistoryResponse struct {
	Assessments []*models.Assessment `json:"assessments"`
	Total       int64                `json:"total"`
}

// GetAssessmentHistory lists the caller's attempts, paginated
// @Summary List assessment history
// @Tags assessment
// @Produce json
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Param sort_by query string false "Sort column"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} AssessmentHistoryResponse
// @Router /assessment/history [get]
func (h *AssessmentHandler) GetAssessmentHistory(c *gin.Context) {
	userID := h.RequireUserID(c)
	if userID == "" {
		return
	}

	filters := repositories.AssessmentFilters{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if status := c.Query("status"); status != "" {
		s := models.AssessmentStatus(status)
		filters.Status = &s
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		filters.Offset = offset
	}

	assessments, total, err := h.assessmentService.GetHistory(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, AssessmentHistoryResponse{
		Assessments: assessments,
		Total:       total,
	})
}

// GetAssessment returns one attempt by id
// @Summary Get assessment
// @Tags assessment
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} models.Assessment
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessment/{id} [get]
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	userID := h.RequireUserID(c)
	if userID == "" {
		return
	}

	assessment, err := h.assessmentService.GetByID(c.Request.Context(), userID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// GetResponses returns the stored snapshot for one attempt
// @Summary Get assessment responses
// @Tags assessment
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessment/{id}/responses [get]
func (h *AssessmentHandler) GetResponses(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	userID := h.RequireUserID(c)
	if userID == "" {
		return
	}

	responses, err := h.assessmentService.GetResponses(c.Request.Context(), userID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Responses retrieved",
		Data:    responses,
	})
}

// SaveProgress replaces the stored snapshot and returns the new percentage
// @Summary Save progress snapshot
// @Tags assessment
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param snapshot body SaveProgressRequest true "Full response snapshot"
// @Success 200 {object} SaveProgressResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /assessment/{id}/save-progress [post]
func (h *AssessmentHandler) SaveProgress(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req SaveProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.RequireUserID(c)
	if userID == "" {
		return
	}

	percentage, err := h.assessmentService.SaveProgress(c.Request.Context(), userID, id, req.Responses)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SaveProgressResponse{ProgressPercentage: percentage})
}

// SaveConsultation records the consultation interest answer
// @Summary Save consultation answer
// @Tags assessment
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param answer body models.ConsultationAnswer true "Consultation answer"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /assessment/{id}/consultation [post]
func (h *AssessmentHandler) SaveConsultation(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var answer models.ConsultationAnswer
	if err := c.ShouldBindJSON(&answer); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.RequireUserID(c)
	if userID == "" {
		return
	}

	if err := h.assessmentService.SaveConsultation(c.Request.Context(), userID, id, answer); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Consultation answer saved"})
}

// CompleteAssessment finalizes an attempt
// @Summary Complete assessment
// @Description Finalizes the attempt; requires the consultation answer
// @Tags assessment
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} SuccessResponse
// @Failure 422 {object} ErrorResponse
// @Router /assessment/{id}/complete [post]
func (h *AssessmentHandler) CompleteAssessment(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	userID := h.RequireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Completing assessment", "assessment_id", id)

	if err := h.assessmentService.Complete(c.Request.Context(), userID, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Assessment completed"})
}

// GetStats returns aggregate attempt statistics
// @Summary Get assessment stats
// @Tags admin
// @Produce json
// @Success 200 {object} repositories.AssessmentStats
// @Router /admin/assessments/stats [get]
func (h *AssessmentHandler) GetStats(c *gin.Context) {
	stats, err := h.assessmentService.GetStats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ===== ERROR MAPPING =====

func (h *AssessmentHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrAssessmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Assessment not found",
		})
	case errors.Is(err, services.ErrAssessmentAccessDenied):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied to assessment",
		})
	case errors.Is(err, services.ErrAssessmentActiveExists):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "An assessment is already in progress",
			Code:    "active_assessment_exists",
		})
	case errors.Is(err, services.ErrAttemptLimitExceeded):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Attempt limit exceeded",
			Code:    "attempt_limit_exceeded",
		})
	case errors.Is(err, services.ErrAssessmentAlreadyComplete):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Assessment is already completed",
		})
	case errors.Is(err, services.ErrAssessmentExpired):
		c.JSON(http.StatusGone, ErrorResponse{
			Message: "Assessment has expired",
		})
	case errors.Is(err, services.ErrAssessmentNotInProgress):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Assessment is not in progress",
		})
	case errors.Is(err, services.ErrConsultationNotAnswered):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Consultation interest must be answered before completing",
			Code:    "consultation_required",
		})
	case errors.Is(err, services.ErrConsultationDetailsInvalid):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Consultation details must be between 10 and 300 words",
			Code:    "consultation_details_invalid",
		})
	case errors.Is(err, services.ErrInvalidTier):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unknown assessment tier",
		})
	case errors.Is(err, services.ErrInvalidSectionFilter):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Section selection contains unknown sections",
		})
	case errors.Is(err, services.ErrSnapshotInvalid):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Snapshot failed validation",
			Details: err.Error(),
		})
	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
