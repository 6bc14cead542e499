package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/services"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/utils"
)

type CatalogHandler struct {
	BaseHandler
	catalogService    services.CatalogService
	assessmentService services.AssessmentService
	importService     services.CatalogImportService
}

func NewCatalogHandler(
	catalogService services.CatalogService,
	assessmentService services.AssessmentService,
	importService services.CatalogImportService,
	logger utils.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		BaseHandler:       NewBaseHandler(logger),
		catalogService:    catalogService,
		assessmentService: assessmentService,
		importService:     importService,
	}
}

// GetStructure returns the full section/question catalog
// @Summary Get catalog structure
// @Tags catalog
// @Produce json
// @Success 200 {object} models.CatalogStructure
// @Failure 500 {object} ErrorResponse
// @Router /assessment/structure [get]
func (h *CatalogHandler) GetStructure(c *gin.Context) {
	structure, err := h.catalogService.GetStructure(c.Request.Context())
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, structure)
}

// GetTiers returns the preset assessment scopes
// @Summary Get assessment tiers
// @Tags catalog
// @Produce json
// @Success 200 {object} map[string]models.TierInfo
// @Router /assessment/tiers [get]
func (h *CatalogHandler) GetTiers(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalogService.GetTiers())
}

// GetFilteredStructure returns the catalog scoped to one attempt's selection
// @Summary Get filtered catalog structure
// @Tags catalog
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} models.CatalogStructure
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessment/{id}/filtered-structure [get]
func (h *CatalogHandler) GetFilteredStructure(c *gin.Context) {
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
		h.handleCatalogError(c, err)
		return
	}

	structure, err := h.catalogService.GetStructureForAssessment(c.Request.Context(), assessment)
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, structure)
}

// ImportCatalog replaces the catalog from an uploaded workbook
// @Summary Import catalog
// @Description Replaces the question catalog from a CSV or xlsx upload
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Catalog workbook"
// @Success 200 {object} services.ImportResult
// @Failure 400 {object} ErrorResponse
// @Router /admin/catalog/import [post]
func (h *CatalogHandler) ImportCatalog(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing catalog file",
			Details: err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Failed to open uploaded file", err)
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing catalog", "filename", fileHeader.Filename, "size", fileHeader.Size)

	result, err := h.importService.ImportCatalogFromFile(c.Request.Context(), file, fileHeader.Filename)
	if err != nil {
		if errors.Is(err, services.ErrCatalogImportRejected) {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Message: "Catalog import rejected",
				Details: result,
			})
			return
		}
		h.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportResults streams one attempt's answers as an xlsx workbook
// @Summary Export assessment results
// @Tags assessment
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Assessment ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessment/{id}/export [get]
func (h *CatalogHandler) ExportResults(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	userID := h.RequireUserID(c)
	if userID == "" {
		return
	}

	data, err := h.importService.ExportResults(c.Request.Context(), userID, id)
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="assessment-`+id+`.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *CatalogHandler) handleCatalogError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrAssessmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Assessment not found",
		})
	case errors.Is(err, services.ErrCatalogEmpty):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Catalog is empty",
		})
	case errors.Is(err, services.ErrInvalidSectionFilter):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Section selection contains unknown sections",
		})
	default:
		h.LogError(c, err, "Unhandled catalog error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
