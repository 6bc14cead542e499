package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/services"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/sync"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/utils"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/validator"
)

type HandlerManager struct {
	assessmentHandler *AssessmentHandler
	catalogHandler    *CatalogHandler
}

func NewHandlerManager(
	assessmentService services.AssessmentService,
	catalogService services.CatalogService,
	importService services.CatalogImportService,
	v *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		assessmentHandler: NewAssessmentHandler(assessmentService, v, logger),
		catalogHandler:    NewCatalogHandler(catalogService, assessmentService, importService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "security-posture-tool",
		})
	})

	api := router.Group("/api")
	api.Use(UserIdentityMiddleware())
	{
		assessment := api.Group("/assessment")
		{
			// Catalog views
			assessment.GET("/structure", hm.catalogHandler.GetStructure)
			assessment.GET("/tiers", hm.catalogHandler.GetTiers)
			assessment.GET("/:id/filtered-structure", hm.catalogHandler.GetFilteredStructure)

			// Attempt lifecycle
			assessment.POST("/start", hm.assessmentHandler.StartAssessment)
			assessment.GET("/current", hm.assessmentHandler.GetCurrentAssessment)
			assessment.GET("/latest", hm.assessmentHandler.GetLatestAssessment)
			assessment.GET("/history", hm.assessmentHandler.GetAssessmentHistory)
			assessment.GET("/:id", hm.assessmentHandler.GetAssessment)
			assessment.GET("/:id/responses", hm.assessmentHandler.GetResponses)

			// Progress and completion
			assessment.POST("/:id/save-progress", hm.assessmentHandler.SaveProgress)
			assessment.POST("/:id/consultation", hm.assessmentHandler.SaveConsultation)
			assessment.POST("/:id/complete", hm.assessmentHandler.CompleteAssessment)

			// Results
			assessment.GET("/:id/export", hm.catalogHandler.ExportResults)
		}

		admin := api.Group("/admin")
		admin.Use(AdminMiddleware())
		{
			admin.POST("/catalog/import", hm.catalogHandler.ImportCatalog)
			admin.GET("/assessments/stats", hm.assessmentHandler.GetStats)
		}
	}
}

// UserIdentityMiddleware resolves the caller identity set by the upstream
// gateway. Authentication itself happens before this service. The tab id,
// when the client sends one, rides the request context so sync broadcasts
// carry their origin.
func UserIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
			})
			return
		}
		c.Set("user_id", userID)

		if tabID := c.GetHeader("X-Tab-ID"); tabID != "" {
			c.Request = c.Request.WithContext(sync.WithOriginTab(c.Request.Context(), tabID))
		}
		c.Next()
	}
}

// AdminMiddleware gates operator-only routes on the gateway role header.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-User-Role") != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Admin access required",
			})
			return
		}
		c.Next()
	}
}
