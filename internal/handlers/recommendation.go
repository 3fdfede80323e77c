package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelshelf/internal/middleware"
	"github.com/temcen/reelshelf/internal/services"
	"github.com/temcen/reelshelf/internal/validation"
	"github.com/temcen/reelshelf/pkg/models"
)

// EventPublisher receives a notification for every page served.
type EventPublisher interface {
	PublishRecommendationsServed(ctx context.Context, userID uuid.UUID, limit int, result *models.RecommendationResult) error
}

type RecommendationHandler struct {
	orchestrator    services.RecommendationOrchestratorInterface
	publisher       EventPublisher
	schemaValidator *validation.SchemaValidator
	validator       *validator.Validate
	logger          *logrus.Logger
}

// NewRecommendationHandler wires the handler. publisher and schemaValidator are optional; a
// non-nil schemaValidator checks every outgoing page and logs contract drift.
func NewRecommendationHandler(
	orchestrator services.RecommendationOrchestratorInterface,
	publisher EventPublisher,
	schemaValidator *validation.SchemaValidator,
	logger *logrus.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		orchestrator:    orchestrator,
		publisher:       publisher,
		schemaValidator: schemaValidator,
		validator:       validator.New(),
		logger:          logger,
	}
}

func (h *RecommendationHandler) Get(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "Invalid user ID format",
			},
		})
		return
	}

	// Only the token owner may read their recommendations
	if tokenUserID, _, ok := middleware.GetUserFromContext(c); ok && tokenUserID != userID {
		c.JSON(http.StatusForbidden, gin.H{
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Cannot access recommendations of another user",
			},
		})
		return
	}

	var req models.RecommendationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_QUERY",
				"message": "Invalid query parameters",
				"details": err.Error(),
			},
		})
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": "Request validation failed",
				"details": err.Error(),
			},
		})
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}

	result, err := h.orchestrator.GenerateRecommendations(c.Request.Context(), userID, req.Limit, req.Page)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"limit":   req.Limit,
			"page":    req.Page,
			"error":   err,
		}).Error("Failed to generate recommendations")

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "RECOMMENDATION_GENERATION_FAILED",
				"message": "Failed to generate recommendations",
			},
		})
		return
	}

	if h.schemaValidator != nil {
		if err := h.schemaValidator.Validate(validation.SchemaRecommendationResponse, result).Err(); err != nil {
			h.logger.WithError(err).WithField("user_id", userID).Warn("Recommendation response does not match schema")
		}
	}

	if h.publisher != nil {
		if err := h.publisher.PublishRecommendationsServed(c.Request.Context(), userID, result.Limit, result); err != nil {
			h.logger.WithError(err).WithField("user_id", userID).Warn("Failed to publish recommendations served event")
		}
	}

	c.JSON(http.StatusOK, result)
}
