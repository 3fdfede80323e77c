package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelshelf/internal/services"
	"github.com/temcen/reelshelf/internal/validation"
)

type Handlers struct {
	Health         *HealthHandler
	Recommendation *RecommendationHandler
}

func New(logger *logrus.Logger, services *services.Services, schemaValidator *validation.SchemaValidator) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(logger, services.Health),
		Recommendation: NewRecommendationHandler(
			services.RecommendationOrchestrator,
			services.MessageBus,
			schemaValidator,
			logger,
		),
	}
}
