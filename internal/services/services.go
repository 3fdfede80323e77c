package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/temcen/reelshelf/internal/catalog"
	"github.com/temcen/reelshelf/internal/config"
	"github.com/temcen/reelshelf/internal/database"
	"github.com/temcen/reelshelf/internal/messaging"
)

type Services struct {
	Auth                       *AuthService
	Health                     *HealthService
	RateLimit                  *RateLimitService
	MessageBus                 *messaging.MessageBus
	Catalog                    *catalog.Client
	RecommendationOrchestrator *RecommendationOrchestrator
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	authService := NewAuthService(cfg, logger, db.Redis.Hot)
	rateLimitService := NewRateLimitService(cfg, logger, db.Redis.Hot)

	messageBus, err := messaging.NewMessageBus(cfg, logger)
	if err != nil {
		return nil, err
	}

	responseCache := catalog.NewRedisCache(db.Redis.Warm, cfg.Catalog.CacheTTL, logger)
	catalogClient, err := catalog.NewClient(cfg.Catalog, responseCache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}

	healthService := NewHealthService(cfg, logger, db, func(context.Context) error {
		return catalogClient.Available()
	})

	var sampler Sampler = RandomSampler{}
	if cfg.Recommendation.DeterministicSampling {
		sampler = FirstNSampler{}
	}

	libraryStore := database.NewLibraryStore(db.PG, logger)
	profiler := NewTasteProfiler(catalogClient, cfg.Catalog.MaxConcurrency, logger)
	aggregator := NewCandidateAggregator(catalogClient, cfg.Recommendation.Discovery, cfg.Catalog.MaxConcurrency, logger)

	recommendationOrchestrator := NewRecommendationOrchestrator(
		libraryStore, sampler, profiler, aggregator, &cfg.Recommendation, logger,
	)

	return &Services{
		Auth:                       authService,
		Health:                     healthService,
		RateLimit:                  rateLimitService,
		MessageBus:                 messageBus,
		Catalog:                    catalogClient,
		RecommendationOrchestrator: recommendationOrchestrator,
	}, nil
}

func (s *Services) Close() error {
	return s.MessageBus.Close()
}
