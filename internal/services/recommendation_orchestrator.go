package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelshelf/internal/config"
	"github.com/temcen/reelshelf/internal/metrics"
	"github.com/temcen/reelshelf/pkg/models"
)

const defaultLimit = 20

// RecommendationOrchestrator runs the recommendation pipeline for one user at a time.
// All profile and candidate state lives for a single call.
type RecommendationOrchestrator struct {
	store      LibraryStore
	sampler    Sampler
	profiler   *TasteProfiler
	aggregator *CandidateAggregator
	config     *config.RecommendationConfig
	logger     *logrus.Logger
}

func NewRecommendationOrchestrator(
	store LibraryStore,
	sampler Sampler,
	profiler *TasteProfiler,
	aggregator *CandidateAggregator,
	config *config.RecommendationConfig,
	logger *logrus.Logger,
) *RecommendationOrchestrator {
	return &RecommendationOrchestrator{
		store:      store,
		sampler:    sampler,
		profiler:   profiler,
		aggregator: aggregator,
		config:     config,
		logger:     logger,
	}
}

// GenerateRecommendations returns one page of recommendations. Only storage failures are
// returned as errors; catalog failures just leave fewer candidates.
func (o *RecommendationOrchestrator) GenerateRecommendations(
	ctx context.Context,
	userID uuid.UUID,
	limit, page int,
) (*models.RecommendationResult, error) {
	startTime := time.Now()
	defer func() {
		metrics.RecommendationLatency.Observe(time.Since(startTime).Seconds())
	}()

	limit = o.normalizeLimit(limit)

	enabled, err := o.store.RecommendationsEnabled(ctx, userID)
	if err != nil {
		metrics.RecommendationRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to check recommendation eligibility: %w", err)
	}
	if !enabled {
		metrics.RecommendationRequests.WithLabelValues("disabled").Inc()
		return emptyResult(page, limit, nil, 0), nil
	}

	collections, err := o.store.SourceCollections(ctx, userID)
	if err != nil {
		metrics.RecommendationRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load source collections: %w", err)
	}
	if len(collections) == 0 {
		metrics.RecommendationRequests.WithLabelValues("no_sources").Inc()
		return emptyResult(page, limit, collections, 0), nil
	}

	collectionIDs := make([]uuid.UUID, 0, len(collections))
	for _, c := range collections {
		collectionIDs = append(collectionIDs, c.ID)
	}

	items, err := o.store.LibraryItems(ctx, collectionIDs)
	if err != nil {
		metrics.RecommendationRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load library items: %w", err)
	}
	if len(items) == 0 {
		metrics.RecommendationRequests.WithLabelValues("empty_library").Inc()
		return emptyResult(page, limit, collections, 0), nil
	}

	// Loaded once; every pass filters against the same snapshot.
	excluded, err := o.store.OwnedOrSharedItemKeys(ctx, userID)
	if err != nil {
		metrics.RecommendationRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load owned items: %w", err)
	}

	sample := o.sampler.Sample(items, o.config.SampleSize)
	profile := o.profiler.Build(ctx, sample)
	candidates := o.aggregator.Aggregate(ctx, profile, excluded)
	ranked := Rank(candidates, limit, page)

	metrics.RecommendationRequests.WithLabelValues("served").Inc()

	o.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"source_items":  len(items),
		"sampled_items": len(sample),
		"excluded":      len(excluded),
		"candidates":    ranked.TotalResults,
		"page":          page,
		"limit":         limit,
		"returned":      len(ranked.Items),
		"latency":       time.Since(startTime),
	}).Info("Recommendations generated")

	return &models.RecommendationResult{
		Results:           ranked.Items,
		SourceCollections: collections,
		TotalSourceItems:  len(items),
		Page:              page,
		Limit:             limit,
		TotalPages:        ranked.TotalPages,
		TotalResults:      ranked.TotalResults,
	}, nil
}

// normalizeLimit only fills in a missing limit. Upper bounds are enforced by the HTTP layer;
// clamping here would make total_pages disagree with the limit the caller asked for.
func (o *RecommendationOrchestrator) normalizeLimit(limit int) int {
	if limit > 0 {
		return limit
	}
	if o.config.DefaultLimit > 0 {
		return o.config.DefaultLimit
	}
	return defaultLimit
}

func emptyResult(page, limit int, collections []models.SourceCollection, totalSourceItems int) *models.RecommendationResult {
	result := models.EmptyRecommendationResult(page, collections, totalSourceItems)
	result.Limit = limit
	return result
}
