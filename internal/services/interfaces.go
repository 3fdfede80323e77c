package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/temcen/reelshelf/pkg/models"
)

// CatalogClient is the external catalog provider. Implementations never return errors:
// failures surface as nil or empty results.
type CatalogClient interface {
	Recommendations(ctx context.Context, id string, isMovie bool) []models.CatalogItem
	Similar(ctx context.Context, id string, isMovie bool) []models.CatalogItem
	Details(ctx context.Context, id string, isMovie bool) *models.ItemDetails
	Credits(ctx context.Context, id string, isMovie bool) *models.Credits
	DiscoverByPerson(ctx context.Context, personID int, isMovie bool, role models.PersonRole, genreIDs []int) []models.CatalogItem
}

// LibraryStore reads the user's collections.
type LibraryStore interface {
	RecommendationsEnabled(ctx context.Context, userID uuid.UUID) (bool, error)
	SourceCollections(ctx context.Context, userID uuid.UUID) ([]models.SourceCollection, error)
	LibraryItems(ctx context.Context, collectionIDs []uuid.UUID) ([]models.LibraryItem, error)
	OwnedOrSharedItemKeys(ctx context.Context, userID uuid.UUID) (map[string]struct{}, error)
}

// Sampler picks at most n items from a library.
type Sampler interface {
	Sample(items []models.LibraryItem, n int) []models.LibraryItem
}

// RecommendationOrchestratorInterface defines the interface for recommendation generation
type RecommendationOrchestratorInterface interface {
	GenerateRecommendations(ctx context.Context, userID uuid.UUID, limit, page int) (*models.RecommendationResult, error)
}
