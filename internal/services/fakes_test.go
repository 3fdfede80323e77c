package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/temcen/reelshelf/internal/config"
	"github.com/temcen/reelshelf/pkg/models"
)

// fakeCatalog serves canned provider data keyed by dedup key. Missing entries behave like
// provider failures: nil details/credits and empty lists.
type fakeCatalog struct {
	details  map[string]*models.ItemDetails
	credits  map[string]*models.Credits
	recs     map[string][]models.CatalogItem
	similar  map[string][]models.CatalogItem
	discover map[models.PersonRole]map[int][]models.CatalogItem

	mu            sync.Mutex
	fetchedItems  map[string]int
	discoverCalls []discoverCall
}

type discoverCall struct {
	PersonID int
	IsMovie  bool
	Role     models.PersonRole
	GenreIDs []int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		details: make(map[string]*models.ItemDetails),
		credits: make(map[string]*models.Credits),
		recs:    make(map[string][]models.CatalogItem),
		similar: make(map[string][]models.CatalogItem),
		discover: map[models.PersonRole]map[int][]models.CatalogItem{
			models.RoleCrew: {},
			models.RoleCast: {},
		},
		fetchedItems: make(map[string]int),
	}
}

func (f *fakeCatalog) record(id string, isMovie bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchedItems[models.DedupKey(id, isMovie)]++
}

func (f *fakeCatalog) Recommendations(_ context.Context, id string, isMovie bool) []models.CatalogItem {
	f.record(id, isMovie)
	return f.recs[models.DedupKey(id, isMovie)]
}

func (f *fakeCatalog) Similar(_ context.Context, id string, isMovie bool) []models.CatalogItem {
	f.record(id, isMovie)
	return f.similar[models.DedupKey(id, isMovie)]
}

func (f *fakeCatalog) Details(_ context.Context, id string, isMovie bool) *models.ItemDetails {
	f.record(id, isMovie)
	return f.details[models.DedupKey(id, isMovie)]
}

func (f *fakeCatalog) Credits(_ context.Context, id string, isMovie bool) *models.Credits {
	f.record(id, isMovie)
	return f.credits[models.DedupKey(id, isMovie)]
}

func (f *fakeCatalog) DiscoverByPerson(_ context.Context, personID int, isMovie bool, role models.PersonRole, genreIDs []int) []models.CatalogItem {
	f.mu.Lock()
	f.discoverCalls = append(f.discoverCalls, discoverCall{
		PersonID: personID,
		IsMovie:  isMovie,
		Role:     role,
		GenreIDs: genreIDs,
	})
	f.mu.Unlock()
	return f.discover[role][personID]
}

func (f *fakeCatalog) genres(key string, ids ...int) {
	details := &models.ItemDetails{}
	for _, id := range ids {
		details.Genres = append(details.Genres, models.Genre{ID: id})
	}
	f.details[key] = details
}

type MockLibraryStore struct {
	mock.Mock
}

func (m *MockLibraryStore) RecommendationsEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLibraryStore) SourceCollections(ctx context.Context, userID uuid.UUID) ([]models.SourceCollection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SourceCollection), args.Error(1)
}

func (m *MockLibraryStore) LibraryItems(ctx context.Context, collectionIDs []uuid.UUID) ([]models.LibraryItem, error) {
	args := m.Called(ctx, collectionIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LibraryItem), args.Error(1)
}

func (m *MockLibraryStore) OwnedOrSharedItemKeys(ctx context.Context, userID uuid.UUID) (map[string]struct{}, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

func movie(id int, voteAverage, popularity float64, genreIDs ...int) models.CatalogItem {
	return models.CatalogItem{
		ID:          id,
		VoteAverage: voteAverage,
		Popularity:  popularity,
		GenreIDs:    genreIDs,
		MediaType:   models.MediaTypeMovie,
	}
}

func keySet(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func testDiscoveryConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{
		MinPersonCount:   2,
		MaxPeople:        2,
		TopGenres:        3,
		ResultsPerPerson: 3,
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}
