package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelshelf/pkg/models"
)

// Querier is the subset of *pgxpool.Pool the store needs; pgxmock satisfies it in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// LibraryStore reads the collection data the recommender is driven by. It never writes.
type LibraryStore struct {
	db     Querier
	logger *logrus.Logger
}

func NewLibraryStore(db Querier, logger *logrus.Logger) *LibraryStore {
	return &LibraryStore{
		db:     db,
		logger: logger,
	}
}

// RecommendationsEnabled reports the user's opt-in flag. A missing user is not an error.
func (s *LibraryStore) RecommendationsEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `SELECT recommendations_enabled FROM users WHERE id = $1`

	var enabled bool
	err := s.db.QueryRow(ctx, query, userID).Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load recommendation flag: %w", err)
	}
	return enabled, nil
}

// SourceCollections returns the collections the user designated as taste signals,
// in the order they were designated.
func (s *LibraryStore) SourceCollections(ctx context.Context, userID uuid.UUID) ([]models.SourceCollection, error) {
	query := `
		SELECT c.id, c.name
		FROM recommendation_sources rs
		JOIN collections c ON c.id = rs.collection_id
		WHERE rs.user_id = $1
		ORDER BY rs.created_at, c.id`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query source collections: %w", err)
	}
	defer rows.Close()

	collections := make([]models.SourceCollection, 0)
	for rows.Next() {
		var c models.SourceCollection
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan source collection: %w", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate source collections: %w", err)
	}

	return collections, nil
}

// LibraryItems returns the distinct items of the given collections, oldest first.
// Stored ids that do not parse are skipped.
func (s *LibraryStore) LibraryItems(ctx context.Context, collectionIDs []uuid.UUID) ([]models.LibraryItem, error) {
	if len(collectionIDs) == 0 {
		return []models.LibraryItem{}, nil
	}

	query := `
		SELECT media_id
		FROM collection_items
		WHERE collection_id = ANY($1)
		GROUP BY media_id
		ORDER BY MIN(added_at), media_id`

	rows, err := s.db.Query(ctx, query, collectionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query library items: %w", err)
	}
	defer rows.Close()

	items := make([]models.LibraryItem, 0)
	for rows.Next() {
		var stored string
		if err := rows.Scan(&stored); err != nil {
			return nil, fmt.Errorf("failed to scan library item: %w", err)
		}

		item, err := models.ParseLibraryItem(stored)
		if err != nil {
			s.logger.WithField("media_id", stored).Debug("Skipping unparseable library item")
			continue
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate library items: %w", err)
	}

	return items, nil
}

// OwnedOrSharedItemKeys returns the dedup keys of everything in any collection the user owns
// or collaborates on.
func (s *LibraryStore) OwnedOrSharedItemKeys(ctx context.Context, userID uuid.UUID) (map[string]struct{}, error) {
	query := `
		SELECT DISTINCT ci.media_id
		FROM collection_items ci
		JOIN collections c ON c.id = ci.collection_id
		LEFT JOIN collection_collaborators cc
			ON cc.collection_id = c.id AND cc.user_id = $1
		WHERE c.owner_id = $1 OR cc.user_id IS NOT NULL`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query owned items: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var stored string
		if err := rows.Scan(&stored); err != nil {
			return nil, fmt.Errorf("failed to scan owned item: %w", err)
		}

		item, err := models.ParseLibraryItem(stored)
		if err != nil {
			continue
		}
		keys[item.DedupKey()] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate owned items: %w", err)
	}

	return keys, nil
}
