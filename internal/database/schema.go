package database

import (
	"context"
	"fmt"
)

// schemaStatements is the minimal layout the library store reads. The collection manager
// owns these tables; EnsureSchema exists for local development and integration setups.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id uuid PRIMARY KEY,
		recommendations_enabled boolean NOT NULL DEFAULT true,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS collections (
		id uuid PRIMARY KEY,
		owner_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS collection_collaborators (
		collection_id uuid NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
		user_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (collection_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS collection_items (
		collection_id uuid NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
		media_id text NOT NULL,
		added_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (collection_id, media_id)
	)`,
	`CREATE TABLE IF NOT EXISTS recommendation_sources (
		user_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		collection_id uuid NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
		created_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, collection_id)
	)`,
	`CREATE INDEX IF NOT EXISTS collection_items_media_idx ON collection_items (media_id)`,
	`CREATE INDEX IF NOT EXISTS collection_collaborators_user_idx ON collection_collaborators (user_id)`,
}

func EnsureSchema(ctx context.Context, db Querier) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
