package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const tvSuffix = "tv"

// LibraryItem is an entry of a user's collection, identified by its provider id.
type LibraryItem struct {
	ID      string `json:"id"`
	IsMovie bool   `json:"is_movie"`
}

// DedupKey returns the same key a CatalogItem with this id and media type would produce.
func (l LibraryItem) DedupKey() string {
	return DedupKey(l.ID, l.IsMovie)
}

func DedupKey(id string, isMovie bool) string {
	if isMovie {
		return id
	}
	return id + tvSuffix
}

// ParseLibraryItem parses a stored media id: "550" is a movie, "1399tv" a TV series.
func ParseLibraryItem(stored string) (LibraryItem, error) {
	raw := strings.TrimSpace(stored)
	isMovie := true
	if strings.HasSuffix(raw, tvSuffix) {
		raw = strings.TrimSuffix(raw, tvSuffix)
		isMovie = false
	}

	if raw == "" {
		return LibraryItem{}, fmt.Errorf("invalid media id %q", stored)
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return LibraryItem{}, fmt.Errorf("invalid media id %q: %w", stored, err)
	}

	// canonical form, so "0550" and "550" share a dedup key
	return LibraryItem{ID: strconv.FormatUint(n, 10), IsMovie: isMovie}, nil
}

// SourceCollection is a collection the user marked as a taste signal.
type SourceCollection struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}
