package models

import (
	"time"

	"github.com/google/uuid"
)

// RecommendationResult is one page of ranked recommendations for a user. Limit is the page
// size that was applied, after defaulting.
type RecommendationResult struct {
	Results           []CatalogItem      `json:"results"`
	SourceCollections []SourceCollection `json:"sourceCollections"`
	TotalSourceItems  int                `json:"totalSourceItems"`
	Page              int                `json:"page"`
	Limit             int                `json:"limit"`
	TotalPages        int                `json:"total_pages"`
	TotalResults      int                `json:"total_results"`
}

// EmptyRecommendationResult returns a well-formed result with no recommendations.
func EmptyRecommendationResult(page int, collections []SourceCollection, totalSourceItems int) *RecommendationResult {
	if collections == nil {
		collections = []SourceCollection{}
	}
	return &RecommendationResult{
		Results:           []CatalogItem{},
		SourceCollections: collections,
		TotalSourceItems:  totalSourceItems,
		Page:              page,
	}
}

// MaxRecommendationLimit is the largest page size the API accepts.
const MaxRecommendationLimit = 100

type RecommendationRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=100"`
	Page  int `form:"page" validate:"omitempty,min=1"`
}

// RecommendationsServedEvent is published after a page of recommendations has been served.
type RecommendationsServedEvent struct {
	EventID      uuid.UUID `json:"event_id"`
	UserID       uuid.UUID `json:"user_id"`
	Page         int       `json:"page"`
	Limit        int       `json:"limit"`
	TotalResults int       `json:"total_results"`
	ItemKeys     []string  `json:"item_keys"`
	Timestamp    time.Time `json:"timestamp"`
}
