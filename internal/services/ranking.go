package services

import (
	"math"
	"sort"

	"github.com/temcen/reelshelf/pkg/models"
)

const (
	ratingWeight           = 10.0
	genreMatchWeight       = 5.0
	popularityDivisor      = 10.0
	directPopularityCap    = 50.0
	discoveryPopularityCap = 20.0
)

// DirectScore scores an item recommended for, or similar to, a library item.
func DirectScore(item models.CatalogItem, genres *GenreProfile) float64 {
	genreMatch := genres.MatchScore(item.GenreIDs)
	return item.VoteAverage*ratingWeight +
		math.Min(item.Popularity/popularityDivisor, directPopularityCap) +
		float64(genreMatch)*genreMatchWeight
}

// PersonScore scores an item found through a director or actor the user favours.
func PersonScore(item models.CatalogItem, genreMatch, personCount int) float64 {
	return item.VoteAverage*ratingWeight +
		math.Min(item.Popularity/popularityDivisor, discoveryPopularityCap) +
		float64(genreMatch)*genreMatchWeight +
		float64(personCount)*personCountWeight
}

// RankedPage is one page of the ranked candidate list.
type RankedPage struct {
	Items        []models.CatalogItem
	TotalResults int
	TotalPages   int
}

// Rank orders candidates by score, highest first, keeping insertion order between equal
// scores, and slices out the requested 1-based page. Pages outside the range are empty.
func Rank(set *CandidateSet, limit, page int) RankedPage {
	candidates := set.Candidates()
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	result := RankedPage{
		Items:        []models.CatalogItem{},
		TotalResults: len(candidates),
	}
	if limit <= 0 {
		return result
	}
	result.TotalPages = (len(candidates) + limit - 1) / limit

	if page < 1 || page > result.TotalPages {
		return result
	}
	start := (page - 1) * limit
	end := min(start+limit, len(candidates))

	for _, c := range candidates[start:end] {
		result.Items = append(result.Items, c.Item)
	}
	return result
}
