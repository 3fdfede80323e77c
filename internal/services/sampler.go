package services

import (
	"math/rand/v2"

	"github.com/temcen/reelshelf/pkg/models"
)

// RandomSampler shuffles a copy of the library and keeps the first n items.
// It is unseeded, so two runs over the same library usually differ.
type RandomSampler struct{}

func (RandomSampler) Sample(items []models.LibraryItem, n int) []models.LibraryItem {
	if n <= 0 || len(items) == 0 {
		return []models.LibraryItem{}
	}

	shuffled := make([]models.LibraryItem, len(items))
	copy(shuffled, items)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if len(shuffled) > n {
		shuffled = shuffled[:n]
	}
	return shuffled
}

// FirstNSampler keeps library order. Useful where reproducible output matters more than variety.
type FirstNSampler struct{}

func (FirstNSampler) Sample(items []models.LibraryItem, n int) []models.LibraryItem {
	if n <= 0 || len(items) == 0 {
		return []models.LibraryItem{}
	}
	if len(items) > n {
		items = items[:n]
	}
	out := make([]models.LibraryItem, len(items))
	copy(out, items)
	return out
}
