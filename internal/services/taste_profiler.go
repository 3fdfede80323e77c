package services

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/reelshelf/pkg/models"
)

const leadCastSize = 3

// GenreProfile counts how often each genre occurs across the sampled library.
// Iteration order is first-seen order, which is what breaks ties between equal counts.
type GenreProfile struct {
	order  []int
	counts map[int]int
}

// NewGenreProfile returns an empty profile.
func NewGenreProfile() *GenreProfile {
	return &GenreProfile{counts: make(map[int]int)}
}

// Add counts one occurrence of a genre.
func (g *GenreProfile) Add(genreID int) {
	if _, ok := g.counts[genreID]; !ok {
		g.order = append(g.order, genreID)
	}
	g.counts[genreID]++
}

// Count is 0 for genres never added.
func (g *GenreProfile) Count(genreID int) int {
	return g.counts[genreID]
}

// Len is the number of distinct genres.
func (g *GenreProfile) Len() int {
	return len(g.order)
}

// MatchScore sums the profile counts of the given genres. Unknown genres contribute 0.
func (g *GenreProfile) MatchScore(genreIDs []int) int {
	score := 0
	for _, id := range genreIDs {
		score += g.counts[id]
	}
	return score
}

// Top returns up to n genre ids by count, ties in first-seen order.
func (g *GenreProfile) Top(n int) []int {
	ids := make([]int, len(g.order))
	copy(ids, g.order)
	sort.SliceStable(ids, func(i, j int) bool {
		return g.counts[ids[i]] > g.counts[ids[j]]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// PersonAffinity counts the sampled items crediting a person.
type PersonAffinity struct {
	ID    int
	Name  string
	Count int
}

// PersonProfile is an insertion-ordered set of affinities keyed by person id.
type PersonProfile struct {
	order []int
	byID  map[int]*PersonAffinity
}

// NewPersonProfile returns an empty profile.
func NewPersonProfile() *PersonProfile {
	return &PersonProfile{byID: make(map[int]*PersonAffinity)}
}

// Add counts one more item crediting the person.
func (p *PersonProfile) Add(id int, name string) {
	if existing, ok := p.byID[id]; ok {
		existing.Count++
		return
	}
	p.order = append(p.order, id)
	p.byID[id] = &PersonAffinity{ID: id, Name: name, Count: 1}
}

// Get returns a copy of the affinity for a person id.
func (p *PersonProfile) Get(id int) (PersonAffinity, bool) {
	a, ok := p.byID[id]
	if !ok {
		return PersonAffinity{}, false
	}
	return *a, true
}

func (p *PersonProfile) Len() int {
	return len(p.order)
}

// Top returns up to n people credited at least minCount times, highest count first,
// ties in first-seen order.
func (p *PersonProfile) Top(minCount, n int) []PersonAffinity {
	people := make([]PersonAffinity, 0, len(p.order))
	for _, id := range p.order {
		if a := p.byID[id]; a.Count >= minCount {
			people = append(people, *a)
		}
	}
	sort.SliceStable(people, func(i, j int) bool {
		return people[i].Count > people[j].Count
	})
	if len(people) > n {
		people = people[:n]
	}
	return people
}

// TasteProfile is the per-request preference signal built from the sampled library.
type TasteProfile struct {
	Genres    *GenreProfile
	Directors *PersonProfile
	Actors    *PersonProfile
}

// SampledItem holds everything fetched for one sampled library item.
// Details and Credits are nil when the provider could not supply them.
type SampledItem struct {
	Item            models.LibraryItem
	Details         *models.ItemDetails
	Credits         *models.Credits
	Recommendations []models.CatalogItem
	Similar         []models.CatalogItem
}

// ProfileResult is the taste profile plus the per-item data it was built from, in sample order.
type ProfileResult struct {
	Profile TasteProfile
	Sampled []SampledItem
}

// TasteProfiler fetches catalog data for sampled items and folds it into a TasteProfile.
type TasteProfiler struct {
	catalog        CatalogClient
	maxConcurrency int
	logger         *logrus.Logger
}

func NewTasteProfiler(catalog CatalogClient, maxConcurrency int, logger *logrus.Logger) *TasteProfiler {
	return &TasteProfiler{
		catalog:        catalog,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// Build fetches details, credits, recommendations and similar items for every sampled item
// concurrently, waits for all of them, then folds the results in sample order.
func (p *TasteProfiler) Build(ctx context.Context, sample []models.LibraryItem) *ProfileResult {
	sampled := p.fetch(ctx, sample)

	profile := TasteProfile{
		Genres:    NewGenreProfile(),
		Directors: NewPersonProfile(),
		Actors:    NewPersonProfile(),
	}

	for _, s := range sampled {
		for _, genreID := range s.Details.GenreIDs() {
			profile.Genres.Add(genreID)
		}
		for _, d := range directorsOf(s.Credits, s.Item.IsMovie) {
			profile.Directors.Add(d.ID, d.Name)
		}
		for _, a := range leadActorsOf(s.Credits) {
			profile.Actors.Add(a.ID, a.Name)
		}
	}

	p.logger.WithFields(logrus.Fields{
		"sampled_items": len(sampled),
		"genres":        profile.Genres.Len(),
		"directors":     profile.Directors.Len(),
		"actors":        profile.Actors.Len(),
	}).Debug("Taste profile built")

	return &ProfileResult{
		Profile: profile,
		Sampled: sampled,
	}
}

func (p *TasteProfiler) fetch(ctx context.Context, sample []models.LibraryItem) []SampledItem {
	sampled := make([]SampledItem, len(sample))

	var g errgroup.Group
	if p.maxConcurrency > 0 {
		g.SetLimit(p.maxConcurrency)
	}

	// each goroutine writes exactly one field of its own slot
	for i, item := range sample {
		slot := &sampled[i]
		slot.Item = item

		g.Go(func() error {
			slot.Details = p.catalog.Details(ctx, item.ID, item.IsMovie)
			return nil
		})
		g.Go(func() error {
			slot.Credits = p.catalog.Credits(ctx, item.ID, item.IsMovie)
			return nil
		})
		g.Go(func() error {
			slot.Recommendations = p.catalog.Recommendations(ctx, item.ID, item.IsMovie)
			return nil
		})
		g.Go(func() error {
			slot.Similar = p.catalog.Similar(ctx, item.ID, item.IsMovie)
			return nil
		})
	}
	_ = g.Wait()

	return sampled
}

// directorsOf returns each director once. Series also count anyone in the Directing department.
func directorsOf(credits *models.Credits, isMovie bool) []models.CrewMember {
	seen := make(map[int]struct{})
	var directors []models.CrewMember
	for _, member := range credits.CrewMembers() {
		isDirector := member.Job == "Director" || (!isMovie && member.Department == "Directing")
		if !isDirector {
			continue
		}
		if _, dup := seen[member.ID]; dup {
			continue
		}
		seen[member.ID] = struct{}{}
		directors = append(directors, member)
	}
	return directors
}

// leadActorsOf returns the top-billed cast, each person once.
func leadActorsOf(credits *models.Credits) []models.CastMember {
	cast := make([]models.CastMember, len(credits.CastMembers()))
	copy(cast, credits.CastMembers())
	sort.SliceStable(cast, func(i, j int) bool {
		return cast[i].Order < cast[j].Order
	})
	if len(cast) > leadCastSize {
		cast = cast[:leadCastSize]
	}

	seen := make(map[int]struct{}, len(cast))
	leads := make([]models.CastMember, 0, len(cast))
	for _, member := range cast {
		if _, dup := seen[member.ID]; dup {
			continue
		}
		seen[member.ID] = struct{}{}
		leads = append(leads, member)
	}
	return leads
}
