package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/reelshelf/internal/config"
	"github.com/temcen/reelshelf/internal/metrics"
	"github.com/temcen/reelshelf/pkg/models"
)

const (
	repeatBonusPerSource = 20.0
	personMatchBonus     = 10.0
	personCountWeight    = 3.0
)

// ScoredCandidate is one unique recommendation candidate. It is updated in place as
// further passes see the same item.
type ScoredCandidate struct {
	Item            models.CatalogItem
	Score           float64
	Sources         int
	IsDirectorBased bool
	IsActorBased    bool
}

// CandidateSet keeps candidates by dedup key and remembers insertion order.
type CandidateSet struct {
	order []string
	byKey map[string]*ScoredCandidate
}

// NewCandidateSet returns an empty set.
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{byKey: make(map[string]*ScoredCandidate)}
}

// Len is the number of unique candidates.
func (s *CandidateSet) Len() int {
	return len(s.order)
}

// Get looks a candidate up by dedup key.
func (s *CandidateSet) Get(key string) (*ScoredCandidate, bool) {
	c, ok := s.byKey[key]
	return c, ok
}

func (s *CandidateSet) insert(key string, c *ScoredCandidate) {
	s.order = append(s.order, key)
	s.byKey[key] = c
}

// Candidates returns the candidates in insertion order.
func (s *CandidateSet) Candidates() []*ScoredCandidate {
	out := make([]*ScoredCandidate, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.byKey[key])
	}
	return out
}

// CandidateAggregator merges direct recommendations with director and actor discovery.
type CandidateAggregator struct {
	catalog        CatalogClient
	discovery      config.DiscoveryConfig
	maxConcurrency int
	logger         *logrus.Logger
}

func NewCandidateAggregator(
	catalog CatalogClient,
	discovery config.DiscoveryConfig,
	maxConcurrency int,
	logger *logrus.Logger,
) *CandidateAggregator {
	return &CandidateAggregator{
		catalog:        catalog,
		discovery:      discovery,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// Aggregate runs the direct, director and actor passes in that order. Later passes depend
// on the state left by earlier ones.
func (a *CandidateAggregator) Aggregate(ctx context.Context, profile *ProfileResult, excluded map[string]struct{}) *CandidateSet {
	set := NewCandidateSet()

	a.directPass(set, profile, excluded)
	metrics.CandidatesPerPass.WithLabelValues("direct").Observe(float64(set.Len()))

	topGenres := profile.Profile.Genres.Top(a.discovery.TopGenres)

	directors := profile.Profile.Directors.Top(a.discovery.MinPersonCount, a.discovery.MaxPeople)
	a.personPass(ctx, set, profile.Profile.Genres, directors, models.RoleCrew, topGenres, excluded)
	metrics.CandidatesPerPass.WithLabelValues("director").Observe(float64(set.Len()))

	actors := profile.Profile.Actors.Top(a.discovery.MinPersonCount, a.discovery.MaxPeople)
	a.personPass(ctx, set, profile.Profile.Genres, actors, models.RoleCast, topGenres, excluded)
	metrics.CandidatesPerPass.WithLabelValues("actor").Observe(float64(set.Len()))

	a.logger.WithFields(logrus.Fields{
		"candidates": set.Len(),
		"directors":  len(directors),
		"actors":     len(actors),
		"top_genres": topGenres,
	}).Debug("Candidates aggregated")

	return set
}

// directPass folds each sampled item's recommendations and similar items, in sample order.
// An item listed by both endpoints of the same sampled item counts once for it.
func (a *CandidateAggregator) directPass(set *CandidateSet, profile *ProfileResult, excluded map[string]struct{}) {
	for _, sampled := range profile.Sampled {
		seen := make(map[string]struct{})

		for _, list := range [][]models.CatalogItem{sampled.Recommendations, sampled.Similar} {
			for _, item := range list {
				key := item.DedupKey()
				if _, skip := excluded[key]; skip {
					continue
				}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}

				combined := DirectScore(item, profile.Profile.Genres)
				if existing, ok := set.Get(key); ok {
					existing.Sources++
					existing.Score = combined + float64(existing.Sources)*repeatBonusPerSource
					continue
				}
				set.insert(key, &ScoredCandidate{
					Item:    item,
					Score:   combined,
					Sources: 1,
				})
			}
		}
	}
}

// personPass discovers titles for each person concurrently, then folds them in person order.
func (a *CandidateAggregator) personPass(
	ctx context.Context,
	set *CandidateSet,
	genres *GenreProfile,
	people []PersonAffinity,
	role models.PersonRole,
	topGenres []int,
	excluded map[string]struct{},
) {
	if len(people) == 0 {
		return
	}

	discovered := make([][]models.CatalogItem, len(people))

	var g errgroup.Group
	if a.maxConcurrency > 0 {
		g.SetLimit(a.maxConcurrency)
	}
	for i, person := range people {
		g.Go(func() error {
			// person discovery always targets movies
			items := a.catalog.DiscoverByPerson(ctx, person.ID, true, role, topGenres)
			if len(items) > a.discovery.ResultsPerPerson {
				items = items[:a.discovery.ResultsPerPerson]
			}
			discovered[i] = items
			return nil
		})
	}
	_ = g.Wait()

	for i, person := range people {
		for _, item := range discovered[i] {
			key := item.DedupKey()
			if _, skip := excluded[key]; skip {
				continue
			}

			genreMatch := genres.MatchScore(item.GenreIDs)
			if genreMatch == 0 {
				continue
			}
			combined := PersonScore(item, genreMatch, person.Count)

			candidate, ok := set.Get(key)
			if ok {
				candidate.Score = max(candidate.Score, combined) + personMatchBonus
				candidate.Sources++
			} else {
				candidate = &ScoredCandidate{
					Item:    item,
					Score:   combined,
					Sources: 1,
				}
				set.insert(key, candidate)
			}

			if role == models.RoleCast {
				candidate.IsActorBased = true
			} else {
				candidate.IsDirectorBased = true
			}
		}

		a.logger.WithFields(logrus.Fields{
			"role":       string(role),
			"person_id":  person.ID,
			"person":     person.Name,
			"discovered": len(discovered[i]),
		}).Debug("Person discovery folded")
	}
}
