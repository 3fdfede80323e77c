package models

import "strconv"

const (
	MediaTypeMovie = "movie"
	MediaTypeTV    = "tv"
)

// CatalogItem is a movie or TV entry as returned by the catalog provider's list endpoints.
type CatalogItem struct {
	ID           int     `json:"id"`
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	PosterPath   string  `json:"poster_path"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count,omitempty"`
	Popularity   float64 `json:"popularity,omitempty"`
	Overview     string  `json:"overview"`
	BackdropPath string  `json:"backdrop_path"`
	GenreIDs     []int   `json:"genre_ids,omitempty"`
	MediaType    string  `json:"media_type,omitempty"`
}

// IsMovie reports whether the item is a movie. Items without a media type are movies.
func (c CatalogItem) IsMovie() bool {
	return c.MediaType != MediaTypeTV
}

// DedupKey returns the canonical identity of the item: "{id}" for movies, "{id}tv" for series.
func (c CatalogItem) DedupKey() string {
	return DedupKey(strconv.Itoa(c.ID), c.IsMovie())
}

// DisplayTitle returns the movie title or the series name.
func (c CatalogItem) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Name
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ItemDetails is the subset of a detail response the recommender reads.
type ItemDetails struct {
	ID     int     `json:"id"`
	Title  string  `json:"title,omitempty"`
	Name   string  `json:"name,omitempty"`
	Genres []Genre `json:"genres"`
}

// GenreIDs is safe to call on a nil receiver, which stands for unavailable details.
func (d *ItemDetails) GenreIDs() []int {
	if d == nil {
		return nil
	}
	ids := make([]int, 0, len(d.Genres))
	for _, g := range d.Genres {
		ids = append(ids, g.ID)
	}
	return ids
}

type CastMember struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

type CrewMember struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Job        string `json:"job"`
}

type Credits struct {
	ID   int          `json:"id"`
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// CastMembers is safe to call on a nil receiver.
func (c *Credits) CastMembers() []CastMember {
	if c == nil {
		return nil
	}
	return c.Cast
}

// CrewMembers is safe to call on a nil receiver.
func (c *Credits) CrewMembers() []CrewMember {
	if c == nil {
		return nil
	}
	return c.Crew
}

// PagedItems is the envelope of every list endpoint of the provider.
type PagedItems struct {
	Page         int           `json:"page"`
	Results      []CatalogItem `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

// PersonRole selects how a person is matched by discovery: as crew (directors) or as cast.
type PersonRole string

const (
	RoleCrew PersonRole = "crew"
	RoleCast PersonRole = "cast"
)
