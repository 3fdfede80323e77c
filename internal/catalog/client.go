// Package catalog talks to the external movie/TV catalog provider (a TMDB-compatible API).
//
// Every exported lookup degrades instead of failing: transport errors, non-2xx responses,
// open circuits and malformed bodies are logged and turned into nil results, so callers can
// treat partial data as the normal case.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/temcen/reelshelf/internal/config"
	"github.com/temcen/reelshelf/internal/metrics"
	"github.com/temcen/reelshelf/pkg/models"
)

const (
	breakerName = "catalog-api"

	// Discovery only considers titles with enough votes for the average to mean something.
	minDiscoverVoteCount = 100

	maxResponseBytes = 4 << 20
)

var (
	ErrUnexpectedStatus = errors.New("catalog: unexpected status")
	ErrNotFound         = errors.New("catalog: not found")
	ErrRateLimited      = errors.New("catalog: rate limit wait aborted")
)

type Client struct {
	baseURL    string
	apiKey     string
	language   string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	cache      ResponseCache
	logger     *logrus.Logger
}

// NewClient builds a catalog client. cache may be nil to disable response caching.
func NewClient(cfg config.CatalogConfig, cache ResponseCache, logger *logrus.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("catalog base URL is required")
	}

	tag, err := language.Parse(cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog language %q: %w", cfg.Language, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		language: tag.String(),
		timeout:  timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
		breaker: newBreaker(breakerName, cfg.Breaker, logger),
		cache:   cache,
		logger:  logger,
	}, nil
}

// Recommendations returns the provider's recommendations for an item.
func (c *Client) Recommendations(ctx context.Context, id string, isMovie bool) []models.CatalogItem {
	path := fmt.Sprintf("/%s/%s/recommendations", mediaType(isMovie), url.PathEscape(id))
	return c.list(ctx, "recommendations", path, url.Values{}, isMovie)
}

// Similar returns the provider's "similar items" for an item.
func (c *Client) Similar(ctx context.Context, id string, isMovie bool) []models.CatalogItem {
	path := fmt.Sprintf("/%s/%s/similar", mediaType(isMovie), url.PathEscape(id))
	return c.list(ctx, "similar", path, url.Values{}, isMovie)
}

// Details returns the item's details, or nil when they cannot be fetched.
func (c *Client) Details(ctx context.Context, id string, isMovie bool) *models.ItemDetails {
	path := fmt.Sprintf("/%s/%s", mediaType(isMovie), url.PathEscape(id))

	var details models.ItemDetails
	if err := c.get(ctx, "details", path, url.Values{}, &details); err != nil {
		c.logDegraded("details", path, err)
		return nil
	}
	return &details
}

// Credits returns the item's cast and crew, or nil when they cannot be fetched.
func (c *Client) Credits(ctx context.Context, id string, isMovie bool) *models.Credits {
	path := fmt.Sprintf("/%s/%s/credits", mediaType(isMovie), url.PathEscape(id))

	var credits models.Credits
	if err := c.get(ctx, "credits", path, url.Values{}, &credits); err != nil {
		c.logDegraded("credits", path, err)
		return nil
	}
	return &credits
}

// DiscoverByPerson finds well-voted titles crediting a person. Crew lookups are ordered by
// rating, cast lookups by popularity. Non-empty genreIDs restrict results to any of them.
func (c *Client) DiscoverByPerson(ctx context.Context, personID int, isMovie bool, role models.PersonRole, genreIDs []int) []models.CatalogItem {
	query := url.Values{}
	switch role {
	case models.RoleCast:
		query.Set("with_cast", strconv.Itoa(personID))
		query.Set("sort_by", "popularity.desc")
	default:
		query.Set("with_crew", strconv.Itoa(personID))
		query.Set("sort_by", "vote_average.desc")
	}
	query.Set("vote_count.gte", strconv.Itoa(minDiscoverVoteCount))

	if len(genreIDs) > 0 {
		genres := make([]string, 0, len(genreIDs))
		for _, id := range genreIDs {
			genres = append(genres, strconv.Itoa(id))
		}
		// "|" is OR in the provider's discover syntax
		query.Set("with_genres", strings.Join(genres, "|"))
	}

	path := "/discover/" + mediaType(isMovie)
	return c.list(ctx, "discover_"+string(role), path, query, isMovie)
}

func (c *Client) list(ctx context.Context, endpoint, path string, query url.Values, isMovie bool) []models.CatalogItem {
	var page models.PagedItems
	if err := c.get(ctx, endpoint, path, query, &page); err != nil {
		c.logDegraded(endpoint, path, err)
		return nil
	}

	kind := mediaType(isMovie)
	for i := range page.Results {
		page.Results[i].MediaType = kind
	}
	return page.Results
}

// get fetches path through cache, limiter and breaker and decodes the body into dst.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, dst interface{}) error {
	query.Set("language", c.language)
	cacheKey := path + "?" + query.Encode()

	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, cacheKey); ok {
			if err := json.Unmarshal(body, dst); err == nil {
				metrics.CatalogRequests.WithLabelValues(endpoint, "cache_hit").Inc()
				return nil
			}
		}
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetch(ctx, path, query)
	})
	metrics.CatalogLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CatalogRequests.WithLabelValues(endpoint, "rejected").Inc()
		} else {
			metrics.CatalogRequests.WithLabelValues(endpoint, "failure").Inc()
		}
		return err
	}

	if err := json.Unmarshal(body, dst); err != nil {
		metrics.CatalogRequests.WithLabelValues(endpoint, "failure").Inc()
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	metrics.CatalogRequests.WithLabelValues(endpoint, "success").Inc()

	if c.cache != nil {
		c.cache.Set(ctx, cacheKey, body)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(reqCtx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	params := url.Values{}
	for k, v := range query {
		params[k] = v
	}
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func (c *Client) logDegraded(endpoint, path string, err error) {
	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"path":     path,
	}).WithError(err).Warn("Catalog request failed, continuing without it")
}

func mediaType(isMovie bool) string {
	if isMovie {
		return models.MediaTypeMovie
	}
	return models.MediaTypeTV
}

// Available reports whether the circuit in front of the provider lets requests through.
func (c *Client) Available() error {
	if c.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("catalog circuit is open")
	}
	return nil
}
