package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.themoviedb.org"
const defaultCacheTTL = 24 * time.Hour

// Sentinel errors for TMDB API responses.
var (
	ErrNotFound     = errors.New("tmdb: not found")
	ErrUnauthorized = errors.New("tmdb: invalid api key")
	ErrRateLimited  = errors.New("tmdb: rate limited")
)

// Client is a TMDB API client.
type Client struct {
	apiKey      string
	baseURL     string
	language    string
	httpClient  *http.Client
	limiter     *rate.Limiter
	concurrency int
	log         *slog.Logger
	movies      *cache[*Movie]
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithCacheTTL sets the movie cache TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.movies = newCache[*Movie](ttl)
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLanguage sets the response language, e.g. "zh-CN".
func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.language = lang
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
	}
}

// WithAggregateConcurrency bounds the season fetches in flight per aggregate.
func WithAggregateConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log.With("component", "tmdb")
	}
}

// NewClient creates a new TMDB client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:     rate.NewLimiter(rate.Limit(20), 20),
		concurrency: 5,
		log:         slog.Default().With("component", "tmdb"),
		movies:      newCache[*Movie](defaultCacheTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs a GET against the v3 API and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/3"+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("TMDB API error: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// GetMovie fetches movie metadata, including certifications, by TMDB ID.
func (c *Client) GetMovie(ctx context.Context, tmdbID int64) (*Movie, error) {
	if movie, ok := c.movies.get(tmdbID); ok {
		return movie, nil
	}

	var movie Movie
	params := url.Values{"append_to_response": {"release_dates"}}
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", tmdbID), params, &movie); err != nil {
		return nil, fmt.Errorf("movie %d: %w", tmdbID, err)
	}

	c.movies.set(tmdbID, &movie)
	return &movie, nil
}

// GetTV fetches series metadata, including content ratings, by TMDB ID.
func (c *Client) GetTV(ctx context.Context, tmdbID int64) (*TV, error) {
	var tv TV
	params := url.Values{"append_to_response": {"content_ratings"}}
	if err := c.get(ctx, fmt.Sprintf("/tv/%d", tmdbID), params, &tv); err != nil {
		return nil, fmt.Errorf("tv %d: %w", tmdbID, err)
	}
	return &tv, nil
}

// GetSeason fetches one season with its episodes.
func (c *Client) GetSeason(ctx context.Context, tmdbID int64, season int) (*Season, error) {
	var s Season
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/season/%d", tmdbID, season), nil, &s); err != nil {
		return nil, fmt.Errorf("tv %d season %d: %w", tmdbID, season, err)
	}
	return &s, nil
}

// GetEpisode fetches one episode.
func (c *Client) GetEpisode(ctx context.Context, tmdbID int64, season, episode int) (*Episode, error) {
	var e Episode
	path := fmt.Sprintf("/tv/%d/season/%d/episode/%d", tmdbID, season, episode)
	if err := c.get(ctx, path, nil, &e); err != nil {
		return nil, fmt.Errorf("tv %d S%02dE%02d: %w", tmdbID, season, episode, err)
	}
	return &e, nil
}

// GetSeriesAggregate fetches a series together with all of its regular
// seasons. Season requests run concurrently, bounded by the aggregate
// concurrency; a season the provider no longer knows is skipped.
func (c *Client) GetSeriesAggregate(ctx context.Context, tmdbID int64) (*SeriesAggregate, error) {
	tv, err := c.GetTV(ctx, tmdbID)
	if err != nil {
		return nil, err
	}

	var numbers []int
	for _, s := range tv.Seasons {
		if s.SeasonNumber > 0 {
			numbers = append(numbers, s.SeasonNumber)
		}
	}

	seasons := make([]*Season, len(numbers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, n := range numbers {
		g.Go(func() error {
			s, err := c.GetSeason(gctx, tmdbID, n)
			if errors.Is(err, ErrNotFound) {
				c.log.Debug("season missing upstream", "tmdb_id", tmdbID, "season", n)
				return nil
			}
			if err != nil {
				return err
			}
			seasons[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	agg := &SeriesAggregate{Series: tv}
	for _, s := range seasons {
		if s != nil {
			agg.Seasons = append(agg.Seasons, s)
		}
	}
	sort.Slice(agg.Seasons, func(i, j int) bool {
		return agg.Seasons[i].SeasonNumber < agg.Seasons[j].SeasonNumber
	})
	return agg, nil
}

// Forget drops a cached movie so the next lookup hits the API.
func (c *Client) Forget(tmdbID int64) {
	c.movies.delete(tmdbID)
}
