package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/qf-luck/emby-toolkit-sub001/internal/tmdb"
)

// DefaultTTL is used when the service is built with a zero TTL.
const DefaultTTL = 24 * time.Hour

const (
	keyPrefixMovie   = "tmdb:movie:"
	keyPrefixSeries  = "tmdb:series:"
	keyPrefixEpisode = "tmdb:episode:" // + "<series>:<season>:<episode>"
)

// Provider is the subset of the TMDB client the service wraps.
type Provider interface {
	GetMovie(ctx context.Context, tmdbID int64) (*tmdb.Movie, error)
	GetSeriesAggregate(ctx context.Context, tmdbID int64) (*tmdb.SeriesAggregate, error)
	GetEpisode(ctx context.Context, tmdbID int64, season, episode int) (*tmdb.Episode, error)
}

// forgetter is implemented by providers holding their own in-memory cache.
type forgetter interface {
	Forget(tmdbID int64)
}

// Service provides cached access to provider metadata.
type Service struct {
	provider Provider
	cache    *Cache
	ttl      time.Duration
	log      *slog.Logger
}

// NewService creates a new cached provider service.
func NewService(provider Provider, cache *Cache, ttl time.Duration, log *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		provider: provider,
		cache:    cache,
		ttl:      ttl,
		log:      log.With("component", "metadata"),
	}
}

// Movie returns movie metadata, served from cache when possible.
func (s *Service) Movie(ctx context.Context, tmdbID int64) (*tmdb.Movie, error) {
	return cached(ctx, s, keyPrefixMovie+strconv.FormatInt(tmdbID, 10), false, func() (*tmdb.Movie, error) {
		return s.provider.GetMovie(ctx, tmdbID)
	})
}

// Series returns the series aggregate. With fresh set the cache is bypassed
// and the fetched aggregate replaces the cached copy.
func (s *Service) Series(ctx context.Context, tmdbID int64, fresh bool) (*tmdb.SeriesAggregate, error) {
	return cached(ctx, s, keyPrefixSeries+strconv.FormatInt(tmdbID, 10), fresh, func() (*tmdb.SeriesAggregate, error) {
		return s.provider.GetSeriesAggregate(ctx, tmdbID)
	})
}

// Episode returns one episode of a series, for episodes the series
// aggregate does not list.
func (s *Service) Episode(ctx context.Context, tmdbID int64, season, episode int) (*tmdb.Episode, error) {
	key := fmt.Sprintf("%s%d:%d:%d", keyPrefixEpisode, tmdbID, season, episode)
	return cached(ctx, s, key, false, func() (*tmdb.Episode, error) {
		return s.provider.GetEpisode(ctx, tmdbID, season, episode)
	})
}

// Invalidate drops every cached response for the title, its episodes
// included.
func (s *Service) Invalidate(ctx context.Context, tmdbID int64) error {
	if f, ok := s.provider.(forgetter); ok {
		f.Forget(tmdbID)
	}
	id := strconv.FormatInt(tmdbID, 10)
	_, err := s.cache.DeletePrefix(ctx, keyPrefixEpisode+id+":")
	return errors.Join(
		s.cache.Delete(ctx, keyPrefixMovie+id),
		s.cache.Delete(ctx, keyPrefixSeries+id),
		err,
	)
}

// Prune removes expired cache entries.
func (s *Service) Prune(ctx context.Context) (int64, error) {
	return s.cache.Prune(ctx)
}

func cached[T any](ctx context.Context, s *Service, key string, fresh bool, fetch func() (T, error)) (T, error) {
	if !fresh {
		if data, ok := s.cache.Get(ctx, key); ok {
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				s.log.Debug("cache hit", "key", key)
				return v, nil
			}
			s.log.Warn("discarding unreadable cache entry", "key", key)
		}
	}

	v, err := fetch()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("fetch %s: %w", key, err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("failed to marshal for cache", "key", key, "error", err)
		return v, nil
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.log.Warn("failed to cache", "key", key, "error", err)
	}
	return v, nil
}
