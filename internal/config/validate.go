// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	// Media server and provider credentials are needed by every cycle
	if c.Emby.URL == "" {
		errs = append(errs, "emby.url: required")
	}
	if c.Emby.APIKey == "" {
		errs = append(errs, "emby.api_key: required")
	}
	if c.Emby.UserID == "" {
		errs = append(errs, "emby.user_id: required")
	}
	if c.TMDB.APIKey == "" {
		errs = append(errs, "tmdb.api_key: required")
	}
	if c.TMDB.RateLimit < 0 {
		errs = append(errs, fmt.Sprintf("tmdb.rate_limit: must be positive, got %v", c.TMDB.RateLimit))
	}
	if c.TMDB.AggregateConcurrency < 1 || c.TMDB.AggregateConcurrency > 10 {
		errs = append(errs, fmt.Sprintf("tmdb.aggregate_concurrency: must be between 1 and 10, got %d", c.TMDB.AggregateConcurrency))
	}

	if c.MoviePilot.Enabled() {
		if c.MoviePilot.Username == "" {
			errs = append(errs, "moviepilot.username: required when moviepilot is configured")
		}
		if c.MoviePilot.Password == "" {
			errs = append(errs, "moviepilot.password: required when moviepilot is configured")
		}
	}

	if c.Sync.BatchSize < 1 {
		errs = append(errs, fmt.Sprintf("sync.batch_size: must be positive, got %d", c.Sync.BatchSize))
	}
	if c.Sync.ProviderWorkers < 1 || c.Sync.ProviderWorkers > 5 {
		errs = append(errs, fmt.Sprintf("sync.provider_workers: must be between 1 and 5, got %d", c.Sync.ProviderWorkers))
	}
	for from := range c.Sync.RatingMap {
		if country, value, ok := strings.Cut(from, ":"); !ok || country == "" || value == "" {
			errs = append(errs, fmt.Sprintf("sync.rating_map: key %q must look like COUNTRY:RATING", from))
		}
	}

	if c.Watchlist.Workers < 1 {
		errs = append(errs, fmt.Sprintf("watchlist.workers: must be positive, got %d", c.Watchlist.Workers))
	}
	for name, v := range map[string]int{
		"auto_pause_days":              c.Watchlist.AutoPauseDays,
		"auto_pending_days":            c.Watchlist.AutoPendingDays,
		"auto_pending_episode_count":   c.Watchlist.AutoPendingEpisodeCount,
		"aggressive_episode_threshold": c.Watchlist.AggressiveEpisodeThreshold,
	} {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("watchlist.%s: must not be negative, got %d", name, v))
		}
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for field, expr := range map[string]string{"sync.schedule": c.Sync.Schedule, "watchlist.schedule": c.Watchlist.Schedule} {
		if expr == "" {
			continue
		}
		if _, err := parser.Parse(expr); err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid cron expression %q: %v", field, expr, err))
		}
	}

	return errs
}
