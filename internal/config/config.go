// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	Emby       EmbyConfig       `toml:"emby"`
	TMDB       TMDBConfig       `toml:"tmdb"`
	MoviePilot MoviePilotConfig `toml:"moviepilot"`
	Sync       SyncConfig       `toml:"sync"`
	Watchlist  WatchlistConfig  `toml:"watchlist"`
}

type ServerConfig struct {
	LogLevel     string   `toml:"log_level"`
	DrainTimeout Duration `toml:"drain_timeout"` // how long in-flight work may run after a stop
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// EmbyConfig points at the media server whose catalog is mirrored.
type EmbyConfig struct {
	URL        string   `toml:"url"`
	APIKey     string   `toml:"api_key"`
	UserID     string   `toml:"user_id"`
	LibraryIDs []string `toml:"library_ids"` // empty = every library
}

// TMDBConfig configures the metadata provider.
type TMDBConfig struct {
	APIKey               string   `toml:"api_key"`
	Language             string   `toml:"language"`
	RateLimit            float64  `toml:"rate_limit"` // requests per second
	AggregateConcurrency int      `toml:"aggregate_concurrency"`
	CacheTTL             Duration `toml:"cache_ttl"`
}

// MoviePilotConfig configures the download automation service.
// Leaving URL empty disables every subscription side effect.
type MoviePilotConfig struct {
	URL                       string `toml:"url"`
	Username                  string `toml:"username"`
	Password                  string `toml:"password"`
	PendingEpisodePlaceholder int    `toml:"pending_episode_placeholder"`
	DeleteOnUpgrade           bool   `toml:"delete_on_upgrade"`
}

// Enabled reports whether a download automation service is configured.
func (m MoviePilotConfig) Enabled() bool {
	return m.URL != ""
}

// SyncConfig tunes the reconciliation cycle.
type SyncConfig struct {
	Schedule        string            `toml:"schedule"` // cron expression, empty = manual only
	BatchSize       int               `toml:"batch_size"`
	ProviderWorkers int               `toml:"provider_workers"`
	Timeout         Duration          `toml:"timeout"` // 0 = no limit
	RatingCountry   string            `toml:"rating_country"`
	RatingMap       map[string]string `toml:"rating_map"` // "DE:16" -> "R"
}

// WatchlistConfig holds the classifier thresholds.
type WatchlistConfig struct {
	Schedule                   string   `toml:"schedule"`
	Workers                    int      `toml:"workers"`
	Timeout                    Duration `toml:"timeout"`
	AutoPauseDays              int      `toml:"auto_pause_days"` // 0 disables pausing
	AutoPendingDays            int      `toml:"auto_pending_days"`
	AutoPendingEpisodeCount    int      `toml:"auto_pending_episode_count"`
	AggressiveEpisodeThreshold int      `toml:"aggressive_episode_threshold"` // 0 disables aggressive completion
	CompletionUpgrade          bool     `toml:"completion_upgrade"`
}

// Duration is a time.Duration that decodes from TOML strings like "30m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Load reads, parses and validates the configuration file.
func Load(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}

	cfgErr := &ConfigError{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return cfg, nil
}

// LoadWithoutValidation reads and parses the configuration file, applying
// defaults but skipping validation. Used by `config check` to report every
// problem at once.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, missing, nil
}

func (c *Config) applyDefaults() {
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.DrainTimeout.Duration == 0 {
		c.Server.DrainTimeout.Duration = 5 * time.Minute
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/embytk.db"
	}
	if c.TMDB.Language == "" {
		c.TMDB.Language = "zh-CN"
	}
	if c.TMDB.RateLimit == 0 {
		c.TMDB.RateLimit = 20
	}
	if c.TMDB.AggregateConcurrency == 0 {
		c.TMDB.AggregateConcurrency = 5
	}
	if c.TMDB.CacheTTL.Duration == 0 {
		c.TMDB.CacheTTL.Duration = 24 * time.Hour
	}
	if c.MoviePilot.PendingEpisodePlaceholder == 0 {
		c.MoviePilot.PendingEpisodePlaceholder = 99
	}
	if c.Sync.BatchSize == 0 {
		c.Sync.BatchSize = 50
	}
	if c.Sync.ProviderWorkers == 0 {
		c.Sync.ProviderWorkers = 2
	}
	if c.Sync.RatingCountry == "" {
		c.Sync.RatingCountry = "US"
	}
	if c.Watchlist.Workers == 0 {
		c.Watchlist.Workers = 5
	}
	if c.Watchlist.AutoPendingDays == 0 {
		c.Watchlist.AutoPendingDays = 30
	}
	if c.Watchlist.AutoPendingEpisodeCount == 0 {
		c.Watchlist.AutoPendingEpisodeCount = 1
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
// Unresolved variables are left in place and reported in missing; a
// ${VAR:?message} reference reports "VAR: message". Comment lines are
// copied untouched.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	seen := make(map[string]bool)
	report := func(entry string) {
		if !seen[entry] {
			seen[entry] = true
			missing = append(missing, entry)
		}
	}

	expand := func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		name, op, arg := parts[1], parts[2], parts[3]
		value, ok := os.LookupEnv(name)

		switch op {
		case ":-":
			if value != "" {
				return value
			}
			return arg
		case ":?":
			if value != "" {
				return value
			}
			report(name + ": " + arg)
			return match
		default:
			if ok {
				return value
			}
			report(name)
			return match
		}
	}

	lines := strings.SplitAfter(content, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines[i] = envVarPattern.ReplaceAllStringFunc(line, expand)
	}
	return strings.Join(lines, ""), missing
}
