package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/qf-luck/emby-toolkit-sub001/internal/config"
	"github.com/qf-luck/emby-toolkit-sub001/internal/emby"
	"github.com/qf-luck/emby-toolkit-sub001/internal/events"
	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
	"github.com/qf-luck/emby-toolkit-sub001/internal/metadata"
	"github.com/qf-luck/emby-toolkit-sub001/internal/migrations"
	"github.com/qf-luck/emby-toolkit-sub001/internal/moviepilot"
	"github.com/qf-luck/emby-toolkit-sub001/internal/reconcile"
	"github.com/qf-luck/emby-toolkit-sub001/internal/tmdb"
	"github.com/qf-luck/emby-toolkit-sub001/internal/watchlist"
)

// app bundles the stores and clients every command works with.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	db       *sql.DB
	store    *library.Store
	eventLog *events.EventLog
	bus      *events.Bus
	emby     *emby.Client
	meta     *metadata.Service
	pilot    *moviepilot.Client // nil when MoviePilot is not configured
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// resolveConfigPath returns --config when given, else the discovered file.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.Discover()
}

// openDB opens the SQLite database at path and applies the schema.
func openDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		path += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// openApp loads the configuration and wires every dependency.
func openApp() (*app, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	db, err := openDB(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	eventLog := events.NewEventLog(db)
	a := &app{
		cfg:      cfg,
		log:      logger,
		db:       db,
		store:    library.NewStore(db),
		eventLog: eventLog,
		bus:      events.NewBus(eventLog, logger),
		emby:     emby.NewClient(cfg.Emby.URL, cfg.Emby.APIKey, cfg.Emby.UserID, emby.WithLogger(logger)),
	}

	provider := tmdb.NewClient(cfg.TMDB.APIKey,
		tmdb.WithLanguage(cfg.TMDB.Language),
		tmdb.WithRateLimit(cfg.TMDB.RateLimit),
		tmdb.WithAggregateConcurrency(cfg.TMDB.AggregateConcurrency),
		tmdb.WithCacheTTL(cfg.TMDB.CacheTTL.Duration),
		tmdb.WithLogger(logger),
	)
	a.meta = metadata.NewService(provider, metadata.NewCache(db), cfg.TMDB.CacheTTL.Duration, logger)

	if cfg.MoviePilot.Enabled() {
		a.pilot = moviepilot.NewClient(cfg.MoviePilot.URL, cfg.MoviePilot.Username, cfg.MoviePilot.Password, logger)
	}
	return a, nil
}

func (a *app) Close() error {
	if err := a.bus.Close(); err != nil {
		a.log.Warn("close event bus", "error", err)
	}
	return a.db.Close()
}

func (a *app) engine() *reconcile.Engine {
	return reconcile.New(a.emby, a.meta, a.store, a.bus, reconcile.Options{
		LibraryIDs:      a.cfg.Emby.LibraryIDs,
		BatchSize:       a.cfg.Sync.BatchSize,
		ProviderWorkers: a.cfg.Sync.ProviderWorkers,
		RatingCountry:   a.cfg.Sync.RatingCountry,
		RatingMap:       a.cfg.Sync.RatingMap,
		DrainTimeout:    a.cfg.Server.DrainTimeout.Duration,
	}, a.log)
}

func (a *app) processor() *watchlist.Processor {
	var dispatcher *watchlist.Dispatcher
	if a.pilot != nil {
		dispatcher = watchlist.NewDispatcher(a.pilot, a.emby, a.store, watchlist.DispatchOptions{
			PendingPlaceholder: a.cfg.MoviePilot.PendingEpisodePlaceholder,
			DeleteOnUpgrade:    a.cfg.MoviePilot.DeleteOnUpgrade,
		}, a.log)
	}

	wl := a.cfg.Watchlist
	return watchlist.NewProcessor(a.store, a.meta, a.emby, dispatcher, a.bus, watchlist.Options{
		Thresholds: watchlist.Thresholds{
			AutoPauseDays:              wl.AutoPauseDays,
			AutoPendingDays:            wl.AutoPendingDays,
			AutoPendingEpisodeCount:    wl.AutoPendingEpisodeCount,
			AggressiveEpisodeThreshold: wl.AggressiveEpisodeThreshold,
		},
		Workers:           wl.Workers,
		CompletionUpgrade: wl.CompletionUpgrade,
		DrainTimeout:      a.cfg.Server.DrainTimeout.Duration,
	}, a.log)
}
