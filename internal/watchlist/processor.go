package watchlist

//go:generate go run go.uber.org/mock/mockgen -package mocks -destination mocks/mock_watchlist.go github.com/qf-luck/emby-toolkit-sub001/internal/watchlist Provider,Subscriptions,MediaServer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/qf-luck/emby-toolkit-sub001/internal/drain"
	"github.com/qf-luck/emby-toolkit-sub001/internal/events"
	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
	"github.com/qf-luck/emby-toolkit-sub001/internal/tmdb"
)

// Provider supplies fresh series aggregates.
type Provider interface {
	Series(ctx context.Context, tmdbID int64, fresh bool) (*tmdb.SeriesAggregate, error)
}

// Options configures a processor.
type Options struct {
	Thresholds
	Workers           int           // series evaluated concurrently
	CompletionUpgrade bool          // run the upgrade workflow when a series completes
	DrainTimeout      time.Duration // grace for series in flight after a stop, 0 = unbounded
}

// Result summarises one classifier cycle.
type Result struct {
	Processed   int
	Transitions int
	Upgrades    int
	Failed      int
	Interrupted bool
	Duration    time.Duration
}

// Processor runs the per-series pipeline: refresh, classify, persist,
// dispatch.
type Processor struct {
	store      *library.Store
	provider   Provider
	server     MediaServer
	dispatcher *Dispatcher
	bus        *events.Bus
	opts       Options
	now        func() time.Time
	log        *slog.Logger
}

// NewProcessor creates a processor. server, dispatcher and bus may be nil.
func NewProcessor(store *library.Store, provider Provider, server MediaServer, dispatcher *Dispatcher, bus *events.Bus, opts Options, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	return &Processor{
		store:      store,
		provider:   provider,
		server:     server,
		dispatcher: dispatcher,
		bus:        bus,
		opts:       opts,
		now:        time.Now,
		log:        log.With("component", "watchlist"),
	}
}

// outcome is what processing one series produced.
type outcome struct {
	decision   Decision
	transition bool
	upgraded   bool
}

// Run evaluates every tracked series. Series are independent: a failure is
// logged and counted without affecting the others. Cancelling stop keeps
// new series from starting; those in flight finish within DrainTimeout.
func (p *Processor) Run(stop context.Context) (*Result, error) {
	ctx, release := drain.Detach(stop, p.opts.DrainTimeout)
	defer release()

	start := time.Now()
	series, err := p.store.Watchlist()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for _, r := range series {
		if drain.Stopped(stop) {
			break
		}
		g.Go(func() error {
			// g.Go may have waited for a free worker past the stop.
			if drain.Stopped(stop) {
				return nil
			}
			out, err := p.process(ctx, r)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				p.log.Error("series failed", "series_id", r.TMDBID, "title", r.Title, "error", err)
				return nil
			}
			res.Processed++
			if out.transition {
				res.Transitions++
			}
			if out.upgraded {
				res.Upgrades++
			}
			return nil
		})
	}
	_ = g.Wait()
	res.Interrupted = drain.Stopped(stop)
	res.Duration = time.Since(start)

	p.log.Info("watchlist complete",
		"series", humanize.Comma(int64(len(series))),
		"processed", res.Processed,
		"transitions", res.Transitions,
		"upgrades", res.Upgrades,
		"failed", res.Failed,
		"interrupted", res.Interrupted,
		"duration", res.Duration.Round(time.Millisecond).String(),
	)
	p.bus.Emit(ctx, &events.WatchlistCompleted{
		BaseEvent:   events.NewBaseEvent(events.EventWatchlistCompleted, events.EntityCycle, events.CycleWatchlist),
		Processed:   res.Processed,
		Transitions: res.Transitions,
		Failed:      res.Failed,
		Interrupted: res.Interrupted,
		DurationMS:  res.Duration.Milliseconds(),
	})
	return res, nil
}

// ProcessSeries evaluates one series on demand.
func (p *Processor) ProcessSeries(ctx context.Context, tmdbID string) (Decision, error) {
	r, err := p.store.Get(library.Key{TMDBID: tmdbID, Type: library.EntitySeries})
	if err != nil {
		return Decision{}, err
	}
	out, err := p.process(ctx, r)
	return out.decision, err
}

func (p *Processor) process(ctx context.Context, r *library.Record) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return outcome{}, err
	}
	id, err := strconv.ParseInt(r.TMDBID, 10, 64)
	if err != nil {
		return outcome{}, fmt.Errorf("invalid tmdb id %q", r.TMDBID)
	}

	if p.server != nil && len(r.EmbyItemIDs) > 0 {
		if err := p.server.RefreshItem(ctx, r.EmbyItemIDs[0]); err != nil {
			p.log.Warn("refresh failed", "series_id", r.TMDBID, "error", err)
		}
	}
	agg, err := p.provider.Series(ctx, id, true)
	if err != nil {
		return outcome{}, fmt.Errorf("fetch series: %w", err)
	}
	inv, err := p.store.SeriesInventory(r.TMDBID)
	if err != nil {
		return outcome{}, err
	}

	d := Classify(Input{Aggregate: agg, Inventory: inv, ForceEnded: r.ForceEnded}, p.opts.Thresholds, p.now())
	episodes := agg.Episodes()
	total := len(episodes)
	completed := d.Status == library.StatusCompleted && r.WatchingStatus.Active() && !r.ForceEnded
	upgradable := p.opts.CompletionUpgrade && p.dispatcher != nil
	if err := p.store.UpdateWatchlist(r.TMDBID, library.WatchlistUpdate{
		Status:         d.Status,
		PausedUntil:    d.PausedUntil,
		NextEpisode:    NextEpisode(episodes, inv),
		MissingInfo:    Missing(episodes, inv),
		ProviderStatus: agg.Series.Status,
		IsAiring:       d.Airing(),
		TotalEpisodes:  &total,
		UpgradePending: completed && upgradable,
	}); err != nil {
		return outcome{}, err
	}

	out := outcome{decision: d, transition: d.Status != r.WatchingStatus}
	if out.transition {
		p.log.Info("status changed", "series_id", r.TMDBID, "title", r.Title,
			"from", r.WatchingStatus, "to", d.Status, "reason", d.Reason)
		changed := &events.SeriesStatusChanged{
			BaseEvent: events.NewBaseEvent(events.EventSeriesStatusChanged, events.EntitySeries, r.TMDBID),
			Title:     r.Title,
			OldStatus: string(r.WatchingStatus),
			NewStatus: string(d.Status),
		}
		if d.PausedUntil != nil {
			changed.PausedUntil = d.PausedUntil.Format(time.DateOnly)
		}
		p.bus.Emit(ctx, changed)
	}

	var errs []error
	final := newestSeason(inv)
	if completed {
		if upgradable {
			upgraded, err := p.upgrade(ctx, r, final)
			if err != nil {
				errs = append(errs, err)
			}
			out.upgraded = upgraded
		}
		p.bus.Emit(ctx, &events.SeriesCompleted{
			BaseEvent:   events.NewBaseEvent(events.EventSeriesCompleted, events.EntitySeries, r.TMDBID),
			Title:       r.Title,
			FinalSeason: final,
			Upgrade:     out.upgraded,
		})
	} else if r.UpgradePending && d.Status == library.StatusCompleted && !r.ForceEnded && upgradable {
		p.log.Info("retrying completion upgrade", "series_id", r.TMDBID, "season", final)
		upgraded, err := p.upgrade(ctx, r, final)
		if err != nil {
			errs = append(errs, err)
		}
		out.upgraded = upgraded
	}

	if p.dispatcher != nil {
		state, err := p.dispatcher.Mirror(ctx, r, d.Status, inv, agg)
		if err != nil {
			errs = append(errs, fmt.Errorf("mirror: %w", err))
		}
		if state != "" && string(state) != r.SubscriptionStatus {
			if err := p.store.SetSubscriptionStatus(r.TMDBID, string(state)); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return out, errors.Join(errs...)
}

// upgrade runs the completion upgrade for season and clears the pending
// marker once it went through. A series without local files has nothing to
// upgrade.
func (p *Processor) upgrade(ctx context.Context, r *library.Record, season int) (bool, error) {
	var upgraded bool
	if season > 0 {
		var err error
		if upgraded, err = p.dispatcher.Upgrade(ctx, r, season); err != nil {
			return false, fmt.Errorf("upgrade: %w", err)
		}
	}
	if err := p.store.ClearUpgradePending(r.TMDBID); err != nil {
		return upgraded, err
	}
	return upgraded, nil
}

// newestSeason returns the highest season with local episodes, 0 when there
// is none.
func newestSeason(inv map[int][]int) int {
	final := 0
	for season, episodes := range inv {
		if season > final && len(episodes) > 0 {
			final = season
		}
	}
	return final
}
