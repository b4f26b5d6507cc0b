// Package server schedules the background cycles of the daemon.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"

	"github.com/qf-luck/emby-toolkit-sub001/internal/events"
	"github.com/qf-luck/emby-toolkit-sub001/internal/reconcile"
	"github.com/qf-luck/emby-toolkit-sub001/internal/watchlist"
)

const defaultMaintenanceSchedule = "30 4 * * *"

// Task names, also used as gocron tags.
const (
	TaskSync        = "sync"
	TaskWatchlist   = "watchlist"
	TaskMaintenance = "maintenance"
)

// ErrBusy is returned when a cycle is triggered while another one runs.
var ErrBusy = errors.New("another cycle is running")

// Reconciler runs one catalog reconciliation cycle.
type Reconciler interface {
	Run(ctx context.Context) (*reconcile.Result, error)
}

// Classifier runs one watchlist classification cycle.
type Classifier interface {
	Run(ctx context.Context) (*watchlist.Result, error)
}

// Pruner removes expired rows and reports how many went.
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// PruneFunc adapts a plain function to Pruner.
type PruneFunc func(ctx context.Context) (int64, error)

// Prune calls f(ctx).
func (f PruneFunc) Prune(ctx context.Context) (int64, error) {
	return f(ctx)
}

// Config holds runner configuration.
type Config struct {
	SyncSchedule        string        // cron, empty = manual only
	SyncTimeout         time.Duration // 0 = no limit
	WatchlistSchedule   string
	WatchlistTimeout    time.Duration
	MaintenanceSchedule string
	RunOnStart          bool
}

// Runner owns the scheduler and serialises the sync and watchlist cycles.
type Runner struct {
	reconciler Reconciler
	classifier Classifier
	pruners    map[string]Pruner
	bus        *events.Bus
	config     Config
	logger     *slog.Logger

	// cycle is held for the whole of a sync or watchlist run.
	cycle sync.Mutex
}

// NewRunner creates a new background runner. Pruners are keyed by a short
// name used only for logging. When bus is set, series transitions and
// retirements are announced in the runner log.
func NewRunner(cfg Config, reconciler Reconciler, classifier Classifier, pruners map[string]Pruner, bus *events.Bus, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaintenanceSchedule == "" {
		cfg.MaintenanceSchedule = defaultMaintenanceSchedule
	}
	return &Runner{
		reconciler: reconciler,
		classifier: classifier,
		pruners:    pruners,
		bus:        bus,
		config:     cfg,
		logger:     logger.With("component", "runner"),
	}
}

// Run schedules every configured cycle and blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	tasks := []struct {
		name     string
		schedule string
		fn       func(context.Context) error
	}{
		{TaskSync, r.config.SyncSchedule, r.RunSync},
		{TaskWatchlist, r.config.WatchlistSchedule, r.RunWatchlist},
		{TaskMaintenance, r.config.MaintenanceSchedule, r.RunMaintenance},
	}
	for _, t := range tasks {
		if t.schedule == "" {
			r.logger.Info("task not scheduled", "task", t.name)
			continue
		}
		job, err := s.NewJob(
			gocron.CronJob(t.schedule, false),
			gocron.NewTask(func() { r.execute(ctx, t.name, t.fn) }),
			gocron.WithName(t.name),
			gocron.WithTags(t.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = s.Shutdown()
			return fmt.Errorf("schedule %s: %w", t.name, err)
		}
		next, _ := job.NextRun()
		r.logger.Info("task scheduled", "task", t.name, "cron", t.schedule, "next_run", next)
	}

	s.Start()
	r.logger.Info("runner started")

	g, ctx := errgroup.WithContext(ctx)
	if r.bus != nil {
		g.Go(func() error {
			r.announce(ctx)
			return nil
		})
	}
	if r.config.RunOnStart {
		g.Go(func() error {
			r.execute(ctx, TaskSync, r.RunSync)
			r.execute(ctx, TaskWatchlist, r.RunWatchlist)
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		r.logger.Info("runner stopping")
		return s.Shutdown()
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (r *Runner) execute(ctx context.Context, name string, fn func(context.Context) error) {
	start := time.Now()
	err := fn(ctx)
	switch {
	case errors.Is(err, ErrBusy):
		r.logger.Info("task skipped", "task", name, "reason", err)
	case err != nil:
		r.logger.Error("task failed", "task", name, "error", err, "duration", time.Since(start))
	default:
		r.logger.Debug("task finished", "task", name, "duration", time.Since(start))
	}
}

// RunSync runs one reconciliation cycle, bounded by the sync timeout.
func (r *Runner) RunSync(ctx context.Context) error {
	if !r.cycle.TryLock() {
		return ErrBusy
	}
	defer r.cycle.Unlock()

	ctx, stop := r.watch(ctx, TaskSync, r.config.SyncTimeout)
	defer stop()

	res, err := r.reconciler.Run(ctx)
	if err != nil {
		return err
	}
	if res.Interrupted {
		r.logger.Warn("sync interrupted", "created", res.Created, "updated", res.Updated)
	}
	return nil
}

// RunWatchlist runs one watchlist cycle, bounded by the watchlist timeout.
func (r *Runner) RunWatchlist(ctx context.Context) error {
	if !r.cycle.TryLock() {
		return ErrBusy
	}
	defer r.cycle.Unlock()

	ctx, stop := r.watch(ctx, TaskWatchlist, r.config.WatchlistTimeout)
	defer stop()

	res, err := r.classifier.Run(ctx)
	if err != nil {
		return err
	}
	if res.Interrupted {
		r.logger.Warn("watchlist interrupted", "processed", res.Processed)
	}
	return nil
}

// RunMaintenance prunes expired caches and old events.
func (r *Runner) RunMaintenance(ctx context.Context) error {
	var errs []error
	for name, p := range r.pruners {
		n, err := p.Prune(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("prune %s: %w", name, err))
			continue
		}
		if n > 0 {
			r.logger.Info("pruned", "target", name, "rows", n)
		}
	}
	return errors.Join(errs...)
}

// announce logs one line per series transition, completion and retirement
// until ctx ends.
func (r *Runner) announce(ctx context.Context) {
	ch := r.bus.Subscribe(32, events.EventSeriesStatusChanged, events.EventSeriesCompleted, events.EventItemsOffline)
	defer r.bus.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			r.logger.Info(e.EventType(), "entity_id", e.EntityID(), "detail", events.Describe(e))
		}
	}
}

// watch derives the stop signal of a cycle: a timer cancels it once d
// elapses. Cycles check it between units of work and let the unit in flight
// finish.
func (r *Runner) watch(ctx context.Context, name string, d time.Duration) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	if d <= 0 {
		return ctx, cancel
	}
	timer := time.AfterFunc(d, func() {
		r.logger.Warn("cycle timeout reached, requesting stop", "task", name, "timeout", d)
		cancel()
	})
	return ctx, func() {
		timer.Stop()
		cancel()
	}
}
