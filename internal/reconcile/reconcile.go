// Package reconcile mirrors the media server catalog into the local library
// store: a scan builds cycle-scoped identity maps, a diff finds dirty and
// vanished entities, and the batch synchronizer re-fetches and upserts them.
package reconcile

//go:generate go run go.uber.org/mock/mockgen -package mocks -destination mocks/mock_reconcile.go github.com/qf-luck/emby-toolkit-sub001/internal/reconcile MediaServer,Provider

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/qf-luck/emby-toolkit-sub001/internal/drain"
	"github.com/qf-luck/emby-toolkit-sub001/internal/emby"
	"github.com/qf-luck/emby-toolkit-sub001/internal/events"
	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
	"github.com/qf-luck/emby-toolkit-sub001/internal/tmdb"
)

// ErrNotConfigured is returned before any write when a required collaborator
// or setting is missing.
var ErrNotConfigured = errors.New("reconcile: not configured")

// MediaServer is the media server surface the engine consumes.
type MediaServer interface {
	Items(ctx context.Context, q emby.Query) iter.Seq2[emby.Item, error]
	GetItems(ctx context.Context, ids []string) ([]emby.Item, error)
	Children(ctx context.Context, seriesIDs []string, fields []string) iter.Seq2[emby.Item, error]
}

// Provider is the metadata provider surface the engine consumes. Episode
// serves local episodes the series aggregate does not list.
type Provider interface {
	Movie(ctx context.Context, tmdbID int64) (*tmdb.Movie, error)
	Series(ctx context.Context, tmdbID int64, fresh bool) (*tmdb.SeriesAggregate, error)
	Episode(ctx context.Context, tmdbID int64, season, episode int) (*tmdb.Episode, error)
}

// Options tunes a reconciliation cycle.
type Options struct {
	LibraryIDs      []string          // empty scans every library
	BatchSize       int               // dirty keys per batch
	ProviderWorkers int               // provider fetches in flight per batch
	RatingCountry   string            // country whose certification is authoritative
	RatingMap       map[string]string // "COUNTRY:RATING" -> rating for RatingCountry
	DrainTimeout    time.Duration     // grace for the batch in flight after a stop, 0 = unbounded
}

// FetchError records an entity skipped this cycle because a fetch failed.
// It is retried on the next cycle.
type FetchError struct {
	Key library.Key
	Err error
}

func (e FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Key, e.Err) }
func (e FetchError) Unwrap() error { return e.Err }

// RowResult is the outcome of writing one record.
type RowResult struct {
	Key     library.Key
	Created bool
	Err     error
}

// Result summarises one cycle.
type Result struct {
	Scanned         int
	Dirty           int
	Unresolved      int // children whose series could not be identified
	Created         int
	Updated         int
	Offline         int
	ChildrenOffline int
	Failures        []RowResult
	FetchErrors     []FetchError
	Interrupted     bool
	Duration        time.Duration
}

// record folds one row outcome into the summary.
func (r *Result) record(row RowResult) {
	switch {
	case row.Err != nil:
		r.Failures = append(r.Failures, row)
	case row.Created:
		r.Created++
	default:
		r.Updated++
	}
}

// Engine runs reconciliation cycles.
type Engine struct {
	server   MediaServer
	provider Provider
	store    *library.Store
	bus      *events.Bus
	opts     Options
	log      *slog.Logger
}

// New creates an engine. bus may be nil.
func New(server MediaServer, provider Provider, store *library.Store, bus *events.Bus, opts Options, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if opts.ProviderWorkers <= 0 {
		opts.ProviderWorkers = 2
	}
	return &Engine{
		server:   server,
		provider: provider,
		store:    store,
		bus:      bus,
		opts:     opts,
		log:      log.With("component", "reconcile"),
	}
}

// Run executes one full cycle. Cancelling stop ends the cycle between
// batches: the batch in flight keeps its provider and store calls alive for
// up to DrainTimeout, and the partial result is returned with Interrupted
// set.
func (e *Engine) Run(stop context.Context) (*Result, error) {
	if e.server == nil || e.provider == nil || e.store == nil {
		return nil, fmt.Errorf("%w: media server, provider and store are required", ErrNotConfigured)
	}
	if e.opts.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive", ErrNotConfigured)
	}

	ctx, release := drain.Detach(stop, e.opts.DrainTimeout)
	defer release()

	start := time.Now()
	known, err := e.store.OnlineItems()
	if err != nil {
		return nil, fmt.Errorf("load online items: %w", err)
	}

	state := newCycleState(known)
	scanner := &scanner{state: state, log: e.log}
	if err := scanner.scan(e.server.Items(ctx, emby.Query{
		LibraryIDs: e.opts.LibraryIDs,
		Types:      []emby.ItemType{emby.TypeMovie, emby.TypeSeries, emby.TypeSeason, emby.TypeEpisode},
		Fields:     emby.ScanFields,
	})); err != nil {
		// A partial scan would offline everything not reached yet.
		return nil, fmt.Errorf("scan catalog: %w", err)
	}

	res := &Result{Scanned: len(state.seen), Unresolved: scanner.unresolved}
	offline := state.diff()
	res.Dirty = len(state.dirty)

	if err := e.retire(ctx, offline, res); err != nil {
		return nil, err
	}

	syncer := &synchronizer{
		server:   e.server,
		provider: e.provider,
		store:    e.store,
		opts:     e.opts,
		log:      e.log,
	}
	keys := state.dirtyKeys()
	for startIdx := 0; startIdx < len(keys); startIdx += e.opts.BatchSize {
		if drain.Stopped(stop) {
			e.log.Warn("cycle stopped", "remaining", len(keys)-startIdx)
			break
		}
		batch := keys[startIdx:min(startIdx+e.opts.BatchSize, len(keys))]
		syncer.runBatch(ctx, state, batch, res)
	}
	res.Interrupted = drain.Stopped(stop)

	res.Duration = time.Since(start)
	e.summarise(ctx, res)
	return res, nil
}

// retire soft-retires vanished top-level records, with the children of any
// vanished series, in one transaction.
func (e *Engine) retire(ctx context.Context, keys []library.Key, res *Result) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := e.store.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, key := range keys {
		if key.Type != library.EntitySeries {
			continue
		}
		children, err := tx.MarkChildrenOffline(key.TMDBID, nil)
		if err != nil {
			return fmt.Errorf("retire children of %s: %w", key, err)
		}
		res.ChildrenOffline += len(children)
	}
	n, err := tx.MarkOffline(keys)
	if err != nil {
		return fmt.Errorf("retire: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	res.Offline = n

	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	e.log.Info("items offline", "count", n, "children", res.ChildrenOffline)
	e.bus.Emit(ctx, &events.ItemsOffline{
		BaseEvent: events.NewBaseEvent(events.EventItemsOffline, events.EntityCycle, events.CycleReconcile),
		Keys:      names,
	})
	return nil
}

func (e *Engine) summarise(ctx context.Context, res *Result) {
	for _, f := range res.FetchErrors {
		e.log.Warn("entity skipped", "key", f.Key.String(), "error", f.Err)
	}
	e.log.Info("reconcile complete",
		"scanned", humanize.Comma(int64(res.Scanned)),
		"dirty", res.Dirty,
		"created", res.Created,
		"updated", res.Updated,
		"offline", res.Offline,
		"row_failures", len(res.Failures),
		"fetch_errors", len(res.FetchErrors),
		"interrupted", res.Interrupted,
		"duration", res.Duration.Round(time.Millisecond).String(),
	)
	e.bus.Emit(ctx, &events.ReconcileCompleted{
		BaseEvent:   events.NewBaseEvent(events.EventReconcileCompleted, events.EntityCycle, events.CycleReconcile),
		Scanned:     res.Scanned,
		Dirty:       res.Dirty,
		Created:     res.Created,
		Updated:     res.Updated,
		Offline:     res.Offline,
		RowFailures: len(res.Failures),
		FetchErrors: len(res.FetchErrors),
		Interrupted: res.Interrupted,
		DurationMS:  res.Duration.Milliseconds(),
	})
}
