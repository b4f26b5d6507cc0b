package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/qf-luck/emby-toolkit-sub001/internal/emby"
	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
	"github.com/qf-luck/emby-toolkit-sub001/internal/tmdb"
)

var errNoLocalItems = errors.New("no local items returned")

// synchronizer re-fetches and writes dirty keys one batch at a time.
type synchronizer struct {
	server   MediaServer
	provider Provider
	store    *library.Store
	opts     Options
	log      *slog.Logger
}

// episodeRef addresses one episode of a series by position.
type episodeRef struct {
	season, episode int
}

// fetched is the provider metadata of one key. extra holds episodes looked
// up one by one because the aggregate lacked them.
type fetched struct {
	movie  *tmdb.Movie
	series *tmdb.SeriesAggregate
	extra  map[episodeRef]*tmdb.Episode
	err    error
}

func (s *synchronizer) runBatch(ctx context.Context, state *cycleState, keys []library.Key, res *Result) {
	var ids []string
	for _, key := range keys {
		ids = append(ids, state.itemsByKey[key]...)
	}

	details, err := s.server.GetItems(ctx, ids)
	if err != nil {
		for _, key := range keys {
			res.FetchErrors = append(res.FetchErrors, FetchError{Key: key, Err: err})
		}
		return
	}
	local := make(map[library.Key][]emby.Item)
	for _, item := range details {
		if key, ok := state.keyOf[item.ID]; ok {
			item.LibraryID = state.libraryOf[item.ID]
			local[key] = append(local[key], item)
		}
	}

	children, childErr := s.children(ctx, state, keys)

	results := make([]fetched, len(keys))
	var g errgroup.Group
	g.SetLimit(s.opts.ProviderWorkers)
	for i, key := range keys {
		if len(local[key]) == 0 {
			results[i].err = errNoLocalItems
			continue
		}
		if key.Type == library.EntitySeries && childErr != nil {
			results[i].err = childErr
			continue
		}
		g.Go(func() error {
			results[i] = s.fetch(ctx, key, children[key.TMDBID])
			return nil
		})
	}
	_ = g.Wait()

	m := &merger{
		libraryOf:     state.libraryOf,
		ratingCountry: s.opts.RatingCountry,
		ratingMap:     s.opts.RatingMap,
		log:           s.log,
	}
	for i, key := range keys {
		f := results[i]
		if f.err != nil {
			res.FetchErrors = append(res.FetchErrors, FetchError{Key: key, Err: f.err})
			continue
		}
		var grp *group
		if f.movie != nil {
			grp = m.movie(key, local[key], f.movie)
		} else {
			grp = m.series(key, local[key], children[key.TMDBID], f.series, f.extra)
		}
		s.write(grp, res)
	}
}

// children streams the seasons and episodes of the batch's series, grouped
// by series tmdb id.
func (s *synchronizer) children(ctx context.Context, state *cycleState, keys []library.Key) (map[string][]emby.Item, error) {
	var seriesItems []string
	for _, key := range keys {
		if key.Type == library.EntitySeries {
			seriesItems = append(seriesItems, state.itemsByKey[key]...)
		}
	}
	out := make(map[string][]emby.Item)
	if len(seriesItems) == 0 {
		return out, nil
	}
	for item, err := range s.server.Children(ctx, seriesItems, emby.DetailFields) {
		if err != nil {
			return nil, fmt.Errorf("list children: %w", err)
		}
		tmdbID, ok := state.seriesByItem[seriesItemID(&item)]
		if !ok {
			continue
		}
		out[tmdbID] = append(out[tmdbID], item)
	}
	return out, nil
}

func (s *synchronizer) fetch(ctx context.Context, key library.Key, children []emby.Item) fetched {
	if err := ctx.Err(); err != nil {
		return fetched{err: err}
	}
	id, err := strconv.ParseInt(key.TMDBID, 10, 64)
	if err != nil {
		return fetched{err: fmt.Errorf("invalid tmdb id %q", key.TMDBID)}
	}
	if key.Type == library.EntityMovie {
		movie, err := s.provider.Movie(ctx, id)
		return fetched{movie: movie, err: err}
	}
	agg, err := s.provider.Series(ctx, id, false)
	if err != nil {
		return fetched{err: err}
	}
	return fetched{series: agg, extra: s.backfill(ctx, id, agg, children)}
}

// backfill looks up the local episodes of known seasons that the aggregate
// does not list. A failed lookup leaves the episode to its synthetic id.
func (s *synchronizer) backfill(ctx context.Context, id int64, agg *tmdb.SeriesAggregate, children []emby.Item) map[episodeRef]*tmdb.Episode {
	var extra map[episodeRef]*tmdb.Episode
	tried := make(map[episodeRef]bool)
	for _, item := range children {
		if item.Type != emby.TypeEpisode {
			continue
		}
		season, episode, ok := childNumbers(&item)
		ref := episodeRef{season: season, episode: episode}
		if !ok || tried[ref] {
			continue
		}
		tried[ref] = true
		ps := findSeason(agg, season)
		if ps == nil || findEpisode(ps, episode) != nil {
			continue
		}
		ep, err := s.provider.Episode(ctx, id, season, episode)
		if err != nil {
			s.log.Warn("episode lookup failed", "tmdb_id", id, "season", season, "episode", episode, "error", err)
			continue
		}
		if extra == nil {
			extra = make(map[episodeRef]*tmdb.Episode)
		}
		extra[ref] = ep
	}
	return extra
}

// write persists one group in a single transaction. A failing top-level row
// fails the group; a failing child is rolled back to its savepoint and the
// rest of the group continues.
func (s *synchronizer) write(grp *group, res *Result) {
	top := grp.top
	fail := func(err error) {
		s.log.Error("write failed", "key", top.Key().String(), "error", err)
		res.record(RowResult{Key: top.Key(), Err: err})
	}

	tx, err := s.store.Begin()
	if err != nil {
		fail(err)
		return
	}
	defer func() { _ = tx.Rollback() }()

	created, err := tx.Upsert(top)
	if err != nil {
		fail(err)
		return
	}
	rows := []RowResult{{Key: top.Key(), Created: created}}
	var stale []library.Key

	if top.Type == library.EntitySeries {
		active := make(map[library.Key]bool, len(grp.children))
		for _, child := range grp.children {
			active[child.Key()] = true
			rows = append(rows, s.writeChild(tx, child))
		}
		stale, err = tx.MarkChildrenOffline(top.TMDBID, active)
		if err != nil {
			fail(err)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		fail(fmt.Errorf("commit: %w", err))
		return
	}
	res.ChildrenOffline += len(stale)
	for _, row := range rows {
		if row.Err != nil {
			s.log.Warn("row skipped", "key", row.Key.String(), "series", top.TMDBID, "error", row.Err)
		}
		res.record(row)
	}
}

func (s *synchronizer) writeChild(tx *library.Tx, r *library.Record) RowResult {
	const sp = "child"
	if err := tx.Savepoint(sp); err != nil {
		return RowResult{Key: r.Key(), Err: err}
	}
	created, err := tx.Upsert(r)
	if err != nil {
		if rbErr := tx.RollbackTo(sp); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		return RowResult{Key: r.Key(), Err: err}
	}
	if err := tx.Release(sp); err != nil {
		return RowResult{Key: r.Key(), Err: err}
	}
	return RowResult{Key: r.Key(), Created: created}
}
