package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
	"github.com/qf-luck/emby-toolkit-sub001/internal/moviepilot"
	"github.com/qf-luck/emby-toolkit-sub001/internal/tmdb"
)

// Subscriptions is the download automation surface the dispatcher drives.
type Subscriptions interface {
	FindSubscription(ctx context.Context, tmdbID int64, season int) (*moviepilot.Subscription, error)
	Subscribe(ctx context.Context, r moviepilot.SubscribeRequest) (int, error)
	UpdateSubscription(ctx context.Context, sub *moviepilot.Subscription, state moviepilot.State, total int) error
	CancelSubscription(ctx context.Context, id int) error
	TransferHistory(ctx context.Context, title string) ([]moviepilot.TransferRecord, error)
	DeleteTransferHistory(ctx context.Context, rec moviepilot.TransferRecord) error
	DeleteDownloadTask(ctx context.Context, hash string) error
}

// MediaServer is the media server surface the watchlist uses.
type MediaServer interface {
	RefreshItem(ctx context.Context, id string) error
	DeleteItem(ctx context.Context, id string) error
}

// DispatchOptions configures the status effects.
type DispatchOptions struct {
	PendingPlaceholder int  // total episode count announced for pending seasons
	DeleteOnUpgrade    bool // remove old files and history before re-subscribing
}

// Dispatcher carries classifier results out to the download automation
// service.
type Dispatcher struct {
	subs   Subscriptions
	server MediaServer
	store  *library.Store
	opts   DispatchOptions
	log    *slog.Logger
}

// NewDispatcher creates a dispatcher. server is only needed when old files
// are deleted on upgrade.
func NewDispatcher(subs Subscriptions, server MediaServer, store *library.Store, opts DispatchOptions, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		subs:   subs,
		server: server,
		store:  store,
		opts:   opts,
		log:    log.With("component", "dispatch"),
	}
}

// Homogeneous reports whether every file of the episodes shares one
// resolution, codec and release group.
func Homogeneous(episodes []*library.Record) bool {
	type quality struct{ resolution, codec, group string }
	var first *quality
	for _, ep := range episodes {
		for _, a := range ep.AssetDetails {
			q := quality{a.Resolution, a.VideoCodec, a.ReleaseGroup}
			if first == nil {
				first = &q
			} else if q != *first {
				return false
			}
		}
	}
	return true
}

// Upgrade re-subscribes the final season of a just completed series in
// best-version mode unless its local files already match. Returns whether
// a subscription was issued.
func (d *Dispatcher) Upgrade(ctx context.Context, series *library.Record, season int) (bool, error) {
	episodeType := library.EntityEpisode
	inLibrary := true
	episodes, _, err := d.store.List(library.RecordFilter{
		Type:           &episodeType,
		InLibrary:      &inLibrary,
		ParentSeriesID: &series.TMDBID,
		SeasonNumber:   &season,
	})
	if err != nil {
		return false, fmt.Errorf("list season %d: %w", season, err)
	}
	if Homogeneous(episodes) {
		d.log.Debug("season already uniform", "series_id", series.TMDBID, "season", season)
		return false, nil
	}

	tmdbID, err := strconv.ParseInt(series.TMDBID, 10, 64)
	if err != nil {
		return false, fmt.Errorf("invalid tmdb id %q", series.TMDBID)
	}

	if d.opts.DeleteOnUpgrade {
		if err := d.purge(ctx, series, tmdbID, season, episodes); err != nil {
			return false, err
		}
	}

	existing, err := d.subs.FindSubscription(ctx, tmdbID, season)
	if err != nil {
		return false, err
	}
	if existing != nil {
		if err := d.subs.CancelSubscription(ctx, existing.ID); err != nil {
			return false, err
		}
	}
	if _, err := d.subs.Subscribe(ctx, moviepilot.SubscribeRequest{
		Name:    series.Title,
		TMDBID:  tmdbID,
		Season:  season,
		State:   moviepilot.StateRunning,
		Upgrade: true,
	}); err != nil {
		return false, err
	}
	d.log.Info("upgrade subscribed", "series_id", series.TMDBID, "title", series.Title, "season", season, "files", len(episodes))
	return true, nil
}

// purge deletes the season's files from the media server together with
// their transfer history and download tasks.
func (d *Dispatcher) purge(ctx context.Context, series *library.Record, tmdbID int64, season int, episodes []*library.Record) error {
	var errs []error
	if d.server != nil {
		for _, ep := range episodes {
			for _, id := range ep.EmbyItemIDs {
				if err := d.server.DeleteItem(ctx, id); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}

	history, err := d.subs.TransferHistory(ctx, series.Title)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	label := fmt.Sprintf("S%02d", season)
	var hashes []string
	for _, rec := range history {
		if rec.TMDBID != tmdbID || rec.Seasons != label {
			continue
		}
		if err := d.subs.DeleteTransferHistory(ctx, rec); err != nil {
			errs = append(errs, err)
		}
		if rec.Hash != "" && !slices.Contains(hashes, rec.Hash) {
			hashes = append(hashes, rec.Hash)
		}
	}
	for _, hash := range hashes {
		if err := d.subs.DeleteDownloadTask(ctx, hash); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Mirror pushes the watching status to the subscriptions of the series'
// local seasons and its newest season. Only the newest season is ever
// subscribed from scratch. Returns the state mirrored, or "" when the
// status is not mirrored.
func (d *Dispatcher) Mirror(ctx context.Context, series *library.Record, status library.WatchingStatus, inv Inventory, agg *tmdb.SeriesAggregate) (moviepilot.State, error) {
	if len(agg.Seasons) == 0 {
		return "", nil
	}
	switch status {
	case library.StatusWatching, library.StatusPaused, library.StatusPending:
	default:
		return "", nil
	}
	tmdbID, err := strconv.ParseInt(series.TMDBID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid tmdb id %q", series.TMDBID)
	}

	newest := agg.Seasons[len(agg.Seasons)-1].SeasonNumber
	seasons := []int{newest}
	for s, eps := range inv {
		if len(eps) > 0 && s != newest {
			seasons = append(seasons, s)
		}
	}
	slices.Sort(seasons)

	var errs []error
	for _, season := range seasons {
		state, total := moviepilot.StateRunning, 0
		switch {
		case status == library.StatusPending && season == newest:
			state, total = moviepilot.StatePending, d.opts.PendingPlaceholder
		case status != library.StatusPaused:
			total = seasonEpisodes(agg, season)
		}

		sub, err := d.subs.FindSubscription(ctx, tmdbID, season)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if sub == nil {
			if season != newest {
				continue
			}
			if _, err := d.subs.Subscribe(ctx, moviepilot.SubscribeRequest{
				Name:         series.Title,
				TMDBID:       tmdbID,
				Season:       season,
				State:        state,
				TotalEpisode: total,
			}); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if sub.State == state && (total == 0 || sub.TotalEpisode == total) {
			continue
		}
		if err := d.subs.UpdateSubscription(ctx, sub, state, total); err != nil {
			errs = append(errs, err)
			continue
		}
		d.log.Debug("subscription updated", "series_id", series.TMDBID, "season", season, "state", state, "total", total)
	}

	mirrored := moviepilot.StateRunning
	if status == library.StatusPending {
		mirrored = moviepilot.StatePending
	}
	return mirrored, errors.Join(errs...)
}
