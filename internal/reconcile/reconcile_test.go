package reconcile

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/qf-luck/emby-toolkit-sub001/internal/emby"
	"github.com/qf-luck/emby-toolkit-sub001/internal/events"
	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
	"github.com/qf-luck/emby-toolkit-sub001/internal/metadata"
	"github.com/qf-luck/emby-toolkit-sub001/internal/reconcile/mocks"
	"github.com/qf-luck/emby-toolkit-sub001/internal/tmdb"
)

var testOptions = Options{BatchSize: 10, ProviderWorkers: 2, RatingCountry: "US"}

func newTestEngine(t *testing.T, server MediaServer, provider Provider) (*Engine, *library.Store) {
	t.Helper()
	store := library.NewStore(setupTestDB(t))
	return New(server, provider, store, nil, testOptions, testLogger()), store
}

func TestEngine_Run_CreatesAndIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Movie(gomock.Any(), int64(550)).
		Return(&tmdb.Movie{ID: 550, Title: "Fight Club", ReleaseDate: "1999-10-15"}, nil).Times(1)
	provider.EXPECT().Series(gomock.Any(), int64(1399), false).
		Return(aggregate(1399, "Returning Series", 3), nil).Times(1)

	server := &fakeServer{items: []emby.Item{
		movieItem("m1", "550", "Fight Club"),
		seriesItem("s1", "1399", "Show"),
		seasonItem("se1", "s1", 1),
		episodeItem("e1", "s1", 1, 1),
		episodeItem("e2", "s1", 1, 2),
	}}
	engine, store := newTestEngine(t, server, provider)
	ctx := context.Background()

	res, err := engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Scanned)
	assert.Equal(t, 2, res.Dirty)
	assert.Equal(t, 5, res.Created, "movie, series, season and two episodes")
	assert.Empty(t, res.Failures)
	assert.Empty(t, res.FetchErrors)

	movie := getRecord(t, store, "550", library.EntityMovie)
	assert.True(t, movie.InLibrary)
	assert.Equal(t, []string{"m1"}, movie.EmbyItemIDs)
	require.Len(t, movie.AssetDetails, 1)
	assert.Equal(t, "2160p", movie.AssetDetails[0].Resolution)
	assert.Equal(t, "hevc", movie.AssetDetails[0].VideoCodec)
	assert.Equal(t, "GRP", movie.AssetDetails[0].ReleaseGroup)
	assert.Equal(t, []string{"eng"}, movie.AssetDetails[0].AudioLanguages)
	assert.Equal(t, "lib-1", movie.AssetDetails[0].SourceLibraryID)

	series := getRecord(t, store, "1399", library.EntitySeries)
	assert.Equal(t, 3, series.TotalEpisodes)
	assert.Equal(t, "Returning Series", series.ProviderStatus)

	season := getRecord(t, store, "101", library.EntitySeason)
	require.NotNil(t, season.ParentSeriesTMDBID)
	assert.Equal(t, "1399", *season.ParentSeriesTMDBID)

	ep := getRecord(t, store, "1002", library.EntityEpisode)
	assert.Equal(t, []string{"e2"}, ep.EmbyItemIDs)
	assert.Equal(t, 2, *ep.EpisodeNumber)

	// Nothing changed upstream: no dirty keys, no fetches, no writes.
	getCalls := server.getCalls
	res, err = engine.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Dirty)
	assert.Zero(t, res.Created)
	assert.Zero(t, res.Updated)
	assert.Zero(t, res.Offline)
	assert.Equal(t, getCalls, server.getCalls)
}

func TestEngine_Run_OfflineRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Movie(gomock.Any(), int64(550)).
		Return(&tmdb.Movie{ID: 550, Title: "Fight Club"}, nil).AnyTimes()

	server := &fakeServer{items: []emby.Item{movieItem("m1", "550", "Fight Club")}}
	engine, store := newTestEngine(t, server, provider)
	ctx := context.Background()

	_, err := engine.Run(ctx)
	require.NoError(t, err)

	server.remove("m1")
	res, err := engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Offline)

	movie := getRecord(t, store, "550", library.EntityMovie)
	assert.False(t, movie.InLibrary)
	assert.Empty(t, movie.EmbyItemIDs)
	assert.Empty(t, movie.AssetDetails)

	server.items = append(server.items, movieItem("m2", "550", "Fight Club"))
	res, err = engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	movie = getRecord(t, store, "550", library.EntityMovie)
	assert.True(t, movie.InLibrary)
	assert.Equal(t, []string{"m2"}, movie.EmbyItemIDs)
	assert.Len(t, movie.AssetDetails, 1)
}

func TestEngine_Run_DuplicateCopyRemoved(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Movie(gomock.Any(), int64(550)).
		Return(&tmdb.Movie{ID: 550, Title: "Fight Club"}, nil).Times(2)

	server := &fakeServer{items: []emby.Item{
		movieItem("m1", "550", "Fight Club"),
		movieItem("m2", "550", "Fight Club"),
	}}
	engine, store := newTestEngine(t, server, provider)
	ctx := context.Background()

	_, err := engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, getRecord(t, store, "550", library.EntityMovie).EmbyItemIDs)

	server.remove("m1")
	res, err := engine.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Offline, "the other copy still backs the record")
	assert.Equal(t, 1, res.Updated)

	movie := getRecord(t, store, "550", library.EntityMovie)
	assert.True(t, movie.InLibrary)
	assert.Equal(t, []string{"m2"}, movie.EmbyItemIDs)
}

func TestEngine_Run_VanishedEpisodeRefreshesSeries(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Series(gomock.Any(), int64(1399), false).
		Return(aggregate(1399, "Returning Series", 2), nil).Times(2)

	server := &fakeServer{items: []emby.Item{
		seriesItem("s1", "1399", "Show"),
		episodeItem("e1", "s1", 1, 1),
		episodeItem("e2", "s1", 1, 2),
	}}
	engine, store := newTestEngine(t, server, provider)
	ctx := context.Background()

	res, err := engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Created, "series, season derived from episodes, two episodes")

	server.remove("e2")
	res, err = engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dirty)
	assert.Zero(t, res.Offline)
	assert.Equal(t, 1, res.ChildrenOffline)

	assert.False(t, getRecord(t, store, "1002", library.EntityEpisode).InLibrary)
	assert.True(t, getRecord(t, store, "1001", library.EntityEpisode).InLibrary)
	assert.True(t, getRecord(t, store, "1399", library.EntitySeries).InLibrary)
}

func TestEngine_Run_LooksUpEpisodesMissingFromAggregate(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Series(gomock.Any(), int64(1399), false).
		Return(aggregate(1399, "Returning Series", 3), nil)
	provider.EXPECT().Episode(gomock.Any(), int64(1399), 1, 5).
		Return(&tmdb.Episode{ID: 5005, Name: "Five", SeasonNumber: 1, EpisodeNumber: 5}, nil)
	provider.EXPECT().Episode(gomock.Any(), int64(1399), 1, 6).
		Return(nil, tmdb.ErrNotFound)

	server := &fakeServer{items: []emby.Item{
		seriesItem("s1", "1399", "Show"),
		episodeItem("e1", "s1", 1, 1),
		episodeItem("e5", "s1", 1, 5),
		episodeItem("e6", "s1", 1, 6),
		episodeItem("x1", "s1", 2, 1), // season unknown upstream: no lookup
	}}
	engine, store := newTestEngine(t, server, provider)

	res, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.FetchErrors)
	assert.Empty(t, res.Failures)

	assert.Equal(t, "Five", getRecord(t, store, "5005", library.EntityEpisode).Title)
	assert.Equal(t, []string{"e6"}, getRecord(t, store, "1399_S1E6", library.EntityEpisode).EmbyItemIDs)
	assert.True(t, getRecord(t, store, "1399_S2E1", library.EntityEpisode).InLibrary)
}

func TestEngine_Run_SeriesRemovedTakesChildren(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Series(gomock.Any(), int64(1399), false).
		Return(aggregate(1399, "Ended", 1), nil).Times(1)

	server := &fakeServer{items: []emby.Item{
		seriesItem("s1", "1399", "Show"),
		seasonItem("se1", "s1", 1),
		episodeItem("e1", "s1", 1, 1),
	}}
	engine, store := newTestEngine(t, server, provider)
	ctx := context.Background()

	_, err := engine.Run(ctx)
	require.NoError(t, err)

	server.items = nil
	res, err := engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Offline)
	assert.Equal(t, 2, res.ChildrenOffline)
	assert.Zero(t, res.Dirty)

	for _, key := range []library.Key{
		{TMDBID: "1399", Type: library.EntitySeries},
		{TMDBID: "101", Type: library.EntitySeason},
		{TMDBID: "1001", Type: library.EntityEpisode},
	} {
		r, err := store.Get(key)
		require.NoError(t, err)
		assert.False(t, r.InLibrary, key.String())
	}
}

func TestEngine_Run_LockedTotalSurvives(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Series(gomock.Any(), int64(1399), false).
		Return(aggregate(1399, "Returning Series", 10), nil)

	server := &fakeServer{items: []emby.Item{seriesItem("s1", "1399", "Show")}}
	engine, store := newTestEngine(t, server, provider)

	_, err := store.Upsert(&library.Record{TMDBID: "1399", Type: library.EntitySeries, Title: "Show"})
	require.NoError(t, err)
	require.NoError(t, store.SetTotalEpisodes(library.Key{TMDBID: "1399", Type: library.EntitySeries}, 12, true))

	res, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	series := getRecord(t, store, "1399", library.EntitySeries)
	assert.Equal(t, 12, series.TotalEpisodes)
	assert.True(t, series.TotalEpisodesLocked)
	assert.True(t, series.InLibrary)
}

func TestEngine_Run_FetchFailureIsolated(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Movie(gomock.Any(), int64(550)).
		Return(&tmdb.Movie{ID: 550, Title: "Fight Club"}, nil).Times(1)
	provider.EXPECT().Movie(gomock.Any(), int64(603)).
		Return(nil, tmdb.ErrRateLimited).Times(2)

	server := &fakeServer{items: []emby.Item{
		movieItem("m1", "550", "Fight Club"),
		movieItem("m2", "603", "The Matrix"),
	}}
	engine, store := newTestEngine(t, server, provider)
	ctx := context.Background()

	res, err := engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	require.Len(t, res.FetchErrors, 1)
	assert.Equal(t, "603", res.FetchErrors[0].Key.TMDBID)
	assert.ErrorIs(t, res.FetchErrors[0], tmdb.ErrRateLimited)

	_, err = store.Get(library.Key{TMDBID: "603", Type: library.EntityMovie})
	assert.ErrorIs(t, err, library.ErrNotFound)

	// The failed entity is retried on the next cycle.
	res, err = engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dirty)
	assert.Len(t, res.FetchErrors, 1)
}

func TestEngine_Run_NotConfigured(t *testing.T) {
	store := library.NewStore(setupTestDB(t))
	server := &fakeServer{}
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)

	_, err := New(nil, provider, store, nil, testOptions, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(server, nil, store, nil, testOptions, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(server, provider, store, nil, Options{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestEngine_Run_ScanErrorWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	server := mocks.NewMockMediaServer(ctrl)

	engine, store := newTestEngine(t, server, provider)
	_, err := store.Upsert(&library.Record{
		TMDBID: "550", Type: library.EntityMovie, InLibrary: true, EmbyItemIDs: []string{"m1"},
	})
	require.NoError(t, err)

	boom := errors.New("connection reset")
	server.EXPECT().Items(gomock.Any(), gomock.Any()).Return(iter.Seq2[emby.Item, error](
		func(yield func(emby.Item, error) bool) {
			yield(emby.Item{}, boom)
		}))

	_, err = engine.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.True(t, getRecord(t, store, "550", library.EntityMovie).InLibrary, "a failed scan must not retire anything")
}

func TestEngine_Run_StopsBetweenBatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)

	server := &fakeServer{items: []emby.Item{movieItem("m1", "550", "Fight Club")}}
	engine, store := newTestEngine(t, server, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := engine.Run(ctx)
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.Zero(t, res.Created)
	assert.Zero(t, server.getCalls)

	_, err = store.Get(library.Key{TMDBID: "550", Type: library.EntityMovie})
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestEngine_Run_StopLetsBatchFinish(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)

	stop, cancel := context.WithCancel(context.Background())
	defer cancel()
	slowMovie := func(ctx context.Context, id int64) (*tmdb.Movie, error) {
		cancel()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(30 * time.Millisecond):
			return &tmdb.Movie{ID: id, Title: "Movie"}, nil
		}
	}
	provider.EXPECT().Movie(gomock.Any(), int64(550)).DoAndReturn(slowMovie)
	provider.EXPECT().Movie(gomock.Any(), int64(603)).DoAndReturn(slowMovie)

	// 680 sorts into the second batch, which must never start.
	server := &fakeServer{items: []emby.Item{
		movieItem("m1", "550", "Fight Club"),
		movieItem("m2", "603", "The Matrix"),
		movieItem("m3", "680", "Pulp Fiction"),
	}}
	store := library.NewStore(setupTestDB(t))
	opts := testOptions
	opts.BatchSize = 2
	opts.DrainTimeout = time.Minute
	engine := New(server, provider, store, nil, opts, testLogger())

	res, err := engine.Run(stop)
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.Equal(t, 2, res.Created, "the batch in flight finishes")
	assert.Empty(t, res.FetchErrors)

	_, err = store.Get(library.Key{TMDBID: "680", Type: library.EntityMovie})
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestEngine_Run_StopDuringLastBatchIsInterrupted(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)

	stop, cancel := context.WithCancel(context.Background())
	defer cancel()
	provider.EXPECT().Movie(gomock.Any(), int64(550)).DoAndReturn(
		func(ctx context.Context, id int64) (*tmdb.Movie, error) {
			cancel()
			return &tmdb.Movie{ID: id, Title: "Fight Club"}, nil
		})

	server := &fakeServer{items: []emby.Item{movieItem("m1", "550", "Fight Club")}}
	engine, _ := newTestEngine(t, server, provider)

	res, err := engine.Run(stop)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.True(t, res.Interrupted)
}

func TestEngine_Run_DrainTimeoutBoundsBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)

	stop, cancel := context.WithCancel(context.Background())
	defer cancel()
	provider.EXPECT().Movie(gomock.Any(), int64(550)).DoAndReturn(
		func(ctx context.Context, id int64) (*tmdb.Movie, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		})

	server := &fakeServer{items: []emby.Item{movieItem("m1", "550", "Fight Club")}}
	store := library.NewStore(setupTestDB(t))
	opts := testOptions
	opts.DrainTimeout = 10 * time.Millisecond
	engine := New(server, provider, store, nil, opts, testLogger())

	res, err := engine.Run(stop)
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	require.Len(t, res.FetchErrors, 1)
	assert.ErrorIs(t, res.FetchErrors[0], context.Canceled)
}

// countingProvider serves aggregates and counts upstream fetches.
type countingProvider struct {
	series atomic.Int32
}

func (p *countingProvider) GetMovie(_ context.Context, id int64) (*tmdb.Movie, error) {
	return &tmdb.Movie{ID: id, Title: "Movie"}, nil
}

func (p *countingProvider) GetEpisode(_ context.Context, id int64, season, episode int) (*tmdb.Episode, error) {
	return nil, tmdb.ErrNotFound
}

func (p *countingProvider) GetSeriesAggregate(_ context.Context, id int64) (*tmdb.SeriesAggregate, error) {
	p.series.Add(1)
	return aggregate(id, "Returning Series", 3), nil
}

func TestEngine_Run_ServesSeriesFromCache(t *testing.T) {
	db := setupTestDB(t)
	upstream := &countingProvider{}
	meta := metadata.NewService(upstream, metadata.NewCache(db), time.Hour, testLogger())

	server := &fakeServer{items: []emby.Item{
		seriesItem("s1", "1399", "Show"),
		seasonItem("se1", "s1", 1),
		episodeItem("e1", "s1", 1, 1),
	}}
	store := library.NewStore(db)
	engine := New(server, meta, store, nil, testOptions, testLogger())
	ctx := context.Background()

	_, err := engine.Run(ctx)
	require.NoError(t, err)

	// A new episode dirties the series again within the cache TTL.
	server.items = append(server.items, episodeItem("e2", "s1", 1, 2))
	res, err := engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dirty)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, int32(1), upstream.series.Load(), "second sync is served from cache")
	assert.Equal(t, []string{"e2"}, getRecord(t, store, "1002", library.EntityEpisode).EmbyItemIDs)
}

func TestEngine_Run_PublishesSummary(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Movie(gomock.Any(), int64(550)).Return(&tmdb.Movie{ID: 550, Title: "Fight Club"}, nil)

	bus := events.NewBus(nil, testLogger())
	defer func() { _ = bus.Close() }()
	ch := bus.Subscribe(1, events.EventReconcileCompleted)

	store := library.NewStore(setupTestDB(t))
	server := &fakeServer{items: []emby.Item{movieItem("m1", "550", "Fight Club")}}
	engine := New(server, provider, store, bus, testOptions, testLogger())

	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	e := <-ch
	done, ok := e.(*events.ReconcileCompleted)
	require.True(t, ok)
	assert.Equal(t, 1, done.Created)
	assert.Equal(t, events.CycleReconcile, done.EntityID())
}
