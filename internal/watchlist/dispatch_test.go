package watchlist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
	"github.com/qf-luck/emby-toolkit-sub001/internal/moviepilot"
	"github.com/qf-luck/emby-toolkit-sub001/internal/watchlist/mocks"
)

func TestHomogeneous(t *testing.T) {
	rec := func(assets ...library.AssetDetail) *library.Record {
		return &library.Record{AssetDetails: assets}
	}
	a := library.AssetDetail{Resolution: "1080p", VideoCodec: "h264", ReleaseGroup: "GRP"}
	b := a
	b.ReleaseGroup = "OTHER"

	assert.True(t, Homogeneous(nil))
	assert.True(t, Homogeneous([]*library.Record{rec(a), rec(a), rec()}))
	assert.False(t, Homogeneous([]*library.Record{rec(a), rec(b)}))
	assert.False(t, Homogeneous([]*library.Record{rec(a, b)}), "two versions of one episode")
}

func TestDispatcher_UpgradeSkipsUniformSeason(t *testing.T) {
	ctrl := gomock.NewController(t)
	subs := mocks.NewMockSubscriptions(ctrl)

	store := library.NewStore(setupTestDB(t))
	r := seedSeries(t, store, "1399", "Show", library.StatusWatching)
	seedEpisode(t, store, "1399", 1, 1, "1080p", "GRP")
	seedEpisode(t, store, "1399", 1, 2, "1080p", "GRP")
	seedEpisode(t, store, "1399", 2, 1, "720p", "OLD")

	d := NewDispatcher(subs, nil, store, DispatchOptions{}, testLogger())
	upgraded, err := d.Upgrade(context.Background(), r, 1)
	require.NoError(t, err)
	assert.False(t, upgraded)
}

func TestDispatcher_UpgradeResubscribes(t *testing.T) {
	ctrl := gomock.NewController(t)
	subs := mocks.NewMockSubscriptions(ctrl)

	store := library.NewStore(setupTestDB(t))
	r := seedSeries(t, store, "1399", "Show", library.StatusWatching)
	seedEpisode(t, store, "1399", 1, 1, "1080p", "GRP")
	seedEpisode(t, store, "1399", 1, 2, "720p", "OLD")

	existing := &moviepilot.Subscription{ID: 7, TMDBID: 1399, Season: 1, State: moviepilot.StateRunning}
	gomock.InOrder(
		subs.EXPECT().FindSubscription(gomock.Any(), int64(1399), 1).Return(existing, nil),
		subs.EXPECT().CancelSubscription(gomock.Any(), 7).Return(nil),
		subs.EXPECT().Subscribe(gomock.Any(), moviepilot.SubscribeRequest{
			Name: "Show", TMDBID: 1399, Season: 1, State: moviepilot.StateRunning, Upgrade: true,
		}).Return(8, nil),
	)

	d := NewDispatcher(subs, nil, store, DispatchOptions{}, testLogger())
	upgraded, err := d.Upgrade(context.Background(), r, 1)
	require.NoError(t, err)
	assert.True(t, upgraded)
}

func TestDispatcher_UpgradeDeletesOldFiles(t *testing.T) {
	ctrl := gomock.NewController(t)
	subs := mocks.NewMockSubscriptions(ctrl)
	server := mocks.NewMockMediaServer(ctrl)

	store := library.NewStore(setupTestDB(t))
	r := seedSeries(t, store, "1399", "Show", library.StatusWatching)
	seedEpisode(t, store, "1399", 1, 1, "1080p", "GRP")
	seedEpisode(t, store, "1399", 1, 2, "720p", "OLD")

	server.EXPECT().DeleteItem(gomock.Any(), "1399-s01e01").Return(nil)
	server.EXPECT().DeleteItem(gomock.Any(), "1399-s01e02").Return(nil)

	matching := []moviepilot.TransferRecord{
		{ID: 1, TMDBID: 1399, Seasons: "S01", Hash: "abc"},
		{ID: 2, TMDBID: 1399, Seasons: "S01", Hash: "abc"},
	}
	history := append([]moviepilot.TransferRecord{
		{ID: 3, TMDBID: 1399, Seasons: "S02", Hash: "def"},
		{ID: 4, TMDBID: 42, Seasons: "S01", Hash: "ghi"},
	}, matching...)
	subs.EXPECT().TransferHistory(gomock.Any(), "Show").Return(history, nil)
	subs.EXPECT().DeleteTransferHistory(gomock.Any(), matching[0]).Return(nil)
	subs.EXPECT().DeleteTransferHistory(gomock.Any(), matching[1]).Return(nil)
	subs.EXPECT().DeleteDownloadTask(gomock.Any(), "abc").Return(nil).Times(1)
	subs.EXPECT().FindSubscription(gomock.Any(), int64(1399), 1).Return(nil, nil)
	subs.EXPECT().Subscribe(gomock.Any(), gomock.Any()).Return(9, nil)

	d := NewDispatcher(subs, server, store, DispatchOptions{DeleteOnUpgrade: true}, testLogger())
	upgraded, err := d.Upgrade(context.Background(), r, 1)
	require.NoError(t, err)
	assert.True(t, upgraded)
}

func TestDispatcher_UpgradeStopsWhenPurgeFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	subs := mocks.NewMockSubscriptions(ctrl)

	store := library.NewStore(setupTestDB(t))
	r := seedSeries(t, store, "1399", "Show", library.StatusWatching)
	seedEpisode(t, store, "1399", 1, 1, "1080p", "GRP")
	seedEpisode(t, store, "1399", 1, 2, "720p", "OLD")

	subs.EXPECT().TransferHistory(gomock.Any(), "Show").Return(nil, moviepilot.ErrUnavailable)

	d := NewDispatcher(subs, nil, store, DispatchOptions{DeleteOnUpgrade: true}, testLogger())
	upgraded, err := d.Upgrade(context.Background(), r, 1)
	assert.ErrorIs(t, err, moviepilot.ErrUnavailable)
	assert.False(t, upgraded)
}

func TestDispatcher_MirrorPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	subs := mocks.NewMockSubscriptions(ctrl)

	agg := series("Returning Series", season(1, pastDates(8, -300)...), season(2, daysFromNow(-3)))
	r := &library.Record{TMDBID: "1399", Type: library.EntitySeries, Title: "Show"}

	subs.EXPECT().FindSubscription(gomock.Any(), int64(1399), 1).
		Return(&moviepilot.Subscription{ID: 3, Season: 1, State: moviepilot.StateRunning, TotalEpisode: 8}, nil)
	subs.EXPECT().FindSubscription(gomock.Any(), int64(1399), 2).Return(nil, nil)
	subs.EXPECT().Subscribe(gomock.Any(), moviepilot.SubscribeRequest{
		Name: "Show", TMDBID: 1399, Season: 2, State: moviepilot.StatePending, TotalEpisode: 99,
	}).Return(4, nil)

	d := NewDispatcher(subs, nil, nil, DispatchOptions{PendingPlaceholder: 99}, testLogger())
	state, err := d.Mirror(context.Background(), r, library.StatusPending, Inventory{1: episodes(1, 8)}, agg)
	require.NoError(t, err)
	assert.Equal(t, moviepilot.StatePending, state)
}

func TestDispatcher_MirrorWatchingNeverResurrectsOldSeasons(t *testing.T) {
	ctrl := gomock.NewController(t)
	subs := mocks.NewMockSubscriptions(ctrl)

	agg := series("Returning Series",
		season(1, pastDates(8, -600)...),
		season(2, pastDates(8, -300)...),
		season(3, daysFromNow(-7), daysFromNow(0), daysFromNow(7)),
	)
	r := &library.Record{TMDBID: "1399", Type: library.EntitySeries, Title: "Show"}

	stopped := &moviepilot.Subscription{ID: 5, Season: 3, State: moviepilot.StateStopped, TotalEpisode: 2}
	subs.EXPECT().FindSubscription(gomock.Any(), int64(1399), 2).Return(nil, nil)
	subs.EXPECT().FindSubscription(gomock.Any(), int64(1399), 3).Return(stopped, nil)
	subs.EXPECT().UpdateSubscription(gomock.Any(), stopped, moviepilot.StateRunning, 3).Return(nil)

	d := NewDispatcher(subs, nil, nil, DispatchOptions{}, testLogger())
	state, err := d.Mirror(context.Background(), r, library.StatusWatching,
		Inventory{2: episodes(1, 8), 3: {1}}, agg)
	require.NoError(t, err)
	assert.Equal(t, moviepilot.StateRunning, state)
}

func TestDispatcher_MirrorPausedKeepsTotal(t *testing.T) {
	ctrl := gomock.NewController(t)
	subs := mocks.NewMockSubscriptions(ctrl)

	agg := series("Returning Series", season(1, daysFromNow(-7), daysFromNow(30)))
	r := &library.Record{TMDBID: "1399", Type: library.EntitySeries, Title: "Show"}

	subs.EXPECT().FindSubscription(gomock.Any(), int64(1399), 1).
		Return(&moviepilot.Subscription{ID: 5, Season: 1, State: moviepilot.StateRunning, TotalEpisode: 12}, nil)

	d := NewDispatcher(subs, nil, nil, DispatchOptions{}, testLogger())
	_, err := d.Mirror(context.Background(), r, library.StatusPaused, Inventory{1: {1}}, agg)
	require.NoError(t, err)
}

func TestDispatcher_MirrorCompletedIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	subs := mocks.NewMockSubscriptions(ctrl)

	agg := series("Ended", season(1, pastDates(3, -30)...))
	r := &library.Record{TMDBID: "1399", Type: library.EntitySeries}

	d := NewDispatcher(subs, nil, nil, DispatchOptions{}, testLogger())
	state, err := d.Mirror(context.Background(), r, library.StatusCompleted, Inventory{1: {1, 2, 3}}, agg)
	require.NoError(t, err)
	assert.Empty(t, state)
}

func TestDispatcher_MirrorContinuesPastErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	subs := mocks.NewMockSubscriptions(ctrl)

	agg := series("Returning Series", season(1, pastDates(8, -300)...), season(2, daysFromNow(-3), daysFromNow(4)))
	r := &library.Record{TMDBID: "1399", Type: library.EntitySeries, Title: "Show"}

	boom := errors.New("timeout")
	subs.EXPECT().FindSubscription(gomock.Any(), int64(1399), 1).Return(nil, boom)
	subs.EXPECT().FindSubscription(gomock.Any(), int64(1399), 2).Return(nil, nil)
	subs.EXPECT().Subscribe(gomock.Any(), gomock.Any()).Return(1, nil)

	d := NewDispatcher(subs, nil, nil, DispatchOptions{}, testLogger())
	_, err := d.Mirror(context.Background(), r, library.StatusWatching, Inventory{1: episodes(1, 8), 2: {1}}, agg)
	assert.ErrorIs(t, err, boom)
}
