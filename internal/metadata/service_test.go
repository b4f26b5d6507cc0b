package metadata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qf-luck/emby-toolkit-sub001/internal/tmdb"
)

type fakeProvider struct {
	movieCalls   int
	seriesCalls  int
	episodeCalls int
	forgotten    []int64
	seriesName   string
	err          error
}

func (f *fakeProvider) GetEpisode(_ context.Context, id int64, season, episode int) (*tmdb.Episode, error) {
	f.episodeCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &tmdb.Episode{ID: id*100 + int64(episode), SeasonNumber: season, EpisodeNumber: episode}, nil
}

func (f *fakeProvider) Forget(id int64) {
	f.forgotten = append(f.forgotten, id)
}

func (f *fakeProvider) GetMovie(_ context.Context, id int64) (*tmdb.Movie, error) {
	f.movieCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &tmdb.Movie{ID: id, Title: "Alien"}, nil
}

func (f *fakeProvider) GetSeriesAggregate(_ context.Context, id int64) (*tmdb.SeriesAggregate, error) {
	f.seriesCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &tmdb.SeriesAggregate{
		Series: &tmdb.TV{ID: id, Name: f.seriesName, Status: "Returning Series"},
		Seasons: []*tmdb.Season{{
			SeasonNumber: 1,
			Episodes:     []tmdb.Episode{{SeasonNumber: 1, EpisodeNumber: 1, AirDate: "2025-01-01"}},
		}},
	}, nil
}

func newTestService(t *testing.T, p Provider) *Service {
	t.Helper()
	cache, _ := newTestCache(t)
	return NewService(p, cache, time.Hour, nil)
}

func TestService_MovieCached(t *testing.T) {
	p := &fakeProvider{}
	svc := newTestService(t, p)
	ctx := context.Background()

	m, err := svc.Movie(ctx, 348)
	require.NoError(t, err)
	assert.Equal(t, "Alien", m.Title)

	_, err = svc.Movie(ctx, 348)
	require.NoError(t, err)
	assert.Equal(t, 1, p.movieCalls)
}

func TestService_SeriesFresh(t *testing.T) {
	p := &fakeProvider{seriesName: "Before"}
	svc := newTestService(t, p)
	ctx := context.Background()

	agg, err := svc.Series(ctx, 1399, false)
	require.NoError(t, err)
	assert.Equal(t, "Before", agg.Series.Name)
	require.Len(t, agg.Episodes(), 1)

	p.seriesName = "After"
	agg, err = svc.Series(ctx, 1399, false)
	require.NoError(t, err)
	assert.Equal(t, "Before", agg.Series.Name, "served from cache")

	agg, err = svc.Series(ctx, 1399, true)
	require.NoError(t, err)
	assert.Equal(t, "After", agg.Series.Name)
	assert.Equal(t, 2, p.seriesCalls)

	agg, err = svc.Series(ctx, 1399, false)
	require.NoError(t, err)
	assert.Equal(t, "After", agg.Series.Name, "fresh fetch refreshes the cache")
}

func TestService_Invalidate(t *testing.T) {
	p := &fakeProvider{}
	svc := newTestService(t, p)
	ctx := context.Background()

	_, err := svc.Series(ctx, 1, false)
	require.NoError(t, err)
	_, err = svc.Episode(ctx, 1, 1, 9)
	require.NoError(t, err)
	_, err = svc.Episode(ctx, 12, 1, 9)
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(ctx, 1))
	assert.Equal(t, []int64{1}, p.forgotten)

	_, err = svc.Series(ctx, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 2, p.seriesCalls)

	_, err = svc.Episode(ctx, 1, 1, 9)
	require.NoError(t, err)
	_, err = svc.Episode(ctx, 12, 1, 9)
	require.NoError(t, err)
	assert.Equal(t, 3, p.episodeCalls, "only the invalidated series' episodes are refetched")
}

func TestService_EpisodeCached(t *testing.T) {
	p := &fakeProvider{}
	svc := newTestService(t, p)
	ctx := context.Background()

	e, err := svc.Episode(ctx, 1399, 2, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(139911), e.ID)

	_, err = svc.Episode(ctx, 1399, 2, 11)
	require.NoError(t, err)
	assert.Equal(t, 1, p.episodeCalls)
}

func TestService_ErrorNotCached(t *testing.T) {
	p := &fakeProvider{err: tmdb.ErrNotFound}
	svc := newTestService(t, p)
	ctx := context.Background()

	_, err := svc.Series(ctx, 1, false)
	assert.True(t, errors.Is(err, tmdb.ErrNotFound))

	p.err = nil
	_, err = svc.Series(ctx, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 2, p.seriesCalls)
}
