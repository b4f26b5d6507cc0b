package library

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPredicateRecords(t *testing.T, store *Store) {
	t.Helper()
	records := []*Record{
		{
			TMDBID: "1", Type: EntityMovie, Title: "Alien", ReleaseDate: "1979-05-25", Rating: 8.5, InLibrary: true,
			EmbyItemIDs:    []string{"a"},
			OfficialRating: map[string]string{"US": "R"},
			AssetDetails: []AssetDetail{{
				EmbyItemID: "a", Resolution: "2160p", AudioLanguages: []string{"eng", "fre"}, SubtitleLanguages: []string{"chi"},
			}},
		},
		{
			TMDBID: "2", Type: EntityMovie, Title: "Aliens", ReleaseDate: "1986-07-18", Rating: 8.4, InLibrary: true,
			EmbyItemIDs:    []string{"b"},
			OfficialRating: map[string]string{"US": "R"},
			AssetDetails:   []AssetDetail{{EmbyItemID: "b", Resolution: "1080p", AudioLanguages: []string{"eng"}}},
		},
		{
			TMDBID: "3", Type: EntitySeries, Title: "100% Real", ReleaseDate: "2020-01-01", Rating: 6.1, InLibrary: true,
			EmbyItemIDs:    []string{"c"},
			OfficialRating: map[string]string{"US": "TV-14"},
			AssetDetails:   []AssetDetail{{EmbyItemID: "c", Resolution: "1080p", AudioLanguages: []string{"jpn"}}},
		},
	}
	for _, r := range records {
		_, err := store.Upsert(r)
		require.NoError(t, err)
	}
}

func titles(records []*Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Title)
	}
	return out
}

func TestStore_Query(t *testing.T) {
	store := NewStore(setupTestDB(t))
	seedPredicateRecords(t, store)

	tests := []struct {
		name string
		p    Predicate
		want []string
	}{
		{"nil matches all", nil, []string{"100% Real", "Alien", "Aliens"}},
		{"audio any", ArrayContains{Field: FieldAudioLanguage, Values: []string{"fre", "jpn"}}, []string{"100% Real", "Alien"}},
		{"audio all", ArrayContains{Field: FieldAudioLanguage, Values: []string{"eng", "fre"}, All: true}, []string{"Alien"}},
		{"resolution", ArrayContains{Field: FieldResolution, Values: []string{"1080p"}}, []string{"100% Real", "Aliens"}},
		{"year range", NumberRange{Field: FieldReleaseYear, Min: ptr(1980.0), Max: ptr(2000.0)}, []string{"Aliens"}},
		{"rating floor", NumberRange{Field: FieldRating, Min: ptr(8.45)}, []string{"Alien"}},
		{"prefix", TextMatch{Field: FieldTitle, Value: "ali", Mode: TextPrefix}, []string{"Alien", "Aliens"}},
		{"contains escapes percent", TextMatch{Field: FieldTitle, Value: "0%", Mode: TextContains}, []string{"100% Real"}},
		{"rating country", OfficialRatingIs{Country: "US", Values: []string{"TV-14"}}, []string{"100% Real"}},
		{
			"and/not",
			And{TextMatch{Field: FieldItemType, Value: "Movie"}, Not{P: ArrayContains{Field: FieldResolution, Values: []string{"2160p"}}}},
			[]string{"Aliens"},
		},
		{"empty or", Or{}, nil},
		{"or", Or{TextMatch{Field: FieldTitle, Value: "Alien"}, TextMatch{Field: FieldItemType, Value: "Series"}}, []string{"100% Real", "Alien"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := store.Query(tt.p, 0, 0)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), total)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func TestCompilePredicate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		p    Predicate
	}{
		{"unknown array field", ArrayContains{Field: "genres", Values: []string{"x"}}},
		{"no values", ArrayContains{Field: FieldAudioLanguage}},
		{"open range", NumberRange{Field: FieldRating}},
		{"inverted range", NumberRange{Field: FieldRating, Min: ptr(9.0), Max: ptr(1.0)}},
		{"unknown text field", TextMatch{Field: "path; DROP TABLE", Value: "x"}},
		{"empty not", Not{}},
		{"nested nil", And{nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := CompilePredicate(tt.p)
			assert.True(t, errors.Is(err, ErrInvalidPredicate), "got %v", err)
		})
	}
}

func TestCompilePredicate_ValuesAreParameters(t *testing.T) {
	sql, args, err := CompilePredicate(TextMatch{Field: FieldTitle, Value: "'; DROP TABLE media_metadata; --"})
	require.NoError(t, err)
	assert.Equal(t, "title = ?", sql)
	assert.Equal(t, []any{"'; DROP TABLE media_metadata; --"}, args)
}
