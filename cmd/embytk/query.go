package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
)

var queryCmd = &cobra.Command{
	Use:   "query [title]",
	Short: "Search the mirrored library",
	Long: `Search the local mirror by title and asset attributes. Filters combine
with AND; comma-separated values within one filter combine with OR.

Examples:
  embytk query "matrix"
  embytk query --type Movie --resolution 2160p --audio chi
  embytk query --type Series --status Watching,Paused
  embytk query --certification US:R,NC-17 --min-rating 7.5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQueryCmd,
}

type queryFlags struct {
	title         string
	itemType      string
	resolution    []string
	audio         []string
	subtitle      []string
	group         []string
	library       []string
	status        []string
	certification string
	minRating     float64
	yearFrom      int
	yearTo        int
	exclude       []string
}

var qf queryFlags

func init() {
	rootCmd.AddCommand(queryCmd)
	f := queryCmd.Flags()
	f.StringVar(&qf.itemType, "type", "", "Movie, Series, Season or Episode")
	f.StringSliceVar(&qf.resolution, "resolution", nil, "Resolutions, e.g. 2160p,1080p")
	f.StringSliceVar(&qf.audio, "audio", nil, "Audio languages")
	f.StringSliceVar(&qf.subtitle, "subtitle", nil, "Subtitle languages")
	f.StringSliceVar(&qf.group, "group", nil, "Release groups")
	f.StringSliceVar(&qf.library, "library", nil, "Source library ids")
	f.StringSliceVar(&qf.status, "status", nil, "Watching statuses")
	f.StringVar(&qf.certification, "certification", "", "COUNTRY:RATING[,RATING...]")
	f.Float64Var(&qf.minRating, "min-rating", 0, "Minimum provider rating")
	f.IntVar(&qf.yearFrom, "year-from", 0, "Earliest release year")
	f.IntVar(&qf.yearTo, "year-to", 0, "Latest release year")
	f.StringSliceVar(&qf.exclude, "exclude-group", nil, "Release groups to exclude")
	f.IntP("limit", "n", 50, "Maximum results")
	f.Int("offset", 0, "Skip this many results")
}

// buildPredicate turns query flags into one conjunctive filter.
func buildPredicate(f queryFlags) (library.Predicate, error) {
	var and library.And

	if f.title != "" {
		and = append(and, library.TextMatch{Field: library.FieldTitle, Value: f.title, Mode: library.TextContains})
	}
	if f.itemType != "" {
		t, err := parseEntityType(f.itemType,
			library.EntityMovie, library.EntitySeries, library.EntitySeason, library.EntityEpisode)
		if err != nil {
			return nil, err
		}
		and = append(and, library.TextMatch{Field: library.FieldItemType, Value: string(t)})
	}

	for _, arr := range []struct {
		field  library.ArrayField
		values []string
	}{
		{library.FieldResolution, f.resolution},
		{library.FieldAudioLanguage, f.audio},
		{library.FieldSubtitleLanguage, f.subtitle},
		{library.FieldReleaseGroup, f.group},
		{library.FieldSourceLibrary, f.library},
	} {
		if len(arr.values) > 0 {
			and = append(and, library.ArrayContains{Field: arr.field, Values: arr.values})
		}
	}
	if len(f.exclude) > 0 {
		and = append(and, library.Not{P: library.ArrayContains{Field: library.FieldReleaseGroup, Values: f.exclude}})
	}

	if len(f.status) > 0 {
		var or library.Or
		for _, s := range f.status {
			st, err := parseWatchingStatus(s)
			if err != nil {
				return nil, err
			}
			or = append(or, library.TextMatch{Field: library.FieldWatchingStatus, Value: string(st)})
		}
		and = append(and, or)
	}

	if f.certification != "" {
		country, values, ok := strings.Cut(f.certification, ":")
		if !ok || country == "" || values == "" {
			return nil, fmt.Errorf("invalid certification %q (want COUNTRY:RATING)", f.certification)
		}
		and = append(and, library.OfficialRatingIs{Country: strings.ToUpper(country), Values: strings.Split(values, ",")})
	}

	if f.minRating > 0 {
		and = append(and, library.NumberRange{Field: library.FieldRating, Min: &f.minRating})
	}
	if f.yearFrom > 0 || f.yearTo > 0 {
		r := library.NumberRange{Field: library.FieldReleaseYear}
		if f.yearFrom > 0 {
			from := float64(f.yearFrom)
			r.Min = &from
		}
		if f.yearTo > 0 {
			to := float64(f.yearTo)
			r.Max = &to
		}
		and = append(and, r)
	}
	return and, nil
}

func runQueryCmd(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	f := qf
	if len(args) > 0 {
		f.title = args[0]
	}
	p, err := buildPredicate(f)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	records, total, err := a.store.Query(p, limit, offset)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]any{"total": total, "items": records})
		return nil
	}
	if len(records) == 0 {
		fmt.Println("No matches")
		return nil
	}

	fmt.Printf("%d of %d matches:\n\n", len(records), total)
	fmt.Printf("  %-14s %-8s %-36s %-6s %-10s %s\n", "TMDB", "TYPE", "TITLE", "YEAR", "RES", "STATE")
	fmt.Println("  " + strings.Repeat("-", 90))
	for _, r := range records {
		year := "-"
		if len(r.ReleaseDate) >= 4 {
			year = r.ReleaseDate[:4]
		}
		res := "-"
		if len(r.AssetDetails) > 0 && r.AssetDetails[0].Resolution != "" {
			res = r.AssetDetails[0].Resolution
		}
		state := "online"
		if !r.InLibrary {
			state = "offline"
		}
		fmt.Printf("  %-14s %-8s %-36s %-6s %-10s %s\n", r.TMDBID, r.Type, truncate(r.Title, 36), year, res, state)
	}
	return nil
}
