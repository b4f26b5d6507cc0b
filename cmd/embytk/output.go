package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
)

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// formatTimeAgo renders t relative to now, or "-" for the zero time.
func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// formatNextEpisode renders a watch pointer as "S01E02 (2024-03-01)".
func formatNextEpisode(n *library.NextEpisode) string {
	if n == nil {
		return "-"
	}
	s := fmt.Sprintf("S%02dE%02d", n.Season, n.Episode)
	if n.AirDate != "" {
		s += " (" + n.AirDate + ")"
	}
	return s
}

// formatMissing summarises a gap record as "S2, S3 +5 eps".
func formatMissing(m *library.MissingInfo) string {
	if m.Empty() {
		return "-"
	}
	var parts []string
	if len(m.Seasons) > 0 {
		seasons := make([]string, len(m.Seasons))
		for i, s := range m.Seasons {
			seasons[i] = fmt.Sprintf("S%d", s)
		}
		parts = append(parts, strings.Join(seasons, ", "))
	}
	eps := 0
	for _, e := range m.Episodes {
		eps += len(e)
	}
	if eps > 0 {
		parts = append(parts, fmt.Sprintf("+%d eps", eps))
	}
	return strings.Join(parts, " ")
}
