package reconcile

import (
	"iter"
	"log/slog"
	"slices"

	"github.com/qf-luck/emby-toolkit-sub001/internal/emby"
	"github.com/qf-luck/emby-toolkit-sub001/internal/library"
)

// cycleState holds the identity maps of one cycle. It is built by the scan,
// read by the diff and the synchronizer, and discarded when Run returns.
type cycleState struct {
	known map[string]library.OnlineRef // item id -> owning record, as of cycle start

	seen         map[string]bool          // item ids listed by this scan
	moved        map[string]bool          // known ids now backing a different record
	seriesByItem map[string]string        // series item id -> series tmdb id
	itemsByKey   map[library.Key][]string // top-level key -> item ids
	keyOf        map[string]library.Key   // top-level item id -> key
	libraryOf    map[string]string        // item id -> library id
	dirty        map[library.Key]bool
}

func newCycleState(known map[string]library.OnlineRef) *cycleState {
	return &cycleState{
		known:        known,
		seen:         make(map[string]bool),
		moved:        make(map[string]bool),
		seriesByItem: make(map[string]string),
		itemsByKey:   make(map[library.Key][]string),
		keyOf:        make(map[string]library.Key),
		libraryOf:    make(map[string]string),
		dirty:        make(map[library.Key]bool),
	}
}

// dirtyKeys returns the dirty set in a stable order.
func (s *cycleState) dirtyKeys() []library.Key {
	keys := make([]library.Key, 0, len(s.dirty))
	for k := range s.dirty {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

func compareKeys(a, b library.Key) int {
	if a.Type != b.Type {
		if a.Type < b.Type {
			return -1
		}
		return 1
	}
	switch {
	case a.TMDBID < b.TMDBID:
		return -1
	case a.TMDBID > b.TMDBID:
		return 1
	}
	return 0
}

// topLevelKey returns the record key of a movie or series item, or false
// when the item carries no provider id.
func topLevelKey(item *emby.Item) (library.Key, bool) {
	id := item.TMDBID()
	if id == "" || !item.Type.TopLevel() {
		return library.Key{}, false
	}
	return library.Key{TMDBID: id, Type: library.EntityType(item.Type)}, true
}

// childNumbers returns the season and episode numbers of a child item.
// Episodes without both numbers and seasons without one are unusable.
func childNumbers(item *emby.Item) (season, episode int, ok bool) {
	switch item.Type {
	case emby.TypeSeason:
		if item.IndexNumber == nil {
			return 0, 0, false
		}
		return *item.IndexNumber, 0, true
	case emby.TypeEpisode:
		if item.IndexNumber == nil || item.ParentIndexNumber == nil {
			return 0, 0, false
		}
		return *item.ParentIndexNumber, *item.IndexNumber, true
	}
	return 0, 0, false
}

// seriesItemID returns the series item a child belongs to.
func seriesItemID(item *emby.Item) string {
	if item.SeriesID != "" {
		return item.SeriesID
	}
	if item.Type == emby.TypeSeason {
		return item.ParentID
	}
	return ""
}

// scanner classifies one catalog listing into the cycle state. Only
// identifiers are kept.
type scanner struct {
	state      *cycleState
	log        *slog.Logger
	pending    []emby.Item
	unresolved int
}

func (sc *scanner) scan(items iter.Seq2[emby.Item, error]) error {
	for item, err := range items {
		if err != nil {
			return err
		}
		sc.observe(item)
	}
	sc.resolvePending()
	return nil
}

func (sc *scanner) observe(item emby.Item) {
	s := sc.state
	if item.ID == "" {
		return
	}
	s.seen[item.ID] = true
	if item.LibraryID != "" {
		s.libraryOf[item.ID] = item.LibraryID
	}

	if item.Type.TopLevel() {
		key, ok := topLevelKey(&item)
		if !ok {
			return
		}
		s.itemsByKey[key] = append(s.itemsByKey[key], item.ID)
		s.keyOf[item.ID] = key
		if item.Type == emby.TypeSeries {
			s.seriesByItem[item.ID] = key.TMDBID
		}
		ref, known := s.known[item.ID]
		if !known {
			s.dirty[key] = true
		} else if ref.Key != key {
			s.moved[item.ID] = true
			s.dirty[key] = true
		}
		return
	}

	if _, _, ok := childNumbers(&item); !ok {
		return
	}
	if !sc.resolve(item) {
		sc.pending = append(sc.pending, emby.Item{
			ID:       item.ID,
			Type:     item.Type,
			ParentID: item.ParentID,
			SeriesID: item.SeriesID,
		})
	}
}

// resolve marks the parent series of a child dirty when the child is new.
// Returns false when the parent series is not mapped yet.
func (sc *scanner) resolve(item emby.Item) bool {
	s := sc.state
	seriesItem := seriesItemID(&item)
	tmdbID, ok := s.seriesByItem[seriesItem]
	if !ok {
		return false
	}
	ref, known := s.known[item.ID]
	if !known || ref.ParentSeriesID != tmdbID {
		s.dirty[library.Key{TMDBID: tmdbID, Type: library.EntitySeries}] = true
	}
	return true
}

// resolvePending settles children listed before their series. A child
// whose series is still unknown is resolved through the record that
// already owns it, if any.
func (sc *scanner) resolvePending() {
	for _, item := range sc.pending {
		if sc.resolve(item) {
			continue
		}
		if ref, ok := sc.state.known[item.ID]; ok && ref.ParentSeriesID != "" {
			continue
		}
		sc.unresolved++
		sc.log.Debug("child without series", "item_id", item.ID, "series_item_id", seriesItemID(&item))
	}
	sc.pending = nil
}

// diff compares the scan against the records online at cycle start. Vanished
// top-level records are returned for retirement; vanished children and
// top-level records still backed by another copy mark their series or
// themselves dirty. Dirty keys with nothing left to back them are retired
// instead of synchronized.
func (s *cycleState) diff() []library.Key {
	offline := make(map[library.Key]bool)
	var vanishedChildren []library.OnlineRef

	for id, ref := range s.known {
		if s.seen[id] && !s.moved[id] {
			continue
		}
		if !ref.Key.Type.TopLevel() {
			vanishedChildren = append(vanishedChildren, ref)
			continue
		}
		if len(s.itemsByKey[ref.Key]) > 0 {
			s.dirty[ref.Key] = true
		} else {
			offline[ref.Key] = true
		}
	}

	for _, ref := range vanishedChildren {
		if ref.ParentSeriesID == "" {
			continue
		}
		parent := library.Key{TMDBID: ref.ParentSeriesID, Type: library.EntitySeries}
		if !offline[parent] {
			s.dirty[parent] = true
		}
	}

	for key := range s.dirty {
		if len(s.itemsByKey[key]) == 0 {
			delete(s.dirty, key)
			offline[key] = true
		}
	}

	keys := make([]library.Key, 0, len(offline))
	for k := range offline {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}
