package library

import (
	"fmt"
	"time"
)

// WatchlistUpdate carries the classifier-owned columns of a series.
type WatchlistUpdate struct {
	Status         WatchingStatus
	PausedUntil    *time.Time
	NextEpisode    *NextEpisode
	MissingInfo    *MissingInfo
	ProviderStatus string
	IsAiring       bool
	TotalEpisodes  *int // ignored while the total is locked
	UpgradePending bool // only ever raises the marker
}

// UpdateWatchlist writes the classifier result for a series.
// last_status_change_at moves only when the status actually changes.
func (s *Store) UpdateWatchlist(seriesID string, u WatchlistUpdate) error {
	nextJSON, err := encodeOptional(u.NextEpisode)
	if err != nil {
		return fmt.Errorf("encode next episode: %w", err)
	}
	var missingJSON string
	if !u.MissingInfo.Empty() {
		if missingJSON, err = encodeOptional(u.MissingInfo); err != nil {
			return fmt.Errorf("encode missing info: %w", err)
		}
	}

	now := time.Now()
	result, err := s.db.Exec(`
		UPDATE media_metadata SET
			last_status_change_at = CASE WHEN watching_status = ? THEN last_status_change_at ELSE ? END,
			watching_status = ?,
			paused_until = ?,
			next_episode_json = ?,
			missing_info_json = ?,
			provider_status = ?,
			is_airing = ?,
			total_episodes = CASE WHEN ? IS NULL OR total_episodes_locked = 1
				THEN total_episodes ELSE ? END,
			watchlist_checked_at = ?,
			upgrade_pending = CASE WHEN ? THEN 1 ELSE upgrade_pending END,
			updated_at = ?
		WHERE tmdb_id = ? AND item_type = 'Series'`,
		u.Status, now,
		u.Status,
		u.PausedUntil,
		nextJSON,
		missingJSON,
		u.ProviderStatus,
		u.IsAiring,
		u.TotalEpisodes, u.TotalEpisodes,
		now,
		u.UpgradePending,
		now,
		seriesID,
	)
	if err != nil {
		return fmt.Errorf("update watchlist %s: %w", seriesID, mapSQLiteError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update watchlist %s: %w", seriesID, ErrNotFound)
	}
	return nil
}

// SetWatchingStatus changes the status of a series directly, e.g. when an
// operator adds a series to the watchlist. Only series in the library can
// be added; one that went offline while tracked may still change status.
func (s *Store) SetWatchingStatus(seriesID string, status WatchingStatus) error {
	key := Key{TMDBID: seriesID, Type: EntitySeries}
	if status != StatusNone {
		r, err := getRecord(s.db, key)
		if err != nil {
			return err
		}
		if !r.InLibrary && r.WatchingStatus == StatusNone {
			return fmt.Errorf("watch %s: %w", key, ErrOffline)
		}
	}
	return s.exec(key,
		"last_status_change_at = CASE WHEN watching_status = ? THEN last_status_change_at ELSE ? END, watching_status = ?",
		status, time.Now(), status)
}

// Watchlist returns the series the classifier should evaluate: everything
// with a status other than NONE, in library or not.
func (s *Store) Watchlist() ([]*Record, error) {
	records, _, err := queryRecords(s.db,
		"WHERE item_type = 'Series' AND watching_status != ?", []any{StatusNone}, "ORDER BY id", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	return records, nil
}

// StatusCounts returns the number of series per watching status.
func (s *Store) StatusCounts() (map[WatchingStatus]int, error) {
	rows, err := s.db.Query(
		"SELECT watching_status, COUNT(*) FROM media_metadata WHERE item_type = 'Series' GROUP BY watching_status")
	if err != nil {
		return nil, fmt.Errorf("count statuses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[WatchingStatus]int)
	for rows.Next() {
		var status WatchingStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// LibraryCounts returns in-library and offline record counts per type.
func (s *Store) LibraryCounts() (online, offline map[EntityType]int, err error) {
	rows, err := s.db.Query("SELECT item_type, in_library, COUNT(*) FROM media_metadata GROUP BY item_type, in_library")
	if err != nil {
		return nil, nil, fmt.Errorf("count library: %w", err)
	}
	defer func() { _ = rows.Close() }()

	online = make(map[EntityType]int)
	offline = make(map[EntityType]int)
	for rows.Next() {
		var t EntityType
		var in bool
		var n int
		if err := rows.Scan(&t, &in, &n); err != nil {
			return nil, nil, fmt.Errorf("scan library count: %w", err)
		}
		if in {
			online[t] = n
		} else {
			offline[t] = n
		}
	}
	return online, offline, rows.Err()
}
