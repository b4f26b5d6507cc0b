package library

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// mapSQLiteError converts SQLite errors to custom error types.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	// modernc.org/sqlite wraps errors; check error message for constraint violations
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "PRIMARY KEY constraint failed") {
		return ErrDuplicate
	}
	if strings.Contains(errStr, "FOREIGN KEY constraint failed") ||
		strings.Contains(errStr, "CHECK constraint failed") ||
		strings.Contains(errStr, "NOT NULL constraint failed") {
		return fmt.Errorf("%w: %s", ErrConstraint, errStr)
	}
	return err
}

const recordColumns = `id, tmdb_id, item_type, parent_series_tmdb_id, season_number, episode_number,
	title, original_title, overview, release_date, poster_path, rating, custom_rating, official_rating_json,
	in_library, emby_item_ids_json, asset_details_json, last_synced_at,
	total_episodes, total_episodes_locked,
	watching_status, force_ended, paused_until, next_episode_json, missing_info_json, provider_status,
	is_airing, subscription_status, watchlist_checked_at, last_status_change_at, upgrade_pending,
	added_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	r := &Record{}
	var (
		parent                          sql.NullString
		season, episode                 sql.NullInt64
		ratingJSON, idsJSON, assetsJSON string
		nextJSON, missingJSON           string
	)
	err := row.Scan(
		&r.ID, &r.TMDBID, &r.Type, &parent, &season, &episode,
		&r.Title, &r.OriginalTitle, &r.Overview, &r.ReleaseDate, &r.PosterPath, &r.Rating, &r.CustomRating, &ratingJSON,
		&r.InLibrary, &idsJSON, &assetsJSON, &r.LastSyncedAt,
		&r.TotalEpisodes, &r.TotalEpisodesLocked,
		&r.WatchingStatus, &r.ForceEnded, &r.PausedUntil, &nextJSON, &missingJSON, &r.ProviderStatus,
		&r.IsAiring, &r.SubscriptionStatus, &r.WatchlistCheckedAt, &r.LastStatusChangeAt, &r.UpgradePending,
		&r.AddedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		r.ParentSeriesTMDBID = &parent.String
	}
	if season.Valid {
		n := int(season.Int64)
		r.SeasonNumber = &n
	}
	if episode.Valid {
		n := int(episode.Int64)
		r.EpisodeNumber = &n
	}
	if err := decodeJSON(ratingJSON, &r.OfficialRating); err != nil {
		return nil, fmt.Errorf("decode official rating of %s: %w", r.Key(), err)
	}
	if err := decodeJSON(idsJSON, &r.EmbyItemIDs); err != nil {
		return nil, fmt.Errorf("decode emby ids of %s: %w", r.Key(), err)
	}
	if err := decodeJSON(assetsJSON, &r.AssetDetails); err != nil {
		return nil, fmt.Errorf("decode assets of %s: %w", r.Key(), err)
	}
	if nextJSON != "" {
		r.NextEpisode = &NextEpisode{}
		if err := decodeJSON(nextJSON, r.NextEpisode); err != nil {
			return nil, fmt.Errorf("decode next episode of %s: %w", r.Key(), err)
		}
	}
	if missingJSON != "" {
		r.MissingInfo = &MissingInfo{}
		if err := decodeJSON(missingJSON, r.MissingInfo); err != nil {
			return nil, fmt.Errorf("decode missing info of %s: %w", r.Key(), err)
		}
	}
	return r, nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

// encodeList marshals a slice, writing "[]" for nil so the in_library check holds.
func encodeList[T any](v []T) (string, error) {
	if len(v) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func encodeOptional(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func upsertRecord(q querier, r *Record) (bool, error) {
	if err := r.validate(); err != nil {
		return false, err
	}
	if !r.InLibrary {
		r.EmbyItemIDs = nil
		r.AssetDetails = nil
	}
	idsJSON, err := encodeList(r.EmbyItemIDs)
	if err != nil {
		return false, fmt.Errorf("encode emby ids: %w", err)
	}
	assetsJSON, err := encodeList(r.AssetDetails)
	if err != nil {
		return false, fmt.Errorf("encode assets: %w", err)
	}
	ratings := r.OfficialRating
	if ratings == nil {
		ratings = map[string]string{}
	}
	ratingJSON, err := json.Marshal(ratings)
	if err != nil {
		return false, fmt.Errorf("encode official rating: %w", err)
	}

	var existing int
	if err := q.QueryRow(
		"SELECT COUNT(*) FROM media_metadata WHERE tmdb_id = ? AND item_type = ?", r.TMDBID, r.Type,
	).Scan(&existing); err != nil {
		return false, fmt.Errorf("lookup %s: %w", r.Key(), err)
	}

	now := time.Now()
	// Identity, watchlist, subscription and manual override columns are never
	// touched on conflict; total_episodes only when it is not locked.
	_, err = q.Exec(`
		INSERT INTO media_metadata (
			tmdb_id, item_type, parent_series_tmdb_id, season_number, episode_number,
			title, original_title, overview, release_date, poster_path, rating, official_rating_json,
			in_library, emby_item_ids_json, asset_details_json, last_synced_at,
			total_episodes, provider_status, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tmdb_id, item_type) DO UPDATE SET
			title = excluded.title,
			original_title = excluded.original_title,
			overview = excluded.overview,
			release_date = excluded.release_date,
			poster_path = excluded.poster_path,
			rating = excluded.rating,
			official_rating_json = excluded.official_rating_json,
			in_library = excluded.in_library,
			emby_item_ids_json = excluded.emby_item_ids_json,
			asset_details_json = excluded.asset_details_json,
			last_synced_at = excluded.last_synced_at,
			total_episodes = CASE WHEN media_metadata.total_episodes_locked = 1
				THEN media_metadata.total_episodes ELSE excluded.total_episodes END,
			provider_status = CASE WHEN excluded.provider_status = ''
				THEN media_metadata.provider_status ELSE excluded.provider_status END,
			updated_at = excluded.updated_at`,
		r.TMDBID, r.Type, r.ParentSeriesTMDBID, r.SeasonNumber, r.EpisodeNumber,
		r.Title, r.OriginalTitle, r.Overview, r.ReleaseDate, r.PosterPath, r.Rating, string(ratingJSON),
		r.InLibrary, idsJSON, assetsJSON, now,
		r.TotalEpisodes, r.ProviderStatus, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", r.Key(), mapSQLiteError(err))
	}
	r.LastSyncedAt = &now
	r.UpdatedAt = now
	return existing == 0, nil
}

// Upsert inserts a record or updates the synchronizer-owned columns of the
// existing row with the same key. Returns true when a row was created.
func (s *Store) Upsert(r *Record) (bool, error) { return upsertRecord(s.db, r) }

// Upsert inserts or updates a record within a transaction.
func (t *Tx) Upsert(r *Record) (bool, error) { return upsertRecord(t.tx, r) }

func getRecord(q querier, key Key) (*Record, error) {
	r, err := scanRecord(q.QueryRow(
		"SELECT "+recordColumns+" FROM media_metadata WHERE tmdb_id = ? AND item_type = ?",
		key.TMDBID, key.Type,
	))
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, mapSQLiteError(err))
	}
	return r, nil
}

// Get retrieves a record by composite key.
// Returns ErrNotFound if the record does not exist.
func (s *Store) Get(key Key) (*Record, error) { return getRecord(s.db, key) }

// Get retrieves a record by composite key within a transaction.
func (t *Tx) Get(key Key) (*Record, error) { return getRecord(t.tx, key) }

func listRecords(q querier, f RecordFilter) ([]*Record, int, error) {
	var conditions []string
	var args []any

	if f.Type != nil {
		conditions = append(conditions, "item_type = ?")
		args = append(args, *f.Type)
	}
	if f.InLibrary != nil {
		conditions = append(conditions, "in_library = ?")
		args = append(args, *f.InLibrary)
	}
	if f.WatchingStatus != nil {
		conditions = append(conditions, "watching_status = ?")
		args = append(args, *f.WatchingStatus)
	}
	if f.ParentSeriesID != nil {
		conditions = append(conditions, "parent_series_tmdb_id = ?")
		args = append(args, *f.ParentSeriesID)
	}
	if f.SeasonNumber != nil {
		conditions = append(conditions, "season_number = ?")
		args = append(args, *f.SeasonNumber)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}
	return queryRecords(q, whereClause, args, "ORDER BY id", f.Limit, f.Offset)
}

func queryRecords(q querier, whereClause string, args []any, orderBy string, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := q.QueryRow("SELECT COUNT(*) FROM media_metadata "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	query := "SELECT " + recordColumns + " FROM media_metadata " + whereClause + " " + orderBy
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	}

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan record: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate records: %w", err)
	}
	return results, total, nil
}

// List returns records matching the filter with pagination.
// Returns (results, totalCount, error).
func (s *Store) List(f RecordFilter) ([]*Record, int, error) { return listRecords(s.db, f) }

// List returns records matching the filter within a transaction.
func (t *Tx) List(f RecordFilter) ([]*Record, int, error) { return listRecords(t.tx, f) }

func markOffline(q querier, keys []Key) (int, error) {
	now := time.Now()
	marked := 0
	for _, key := range keys {
		result, err := q.Exec(`
			UPDATE media_metadata
			SET in_library = 0, emby_item_ids_json = '[]', asset_details_json = '[]', updated_at = ?
			WHERE tmdb_id = ? AND item_type = ? AND in_library = 1`,
			now, key.TMDBID, key.Type,
		)
		if err != nil {
			return marked, fmt.Errorf("mark %s offline: %w", key, mapSQLiteError(err))
		}
		if n, _ := result.RowsAffected(); n > 0 {
			marked++
		}
	}
	return marked, nil
}

// MarkOffline soft-retires records: in_library is cleared together with
// their item ids and asset details. Returns how many rows changed.
func (s *Store) MarkOffline(keys []Key) (int, error) { return markOffline(s.db, keys) }

// MarkOffline soft-retires records within a transaction.
func (t *Tx) MarkOffline(keys []Key) (int, error) { return markOffline(t.tx, keys) }

func markChildrenOffline(q querier, seriesID string, active map[Key]bool) ([]Key, error) {
	rows, err := q.Query(`
		SELECT tmdb_id, item_type FROM media_metadata
		WHERE parent_series_tmdb_id = ? AND item_type IN ('Season', 'Episode') AND in_library = 1`,
		seriesID,
	)
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", seriesID, err)
	}
	var stale []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.TMDBID, &k.Type); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan child: %w", err)
		}
		if !active[k] {
			stale = append(stale, k)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate children: %w", err)
	}
	_ = rows.Close()

	if _, err := markOffline(q, stale); err != nil {
		return nil, err
	}
	return stale, nil
}

// MarkChildrenOffline retires every in-library season and episode of the
// series whose key is not in active. Returns the retired keys.
func (t *Tx) MarkChildrenOffline(seriesID string, active map[Key]bool) ([]Key, error) {
	return markChildrenOffline(t.tx, seriesID, active)
}

// OnlineRef locates the record owning a media server item id.
type OnlineRef struct {
	Key            Key
	ParentSeriesID string // empty for movies and series
}

// OnlineItems returns every media server item id currently backing an
// in-library record, mapped to its owning record.
func (s *Store) OnlineItems() (map[string]OnlineRef, error) {
	rows, err := s.db.Query(`
		SELECT tmdb_id, item_type, COALESCE(parent_series_tmdb_id, ''), emby_item_ids_json
		FROM media_metadata WHERE in_library = 1`)
	if err != nil {
		return nil, fmt.Errorf("list online items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	index := make(map[string]OnlineRef)
	for rows.Next() {
		var ref OnlineRef
		var idsJSON string
		if err := rows.Scan(&ref.Key.TMDBID, &ref.Key.Type, &ref.ParentSeriesID, &idsJSON); err != nil {
			return nil, fmt.Errorf("scan online item: %w", err)
		}
		var ids []string
		if err := decodeJSON(idsJSON, &ids); err != nil {
			return nil, fmt.Errorf("decode emby ids of %s: %w", ref.Key, err)
		}
		for _, id := range ids {
			index[id] = ref
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate online items: %w", err)
	}
	return index, nil
}

// SeriesInventory returns the in-library episode numbers of a series keyed
// by season number.
func (s *Store) SeriesInventory(seriesID string) (map[int][]int, error) {
	rows, err := s.db.Query(`
		SELECT season_number, episode_number FROM media_metadata
		WHERE parent_series_tmdb_id = ? AND item_type = 'Episode' AND in_library = 1
			AND season_number IS NOT NULL AND episode_number IS NOT NULL
		ORDER BY season_number, episode_number`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("series inventory %s: %w", seriesID, err)
	}
	defer func() { _ = rows.Close() }()

	inv := make(map[int][]int)
	for rows.Next() {
		var season, episode int
		if err := rows.Scan(&season, &episode); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		inv[season] = append(inv[season], episode)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory: %w", err)
	}
	return inv, nil
}

// SetTotalEpisodes pins the episode total of a record. A locked total
// survives every later synchronization.
func (s *Store) SetTotalEpisodes(key Key, total int, locked bool) error {
	return s.exec(key, "total_episodes = ?, total_episodes_locked = ?", total, locked)
}

// SetCustomRating stores a locally chosen rating.
func (s *Store) SetCustomRating(key Key, rating string) error {
	return s.exec(key, "custom_rating = ?", rating)
}

// SetForceEnded toggles the manual completion override of a series.
func (s *Store) SetForceEnded(seriesID string, forced bool) error {
	return s.exec(Key{TMDBID: seriesID, Type: EntitySeries}, "force_ended = ?", forced)
}

// ClearUpgradePending marks the completion upgrade of a series as done.
func (s *Store) ClearUpgradePending(seriesID string) error {
	return s.exec(Key{TMDBID: seriesID, Type: EntitySeries}, "upgrade_pending = 0")
}

// SetSubscriptionStatus records the last status mirrored to the download
// automation service.
func (s *Store) SetSubscriptionStatus(seriesID, status string) error {
	return s.exec(Key{TMDBID: seriesID, Type: EntitySeries}, "subscription_status = ?", status)
}

func (s *Store) exec(key Key, set string, args ...any) error {
	args = append(args, time.Now(), key.TMDBID, key.Type)
	result, err := s.db.Exec(
		"UPDATE media_metadata SET "+set+", updated_at = ? WHERE tmdb_id = ? AND item_type = ?", args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", key, mapSQLiteError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update %s: %w", key, ErrNotFound)
	}
	return nil
}
