package library

import "fmt"

// SweepOrphans hard-deletes seasons and episodes that can never become
// useful again: their parent series record is gone, or they were never in
// the library and their series is retired as well. Series and movies are
// never deleted. Returns the number of rows removed.
func (s *Store) SweepOrphans() (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM media_metadata
		WHERE item_type IN ('Season', 'Episode')
		AND (
			NOT EXISTS (
				SELECT 1 FROM media_metadata AS p
				WHERE p.tmdb_id = media_metadata.parent_series_tmdb_id AND p.item_type = 'Series'
			)
			OR (
				in_library = 0
				AND EXISTS (
					SELECT 1 FROM media_metadata AS p
					WHERE p.tmdb_id = media_metadata.parent_series_tmdb_id AND p.item_type = 'Series'
						AND p.in_library = 0 AND p.watching_status = 'NONE' AND p.subscription_status = ''
				)
			)
		)`)
	if err != nil {
		return 0, fmt.Errorf("sweep orphans: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
