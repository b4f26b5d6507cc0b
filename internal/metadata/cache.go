// Package metadata provides a SQLite-backed cache in front of the metadata provider.
package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Cache stores serialized provider responses in the metadata_cache table.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// NewCache creates a new metadata cache.
func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the cached value for key, or false when absent or expired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	var value string
	var expiresAt time.Time
	err := c.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM metadata_cache WHERE key = ?", key,
	).Scan(&value, &expiresAt)
	if err != nil || !c.now().Before(expiresAt) {
		return nil, false
	}
	return []byte(value), true
}

// Set stores value under key until ttl elapses, replacing any previous entry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.now()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO metadata_cache (key, value, expires_at, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		key, string(value), now.Add(ttl), now,
	)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM metadata_cache WHERE key = ?", key); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix and reports how many went.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		"DELETE FROM metadata_cache WHERE substr(key, 1, ?) = ?", len(prefix), prefix,
	)
	if err != nil {
		return 0, fmt.Errorf("cache delete prefix %s: %w", prefix, err)
	}
	return res.RowsAffected()
}

// Prune removes expired entries and reports how many went.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM metadata_cache WHERE expires_at <= ?", c.now())
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	return res.RowsAffected()
}
