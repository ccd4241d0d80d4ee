// Package photos resolves artist names to photo URLs through a sqlite
// cache backed by the catalog and Last.fm.
package photos

import (
	"database/sql"
	"time"
)

// Cache manages resolved artist photo URLs in SQLite. An empty URL is a
// cached negative result, so artists without photos are not refetched on
// every aggregation.
type Cache struct {
	db      *sql.DB
	ttlDays int
}

// NewCache creates a new Cache instance.
func NewCache(db *sql.DB, ttlDays int) *Cache {
	return &Cache{
		db:      db,
		ttlDays: ttlDays,
	}
}

// isExpired checks if a cached entry is expired.
func (c *Cache) isExpired(fetchedAt int64) bool {
	expiry := time.Now().AddDate(0, 0, -c.ttlDays).Unix()
	return fetchedAt < expiry
}

// Get returns the cached URL for an artist. found is false when the
// entry is missing or expired.
func (c *Cache) Get(name string) (url string, found bool, err error) {
	var fetchedAt int64
	err = c.db.QueryRow(`
		SELECT url, fetched_at FROM artist_photos WHERE name = ?
	`, name).Scan(&url, &fetchedAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if c.isExpired(fetchedAt) {
		return "", false, nil
	}
	return url, true, nil
}

// Set stores the URL for an artist, replacing any previous entry.
func (c *Cache) Set(name, url string) error {
	_, err := c.db.Exec(`
		INSERT INTO artist_photos (name, url, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			url = excluded.url,
			fetched_at = excluded.fetched_at
	`, name, url, time.Now().Unix())
	return err
}

// Snapshot returns the fresh, non-empty cached URLs for the given names.
// The result is the photo lookup handed to the aggregator.
func (c *Cache) Snapshot(names []string) (map[string]string, error) {
	rows, err := c.db.Query(`SELECT name, url, fetched_at FROM artist_photos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	result := make(map[string]string)
	for rows.Next() {
		var name, url string
		var fetchedAt int64
		if err := rows.Scan(&name, &url, &fetchedAt); err != nil {
			return nil, err
		}
		if _, ok := wanted[name]; !ok {
			continue
		}
		if url == "" || c.isExpired(fetchedAt) {
			continue
		}
		result[name] = url
	}
	return result, rows.Err()
}

// CleanExpired removes all expired cache entries.
func (c *Cache) CleanExpired() error {
	expiry := time.Now().AddDate(0, 0, -c.ttlDays).Unix()
	_, err := c.db.Exec(`DELETE FROM artist_photos WHERE fetched_at < ?`, expiry)
	return err
}
