package station

import (
	"database/sql"
	"time"

	dbutil "github.com/lmerle/replay/internal/db"
	"github.com/lmerle/replay/internal/lastfm"
)

// Cache stores fetched similar-artist lists in SQLite.
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

// SimilarArtists returns cached similar artists if not expired.
func (c *Cache) SimilarArtists(artist string) ([]lastfm.SimilarArtist, error) {
	rows, err := c.db.Query(`
		SELECT similar_artist, match_score, fetched_at
		FROM similar_artists
		WHERE artist = ?
		ORDER BY match_score DESC
	`, artist)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []lastfm.SimilarArtist
	var fetchedAt int64
	for rows.Next() {
		var similar lastfm.SimilarArtist
		if err := rows.Scan(&similar.Name, &similar.MatchScore, &fetchedAt); err != nil {
			return nil, err
		}
		result = append(result, similar)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows for one artist share a timestamp, so checking the last one
	// covers the set. Expired reads as empty to trigger a refresh.
	if len(result) == 0 || c.isExpired(fetchedAt) {
		return nil, nil
	}
	return result, nil
}

// SetSimilarArtists replaces the cached similar artists for an artist.
func (c *Cache) SetSimilarArtists(artist string, similar []lastfm.SimilarArtist) error {
	return dbutil.WithTx(c.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM similar_artists WHERE artist = ?`, artist); err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO similar_artists (artist, similar_artist, match_score, fetched_at)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := time.Now().Unix()
		for _, s := range similar {
			if _, err := stmt.Exec(artist, s.Name, s.MatchScore, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// CleanExpired removes all expired cache entries.
func (c *Cache) CleanExpired() error {
	expiry := time.Now().AddDate(0, 0, -c.ttlDays).Unix()

	_, err := c.db.Exec(`DELETE FROM similar_artists WHERE fetched_at < ?`, expiry)
	return err
}
