package playlists

import (
	"database/sql"

	dbutil "github.com/lmerle/replay/internal/db"
)

// Track is one online track inside a playlist.
type Track struct {
	Position     int
	VideoID      string
	Title        string
	ArtistText   string
	DurationSecs int
	ThumbnailURL string
}

// Tracks returns all tracks in a playlist in positional order.
func (s *Store) Tracks(playlistID int64) ([]Track, error) {
	rows, err := s.db.Query(`
		SELECT position, video_id, title, artist_text, duration_secs, thumbnail_url
		FROM playlist_tracks
		WHERE playlist_id = ?
		ORDER BY position
	`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		var t Track
		var thumbnail sql.NullString
		if err := rows.Scan(&t.Position, &t.VideoID, &t.Title, &t.ArtistText, &t.DurationSecs, &thumbnail); err != nil {
			return nil, err
		}
		t.ThumbnailURL = dbutil.NullStringValue(thumbnail)
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// TrackCount returns the number of tracks in a playlist.
func (s *Store) TrackCount(playlistID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM playlist_tracks WHERE playlist_id = ?
	`, playlistID).Scan(&count)
	return count, err
}

// AddTracks appends tracks to a playlist in the given order.
// Positions continue after the current maximum.
func (s *Store) AddTracks(playlistID int64, tracks []Track) error {
	if len(tracks) == 0 {
		return nil
	}

	var maxPos sql.NullInt64
	err := s.db.QueryRow(`
		SELECT MAX(position) FROM playlist_tracks WHERE playlist_id = ?
	`, playlistID).Scan(&maxPos)
	if err != nil {
		return err
	}

	nextPos := int(dbutil.NullInt64Value(maxPos))
	if maxPos.Valid {
		nextPos++
	}

	return dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO playlist_tracks (playlist_id, position, video_id, title, artist_text, duration_secs, thumbnail_url)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, t := range tracks {
			_, err := stmt.Exec(playlistID, nextPos+i, t.VideoID, t.Title, t.ArtistText,
				t.DurationSecs, dbutil.NullableString(t.ThumbnailURL))
			if err != nil {
				return err
			}
		}
		return nil
	})
}
