package library

import (
	"database/sql"

	"github.com/lmerle/replay/internal/artist"
	dbutil "github.com/lmerle/replay/internal/db"
)

// Artists returns all unique artist strings in the library.
func (l *Library) Artists() ([]string, error) {
	rows, err := l.db.Query(`
		SELECT DISTINCT artist FROM library_tracks ORDER BY artist COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		artists = append(artists, name)
	}
	return artists, rows.Err()
}

// ArtistTracks returns all tracks whose artist string matches,
// ordered by album year then album then track number.
func (l *Library) ArtistTracks(artistText string) ([]Track, error) {
	rows, err := l.db.Query(`
		SELECT id, path, mtime, size, artist, album, title, duration_secs, track_number, year, genre
		FROM library_tracks
		WHERE artist = ?
		ORDER BY (year IS NULL OR year = 0), year, album COLLATE NOCASE, track_number, title COLLATE NOCASE
	`, artistText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *t)
	}
	return tracks, rows.Err()
}

// TrackByPath returns the indexed track for a file path.
func (l *Library) TrackByPath(path string) (*Track, error) {
	row := l.db.QueryRow(`
		SELECT id, path, mtime, size, artist, album, title, duration_secs, track_number, year, genre
		FROM library_tracks
		WHERE path = ?
	`, path)
	return scanTrack(row)
}

// Count returns the total number of indexed tracks.
func (l *Library) Count() (int, error) {
	var count int
	err := l.db.QueryRow(`SELECT COUNT(*) FROM library_tracks`).Scan(&count)
	return count, err
}

// Credits returns the aggregator input for every indexed track.
// Library credits are never online and carry no thumbnail.
func (l *Library) Credits() ([]artist.Credit, error) {
	rows, err := l.db.Query(`SELECT artist FROM library_tracks ORDER BY added_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credits []artist.Credit
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		credits = append(credits, artist.Credit{ArtistText: text, Online: false})
	}
	return credits, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*Track, error) {
	var t Track
	var trackNum, year sql.NullInt64
	var genre sql.NullString

	err := row.Scan(&t.ID, &t.Path, &t.Mtime, &t.Size, &t.Artist, &t.Album, &t.Title,
		&t.DurationSecs, &trackNum, &year, &genre)
	if err != nil {
		return nil, err
	}
	t.TrackNumber = int(dbutil.NullInt64Value(trackNum))
	t.Year = int(dbutil.NullInt64Value(year))
	t.Genre = dbutil.NullStringValue(genre)
	return &t, nil
}
