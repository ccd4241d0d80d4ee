// Package history records plays and skips per track, for online
// listening and the local library alike. Rows accumulate counters rather
// than growing per event, so the table stays small enough to aggregate on
// every read.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lmerle/replay/internal/artist"
)

// Sources for history records.
const (
	SourceOnline = "online"
	SourceLocal  = "local"
)

// Record is one track's accumulated listening history.
type Record struct {
	ID            string
	Source        string
	TrackID       string
	Title         string
	ArtistText    string
	Album         string
	ThumbnailURL  string
	DurationSecs  int
	PlayCount     int
	SkipCount     int
	FirstPlayedAt int64
	LastPlayedAt  int64
}

// Credit projects the record into the aggregator's input.
func (r Record) Credit() artist.Credit {
	return artist.Credit{
		ArtistText:   r.ArtistText,
		ThumbnailURL: r.ThumbnailURL,
		Online:       r.Source == SourceOnline,
	}
}

// Play describes a single listen about to be recorded.
type Play struct {
	Source       string
	TrackID      string
	Title        string
	ArtistText   string
	Album        string
	ThumbnailURL string
	DurationSecs int
}

// Store provides database operations for listening history.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordPlay upserts the track's history row and bumps its play count.
// Metadata fields are refreshed on every play so the row follows catalog
// corrections.
func (s *Store) RecordPlay(p Play) error {
	if p.Source == "" || p.TrackID == "" {
		return fmt.Errorf("record play: source and track id required")
	}

	now := time.Now().Unix()
	_, err := s.db.Exec(`
		INSERT INTO history (id, source, track_id, title, artist_text, album,
			thumbnail_url, duration_secs, play_count, skip_count,
			first_played_at, last_played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, 0, ?, ?)
		ON CONFLICT(source, track_id) DO UPDATE SET
			title = excluded.title,
			artist_text = excluded.artist_text,
			album = excluded.album,
			thumbnail_url = excluded.thumbnail_url,
			duration_secs = excluded.duration_secs,
			play_count = play_count + 1,
			last_played_at = excluded.last_played_at
	`, uuid.NewString(), p.Source, p.TrackID, p.Title, p.ArtistText, p.Album,
		p.ThumbnailURL, p.DurationSecs, now, now)
	if err != nil {
		return fmt.Errorf("record play: %w", err)
	}
	return nil
}

// RecordSkip bumps the track's skip count. Skips on tracks that were
// never played still create the row so the signal is not lost.
func (s *Store) RecordSkip(source, trackID string) error {
	if source == "" || trackID == "" {
		return fmt.Errorf("record skip: source and track id required")
	}

	now := time.Now().Unix()
	_, err := s.db.Exec(`
		INSERT INTO history (id, source, track_id, play_count, skip_count,
			first_played_at, last_played_at)
		VALUES (?, ?, ?, 0, 1, ?, ?)
		ON CONFLICT(source, track_id) DO UPDATE SET
			skip_count = skip_count + 1
	`, uuid.NewString(), source, trackID, now, now)
	if err != nil {
		return fmt.Errorf("record skip: %w", err)
	}
	return nil
}

const recordColumns = `id, source, track_id, title, artist_text, album,
	thumbnail_url, duration_secs, play_count, skip_count,
	first_played_at, last_played_at`

// Get returns one record, or sql.ErrNoRows when the track was never seen.
func (s *Store) Get(source, trackID string) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT `+recordColumns+` FROM history
		WHERE source = ? AND track_id = ?
	`, source, trackID)

	r, err := scanRecord(row)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Recent returns records for a source ordered by most recent play.
// A limit of 0 means no limit.
func (s *Store) Recent(source string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT `+recordColumns+` FROM history
		WHERE source = ?
		ORDER BY last_played_at DESC
		LIMIT ?
	`, source, limit)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// MostPlayed returns records for a source ordered by play count.
func (s *Store) MostPlayed(source string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT `+recordColumns+` FROM history
		WHERE source = ?
		ORDER BY play_count DESC, last_played_at DESC
		LIMIT ?
	`, source, limit)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// All returns every record across all sources, most recent first.
func (s *Store) All() ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT ` + recordColumns + ` FROM history
		ORDER BY last_played_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// Count returns the number of records for a source.
func (s *Store) Count(source string) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM history WHERE source = ?
	`, source).Scan(&count)
	return count, err
}

// TrimOldest deletes all but the keep most recently played records for a
// source and reports how many rows were removed.
func (s *Store) TrimOldest(source string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, fmt.Errorf("trim history: keep must be positive")
	}

	res, err := s.db.Exec(`
		DELETE FROM history
		WHERE source = ? AND id NOT IN (
			SELECT id FROM history
			WHERE source = ?
			ORDER BY last_played_at DESC
			LIMIT ?
		)
	`, source, source, keep)
	if err != nil {
		return 0, fmt.Errorf("trim history: %w", err)
	}
	return res.RowsAffected()
}

// Credits returns the aggregator input for a source, most recent first.
// An empty source yields credits across all sources.
func (s *Store) Credits(source string) ([]artist.Credit, error) {
	var (
		records []Record
		err     error
	)
	if source == "" {
		records, err = s.All()
	} else {
		records, err = s.Recent(source, 0)
	}
	if err != nil {
		return nil, err
	}

	credits := make([]artist.Credit, len(records))
	for i, r := range records {
		credits[i] = r.Credit()
	}
	return credits, nil
}

func scanRecord(row *sql.Row) (Record, error) {
	var r Record
	var album, thumb sql.NullString
	err := row.Scan(&r.ID, &r.Source, &r.TrackID, &r.Title, &r.ArtistText,
		&album, &thumb, &r.DurationSecs, &r.PlayCount, &r.SkipCount,
		&r.FirstPlayedAt, &r.LastPlayedAt)
	if err != nil {
		return Record{}, err
	}
	r.Album = album.String
	r.ThumbnailURL = thumb.String
	return r, nil
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var album, thumb sql.NullString
		if err := rows.Scan(&r.ID, &r.Source, &r.TrackID, &r.Title, &r.ArtistText,
			&album, &thumb, &r.DurationSecs, &r.PlayCount, &r.SkipCount,
			&r.FirstPlayedAt, &r.LastPlayedAt); err != nil {
			return nil, err
		}
		r.Album = album.String
		r.ThumbnailURL = thumb.String
		records = append(records, r)
	}
	return records, rows.Err()
}
