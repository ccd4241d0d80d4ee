// Package playlists stores imported playlists and their online tracks.
package playlists

import (
	"database/sql"
	"time"

	dbutil "github.com/lmerle/replay/internal/db"
)

// Playlist sources. Manual playlists have an empty source.
const (
	SourceYouTube = "youtube"
	SourceSpotify = "spotify"
)

// Playlist represents playlist metadata (without tracks).
type Playlist struct {
	ID         int64
	Name       string
	Source     string
	SourceURL  string
	CreatedAt  int64
	LastUsedAt int64
}

// Store provides database operations for playlists.
type Store struct {
	db *sql.DB
}

// New creates a new playlist store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create creates a new playlist and returns its id.
func (s *Store) Create(name, source, sourceURL string) (int64, error) {
	now := time.Now().Unix()
	result, err := s.db.Exec(`
		INSERT INTO playlists (name, source, source_url, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?)
	`, name, source, dbutil.NullableString(sourceURL), now, now)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Rename renames a playlist.
func (s *Store) Rename(id int64, name string) error {
	_, err := s.db.Exec(`UPDATE playlists SET name = ? WHERE id = ?`, name, id)
	return err
}

// Delete deletes a playlist and all its tracks.
func (s *Store) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM playlists WHERE id = ?`, id)
	return err
}

// List returns all playlists ordered by name.
func (s *Store) List() ([]Playlist, error) {
	rows, err := s.db.Query(`
		SELECT id, name, source, source_url, created_at, last_used_at
		FROM playlists
		ORDER BY name COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		pl, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *pl)
	}
	return playlists, rows.Err()
}

// Get returns a playlist by its id.
func (s *Store) Get(id int64) (*Playlist, error) {
	row := s.db.QueryRow(`
		SELECT id, name, source, source_url, created_at, last_used_at
		FROM playlists
		WHERE id = ?
	`, id)
	return scanPlaylist(row)
}

// UpdateLastUsed updates the last_used_at timestamp for a playlist.
func (s *Store) UpdateLastUsed(id int64) error {
	now := time.Now().Unix()
	_, err := s.db.Exec(`UPDATE playlists SET last_used_at = ? WHERE id = ?`, now, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(row rowScanner) (*Playlist, error) {
	var pl Playlist
	var sourceURL sql.NullString
	if err := row.Scan(&pl.ID, &pl.Name, &pl.Source, &sourceURL, &pl.CreatedAt, &pl.LastUsedAt); err != nil {
		return nil, err
	}
	pl.SourceURL = dbutil.NullStringValue(sourceURL)
	return &pl, nil
}
