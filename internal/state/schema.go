package state

import (
	"database/sql"
)

const currentSchemaVersion = 5

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS history (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			track_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			artist_text TEXT NOT NULL DEFAULT '',
			album TEXT,
			thumbnail_url TEXT,
			duration_secs INTEGER NOT NULL DEFAULT 0,
			play_count INTEGER NOT NULL DEFAULT 0,
			skip_count INTEGER NOT NULL DEFAULT 0,
			first_played_at INTEGER NOT NULL,
			last_played_at INTEGER NOT NULL,
			UNIQUE(source, track_id)
		);

		CREATE INDEX IF NOT EXISTS idx_history_source_played ON history(source, last_played_at DESC);
		CREATE INDEX IF NOT EXISTS idx_history_source_count ON history(source, play_count DESC);

		CREATE TABLE IF NOT EXISTS artist_photos (
			name TEXT PRIMARY KEY,
			url TEXT NOT NULL DEFAULT '',
			fetched_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS similar_artists (
			artist TEXT NOT NULL,
			similar_artist TEXT NOT NULL,
			match_score REAL NOT NULL,
			fetched_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_similar_artist ON similar_artists(artist);

		CREATE TABLE IF NOT EXISTS library_tracks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			mtime INTEGER NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			artist TEXT NOT NULL,
			album TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			duration_secs INTEGER NOT NULL DEFAULT 0,
			track_number INTEGER,
			year INTEGER,
			genre TEXT,
			added_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_library_artist ON library_tracks(artist);

		CREATE TABLE IF NOT EXISTS playlists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			source_url TEXT,
			created_at INTEGER NOT NULL,
			last_used_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS playlist_tracks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			video_id TEXT NOT NULL,
			title TEXT NOT NULL,
			artist_text TEXT NOT NULL DEFAULT '',
			duration_secs INTEGER NOT NULL DEFAULT 0,
			thumbnail_url TEXT,
			UNIQUE(playlist_id, position)
		);

		CREATE INDEX IF NOT EXISTS idx_playlist_tracks_playlist ON playlist_tracks(playlist_id, position);

		CREATE TABLE IF NOT EXISTS downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			video_id TEXT NOT NULL,
			title TEXT NOT NULL,
			artist TEXT NOT NULL DEFAULT '',
			album TEXT NOT NULL DEFAULT '',
			thumbnail_url TEXT,
			status TEXT NOT NULL,
			error TEXT,
			path TEXT,
			bytes_read INTEGER NOT NULL DEFAULT 0,
			total_bytes INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status);

		CREATE TABLE IF NOT EXISTS scrobble_queue (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			artist TEXT NOT NULL,
			title TEXT NOT NULL,
			album TEXT,
			played_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS lastfm_session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			username TEXT NOT NULL,
			session_key TEXT NOT NULL,
			linked_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	// Set initial version if not exists
	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	if err != nil {
		return err
	}

	// Migration: add duration_secs column if missing
	_, _ = db.Exec(`ALTER TABLE history ADD COLUMN duration_secs INTEGER NOT NULL DEFAULT 0`)

	// Migration: add size column if missing
	_, _ = db.Exec(`ALTER TABLE library_tracks ADD COLUMN size INTEGER NOT NULL DEFAULT 0`)

	// Migration: add error column if missing
	_, _ = db.Exec(`ALTER TABLE downloads ADD COLUMN error TEXT`)

	return nil
}
