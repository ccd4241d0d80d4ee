// Package library maintains a sqlite index of music files on disk.
// Tracks found by scanning configured source directories feed the
// artists view alongside online listening history.
package library

import (
	"database/sql"

	"github.com/rs/zerolog"
)

// Track is one indexed music file.
type Track struct {
	ID           int64
	Path         string
	Mtime        int64
	Size         int64
	Artist       string
	Album        string
	Title        string
	DurationSecs int
	TrackNumber  int
	Year         int
	Genre        string
}

type Library struct {
	db  *sql.DB
	log zerolog.Logger
}

func New(db *sql.DB, log zerolog.Logger) *Library {
	return &Library{db: db, log: log}
}
