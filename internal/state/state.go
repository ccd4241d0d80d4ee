// Package state owns the replay database: path resolution, opening and
// schema upkeep. Every store in the application shares the single sqlite
// handle it provides.
package state

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName    = "replay"
	dbFileName = "replay.db"
)

type State struct {
	db   *sql.DB
	path string
}

// Open opens the database at the default xdg data location, creating it
// and applying the schema when needed.
func Open() (*State, error) {
	dbPath, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return nil, err
	}
	return OpenAt(dbPath)
}

// OpenAt opens the database at an explicit path. Used by tests and the
// -db flag.
func OpenAt(dbPath string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &State{db: db, path: dbPath}, nil
}

func (s *State) DB() *sql.DB {
	return s.db
}

// Path returns the location of the database file.
func (s *State) Path() string {
	return s.path
}

func (s *State) Close() error {
	return s.db.Close()
}
