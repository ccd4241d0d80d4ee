package state

import (
	"database/sql"
	"errors"
	"time"
)

// LastfmSession is a stored Last.fm session key. Keys do not expire on
// their own, so one successful login outlives the process.
type LastfmSession struct {
	Username   string
	SessionKey string
	LinkedAt   time.Time
}

// GetLastfmSession returns the stored session, or nil when none is linked.
func (s *State) GetLastfmSession() (*LastfmSession, error) {
	var username, sessionKey string
	var linkedAt int64

	err := s.db.QueryRow(`
		SELECT username, session_key, linked_at FROM lastfm_session WHERE id = 1
	`).Scan(&username, &sessionKey, &linkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil session means not linked, not an error
	}
	if err != nil {
		return nil, err
	}

	return &LastfmSession{
		Username:   username,
		SessionKey: sessionKey,
		LinkedAt:   time.Unix(linkedAt, 0),
	}, nil
}

// SaveLastfmSession stores the session key after a successful login.
func (s *State) SaveLastfmSession(username, sessionKey string) error {
	_, err := s.db.Exec(`
		INSERT INTO lastfm_session (id, username, session_key, linked_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			session_key = excluded.session_key,
			linked_at = excluded.linked_at
	`, username, sessionKey, time.Now().Unix())
	return err
}

// DeleteLastfmSession unlinks the stored session. Called when Last.fm
// rejects the key so the next run logs in fresh.
func (s *State) DeleteLastfmSession() error {
	_, err := s.db.Exec(`DELETE FROM lastfm_session WHERE id = 1`)
	return err
}
