// Package scrobbler queues plays for Last.fm and flushes them in
// batches. Queued rows survive offline stretches until a flush
// succeeds.
package scrobbler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	dbutil "github.com/lmerle/replay/internal/db"
	"github.com/lmerle/replay/internal/lastfm"
)

// Last.fm accepts at most 50 scrobbles per call.
const batchSize = 50

// Submitter sends scrobble batches to Last.fm.
type Submitter interface {
	ScrobbleBatch(tracks []lastfm.ScrobbleTrack) error
}

// Play is one queued play.
type Play struct {
	ID       int64
	Artist   string
	Title    string
	Album    string
	PlayedAt time.Time
}

// Queue stores plays waiting to be scrobbled.
type Queue struct {
	db *sql.DB
}

// NewQueue creates a scrobble queue over the shared database.
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue records a play for later submission.
func (q *Queue) Enqueue(artist, title, album string, playedAt time.Time) error {
	_, err := q.db.Exec(`
		INSERT INTO scrobble_queue (artist, title, album, played_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, artist, title, dbutil.NullableString(album), playedAt.Unix(), time.Now().Unix())
	return err
}

// Pending returns the number of queued plays.
func (q *Queue) Pending() (int, error) {
	var count int
	err := q.db.QueryRow(`SELECT COUNT(*) FROM scrobble_queue`).Scan(&count)
	return count, err
}

// List returns up to limit queued plays, oldest first.
func (q *Queue) List(limit int) ([]Play, error) {
	rows, err := q.db.Query(`
		SELECT id, artist, title, album, played_at
		FROM scrobble_queue
		ORDER BY played_at, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plays []Play
	for rows.Next() {
		var p Play
		var album sql.NullString
		var playedAt int64
		if err := rows.Scan(&p.ID, &p.Artist, &p.Title, &album, &playedAt); err != nil {
			return nil, err
		}
		p.Album = dbutil.NullStringValue(album)
		p.PlayedAt = time.Unix(playedAt, 0)
		plays = append(plays, p)
	}
	return plays, rows.Err()
}

// remove deletes the given plays from the queue.
func (q *Queue) remove(plays []Play) error {
	return dbutil.WithTx(q.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`DELETE FROM scrobble_queue WHERE id = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range plays {
			if _, err := stmt.Exec(p.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Scrobbler drains the queue into Last.fm.
type Scrobbler struct {
	queue     *Queue
	submitter Submitter
	log       zerolog.Logger
}

// New creates a Scrobbler.
func New(queue *Queue, submitter Submitter, log zerolog.Logger) *Scrobbler {
	return &Scrobbler{
		queue:     queue,
		submitter: submitter,
		log:       log,
	}
}

// Flush submits queued plays in batches, deleting rows that were
// accepted. A failed batch leaves its rows queued for the next flush.
// Returns the number of plays submitted.
func (s *Scrobbler) Flush(ctx context.Context) (int, error) {
	sent := 0
	for {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		plays, err := s.queue.List(batchSize)
		if err != nil {
			return sent, err
		}
		if len(plays) == 0 {
			if sent > 0 {
				s.log.Info().Int("sent", sent).Msg("scrobble queue flushed")
			}
			return sent, nil
		}

		tracks := make([]lastfm.ScrobbleTrack, len(plays))
		for i, p := range plays {
			tracks[i] = lastfm.ScrobbleTrack{
				Artist:    p.Artist,
				Track:     p.Title,
				Album:     p.Album,
				Timestamp: p.PlayedAt,
			}
		}

		if err := s.submitter.ScrobbleBatch(tracks); err != nil {
			return sent, fmt.Errorf("scrobble batch: %w", err)
		}
		if err := s.queue.remove(plays); err != nil {
			return sent, err
		}
		sent += len(plays)
	}
}
