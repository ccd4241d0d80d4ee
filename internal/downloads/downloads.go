// Package downloads provides the download queue: tracks queued from
// the catalog, their transfer state and the worker that drains them
// into the music directory.
package downloads

import (
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/lmerle/replay/internal/db"
)

// Status constants for download states.
const (
	StatusPending     = "pending"
	StatusDownloading = "downloading"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
)

// Download represents a single queued track.
type Download struct {
	ID           int64
	VideoID      string
	Title        string
	Artist       string
	Album        string
	ThumbnailURL string
	Status       string
	Error        string
	Path         string // final file location, set on completion
	BytesRead    int64
	TotalBytes   int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Progress returns the transfer progress as a percentage.
func (d *Download) Progress() float64 {
	if d.TotalBytes <= 0 {
		return 0
	}
	return float64(d.BytesRead) / float64(d.TotalBytes) * 100
}

// Manager provides database operations for downloads.
type Manager struct {
	db *sql.DB
}

// New creates a new Manager instance.
func New(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// Queue adds a track to the download queue and returns its id.
func (m *Manager) Queue(videoID, title, artist, album, thumbnailURL string) (int64, error) {
	now := time.Now().Unix()
	result, err := m.db.Exec(`
		INSERT INTO downloads (video_id, title, artist, album, thumbnail_url, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, videoID, title, artist, album, dbutil.NullableString(thumbnailURL), StatusPending, now, now)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// List returns all downloads, newest first.
func (m *Manager) List() ([]Download, error) {
	rows, err := m.db.Query(`
		SELECT id, video_id, title, artist, album, thumbnail_url, status, error, path, bytes_read, total_bytes, created_at, updated_at
		FROM downloads
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var downloads []Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, *d)
	}
	return downloads, rows.Err()
}

// Get returns a download by its id.
func (m *Manager) Get(id int64) (*Download, error) {
	row := m.db.QueryRow(`
		SELECT id, video_id, title, artist, album, thumbnail_url, status, error, path, bytes_read, total_bytes, created_at, updated_at
		FROM downloads
		WHERE id = ?
	`, id)
	return scanDownload(row)
}

// NextPending returns the oldest pending download, or nil when the
// queue is drained.
func (m *Manager) NextPending() (*Download, error) {
	row := m.db.QueryRow(`
		SELECT id, video_id, title, artist, album, thumbnail_url, status, error, path, bytes_read, total_bytes, created_at, updated_at
		FROM downloads
		WHERE status = ?
		ORDER BY created_at, id
		LIMIT 1
	`, StatusPending)

	d, err := scanDownload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// Delete removes a download from the queue. The file on disk, if any,
// is left alone.
func (m *Manager) Delete(id int64) error {
	_, err := m.db.Exec(`DELETE FROM downloads WHERE id = ?`, id)
	return err
}

// ClearCompleted removes all completed downloads.
func (m *Manager) ClearCompleted() error {
	_, err := m.db.Exec(`DELETE FROM downloads WHERE status = ?`, StatusCompleted)
	return err
}

// RequeueStalled moves downloads stuck in the downloading state back to
// pending. A crash mid-transfer leaves such rows behind.
func (m *Manager) RequeueStalled() (int64, error) {
	result, err := m.db.Exec(`
		UPDATE downloads SET status = ?, updated_at = ? WHERE status = ?
	`, StatusPending, time.Now().Unix(), StatusDownloading)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (m *Manager) markDownloading(id int64) error {
	return m.setStatus(id, StatusDownloading)
}

// markPending puts a download back into the queue, typically after a
// cancelled transfer.
func (m *Manager) markPending(id int64) error {
	return m.setStatus(id, StatusPending)
}

func (m *Manager) setStatus(id int64, status string) error {
	_, err := m.db.Exec(`
		UPDATE downloads SET status = ?, error = NULL, updated_at = ? WHERE id = ?
	`, status, time.Now().Unix(), id)
	return err
}

// updateProgress records transfer progress for a download.
func (m *Manager) updateProgress(id, bytesRead, totalBytes int64) error {
	_, err := m.db.Exec(`
		UPDATE downloads SET bytes_read = ?, total_bytes = ?, updated_at = ? WHERE id = ?
	`, bytesRead, totalBytes, time.Now().Unix(), id)
	return err
}

func (m *Manager) markCompleted(id int64, path string) error {
	_, err := m.db.Exec(`
		UPDATE downloads SET status = ?, path = ?, error = NULL, updated_at = ? WHERE id = ?
	`, StatusCompleted, path, time.Now().Unix(), id)
	return err
}

func (m *Manager) markFailed(id int64, errMsg string) error {
	_, err := m.db.Exec(`
		UPDATE downloads SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, StatusFailed, errMsg, time.Now().Unix(), id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDownload(row rowScanner) (*Download, error) {
	var d Download
	var thumbnail, errMsg, path sql.NullString
	var createdAt, updatedAt int64

	if err := row.Scan(
		&d.ID, &d.VideoID, &d.Title, &d.Artist, &d.Album, &thumbnail,
		&d.Status, &errMsg, &path, &d.BytesRead, &d.TotalBytes,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	d.ThumbnailURL = dbutil.NullStringValue(thumbnail)
	d.Error = dbutil.NullStringValue(errMsg)
	d.Path = dbutil.NullStringValue(path)
	d.CreatedAt = time.Unix(createdAt, 0)
	d.UpdatedAt = time.Unix(updatedAt, 0)
	return &d, nil
}
