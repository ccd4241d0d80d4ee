package downloads

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestManager(t *testing.T) *Manager {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE downloads (
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
		CREATE INDEX idx_downloads_status ON downloads(status);
	`)
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}

	return New(db)
}

func TestQueueAndGet(t *testing.T) {
	m := setupTestManager(t)

	id, err := m.Queue("dQw4w9WgXcQ", "Nobody", "Mitski", "Be the Cowboy", "https://img.example/t.jpg")
	if err != nil {
		t.Fatalf("Queue() error: %v", err)
	}

	d, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if d.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("VideoID = %q", d.VideoID)
	}
	if d.Title != "Nobody" {
		t.Errorf("Title = %q", d.Title)
	}
	if d.Artist != "Mitski" {
		t.Errorf("Artist = %q", d.Artist)
	}
	if d.Album != "Be the Cowboy" {
		t.Errorf("Album = %q", d.Album)
	}
	if d.ThumbnailURL != "https://img.example/t.jpg" {
		t.Errorf("ThumbnailURL = %q", d.ThumbnailURL)
	}
	if d.Status != StatusPending {
		t.Errorf("Status = %q, want pending", d.Status)
	}
	if d.Progress() != 0 {
		t.Errorf("Progress() = %f, want 0", d.Progress())
	}
}

func TestList_NewestFirst(t *testing.T) {
	m := setupTestManager(t)

	first, _ := m.Queue("aaaaaaaaaaa", "First", "", "", "")
	second, _ := m.Queue("bbbbbbbbbbb", "Second", "", "", "")

	downloads, err := m.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(downloads) != 2 {
		t.Fatalf("len = %d, want 2", len(downloads))
	}
	if downloads[0].ID != second || downloads[1].ID != first {
		t.Errorf("order = [%d, %d], want [%d, %d]", downloads[0].ID, downloads[1].ID, second, first)
	}
}

func TestNextPending_OldestFirst(t *testing.T) {
	m := setupTestManager(t)

	first, _ := m.Queue("aaaaaaaaaaa", "First", "", "", "")
	second, _ := m.Queue("bbbbbbbbbbb", "Second", "", "", "")

	d, err := m.NextPending()
	if err != nil {
		t.Fatalf("NextPending() error: %v", err)
	}
	if d == nil || d.ID != first {
		t.Fatalf("NextPending() = %+v, want id %d", d, first)
	}

	if err := m.markCompleted(first, "/music/first.m4a"); err != nil {
		t.Fatalf("markCompleted() error: %v", err)
	}

	d, err = m.NextPending()
	if err != nil {
		t.Fatalf("NextPending() error: %v", err)
	}
	if d == nil || d.ID != second {
		t.Fatalf("NextPending() = %+v, want id %d", d, second)
	}
}

func TestNextPending_EmptyQueue(t *testing.T) {
	m := setupTestManager(t)

	d, err := m.NextPending()
	if err != nil {
		t.Fatalf("NextPending() error: %v", err)
	}
	if d != nil {
		t.Errorf("NextPending() = %+v, want nil", d)
	}
}

func TestProgressUpdates(t *testing.T) {
	m := setupTestManager(t)

	id, _ := m.Queue("aaaaaaaaaaa", "Track", "", "", "")
	if err := m.updateProgress(id, 512, 2048); err != nil {
		t.Fatalf("updateProgress() error: %v", err)
	}

	d, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if d.BytesRead != 512 || d.TotalBytes != 2048 {
		t.Errorf("progress = %d/%d", d.BytesRead, d.TotalBytes)
	}
	if d.Progress() != 25 {
		t.Errorf("Progress() = %f, want 25", d.Progress())
	}
}

func TestMarkFailed(t *testing.T) {
	m := setupTestManager(t)

	id, _ := m.Queue("aaaaaaaaaaa", "Track", "", "", "")
	if err := m.markFailed(id, "no audio stream"); err != nil {
		t.Fatalf("markFailed() error: %v", err)
	}

	d, _ := m.Get(id)
	if d.Status != StatusFailed {
		t.Errorf("Status = %q", d.Status)
	}
	if d.Error != "no audio stream" {
		t.Errorf("Error = %q", d.Error)
	}

	// Requeueing clears the recorded error
	if err := m.markPending(id); err != nil {
		t.Fatalf("markPending() error: %v", err)
	}
	d, _ = m.Get(id)
	if d.Status != StatusPending || d.Error != "" {
		t.Errorf("after requeue: status %q error %q", d.Status, d.Error)
	}
}

func TestClearCompleted(t *testing.T) {
	m := setupTestManager(t)

	done, _ := m.Queue("aaaaaaaaaaa", "Done", "", "", "")
	pending, _ := m.Queue("bbbbbbbbbbb", "Pending", "", "", "")
	_ = m.markCompleted(done, "/music/done.m4a")

	if err := m.ClearCompleted(); err != nil {
		t.Fatalf("ClearCompleted() error: %v", err)
	}

	downloads, _ := m.List()
	if len(downloads) != 1 || downloads[0].ID != pending {
		t.Errorf("remaining = %+v, want only id %d", downloads, pending)
	}
}

func TestDelete(t *testing.T) {
	m := setupTestManager(t)

	id, _ := m.Queue("aaaaaaaaaaa", "Track", "", "", "")
	if err := m.Delete(id); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if _, err := m.Get(id); err == nil {
		t.Error("Get() should fail after Delete()")
	}
}

func TestRequeueStalled(t *testing.T) {
	m := setupTestManager(t)

	stuck, _ := m.Queue("aaaaaaaaaaa", "Stuck", "", "", "")
	done, _ := m.Queue("bbbbbbbbbbb", "Done", "", "", "")
	_ = m.markDownloading(stuck)
	_ = m.markCompleted(done, "/music/done.m4a")

	n, err := m.RequeueStalled()
	if err != nil {
		t.Fatalf("RequeueStalled() error: %v", err)
	}
	if n != 1 {
		t.Errorf("RequeueStalled() = %d, want 1", n)
	}

	d, _ := m.Get(stuck)
	if d.Status != StatusPending {
		t.Errorf("Status = %q, want pending", d.Status)
	}
	d, _ = m.Get(done)
	if d.Status != StatusCompleted {
		t.Errorf("completed row touched: status = %q", d.Status)
	}
}
