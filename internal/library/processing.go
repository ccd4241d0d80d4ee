package library

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lmerle/replay/internal/tags"
)

// trackResult holds the result of processing a music file.
type trackResult struct {
	file         fileInfo
	tag          *tags.Tag
	durationSecs int
	isNew        bool
}

// processFiles reads metadata in parallel and upserts rows sequentially.
// Sequential writes avoid sqlite lock contention.
func (l *Library) processFiles(ctx context.Context, files []fileInfo, isNew map[string]bool, stats *ScanStats) error {
	workCh := make(chan fileInfo, len(files))
	resultCh := make(chan trackResult, len(files))

	var failed atomic.Int64

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Go(func() {
			for f := range workCh {
				if ctx.Err() != nil {
					continue
				}

				tag, err := tags.Read(f.path)
				if err != nil {
					failed.Add(1)
					l.log.Debug().Err(err).Str("path", f.path).Msg("skipping unreadable file")
					continue
				}

				durationSecs := 0
				if info, err := tags.ReadAudioInfo(f.path); err == nil {
					durationSecs = int(info.Duration.Round(time.Second).Seconds())
				}

				resultCh <- trackResult{
					file:         f,
					tag:          tag,
					durationSecs: durationSecs,
					isNew:        isNew[f.path],
				}
			}
		})
	}

	go func() {
		for _, f := range files {
			workCh <- f
		}
		close(workCh)
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for result := range resultCh {
		if err := l.upsertTrack(result); err != nil {
			return err
		}
		if result.isNew {
			stats.Added++
		} else {
			stats.Updated++
		}
	}

	stats.Failed = int(failed.Load())
	return nil
}

// existingTracks returns the change-detection snapshot of all indexed tracks.
func (l *Library) existingTracks() (map[string]knownFile, error) {
	rows, err := l.db.Query(`SELECT path, mtime, size FROM library_tracks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks := make(map[string]knownFile)
	for rows.Next() {
		var path string
		var known knownFile
		if err := rows.Scan(&path, &known.mtime, &known.size); err != nil {
			return nil, err
		}
		tracks[path] = known
	}
	return tracks, rows.Err()
}

// upsertTrack inserts or updates a track row.
// File mtime seeds added_at on new tracks so import order survives rescans.
func (l *Library) upsertTrack(r trackResult) error {
	now := time.Now().Unix()
	_, err := l.db.Exec(`
		INSERT INTO library_tracks (path, mtime, size, artist, album, title, duration_secs, track_number, year, genre, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime = excluded.mtime,
			size = excluded.size,
			artist = excluded.artist,
			album = excluded.album,
			title = excluded.title,
			duration_secs = excluded.duration_secs,
			track_number = excluded.track_number,
			year = excluded.year,
			genre = excluded.genre,
			updated_at = excluded.updated_at
	`, r.file.path, r.file.mtime, r.file.size, r.tag.Artist, r.tag.Album, r.tag.Title,
		r.durationSecs, r.tag.TrackNumber, r.tag.Year(), r.tag.Genre, r.file.mtime, now)
	return err
}

// deleteByPath removes a track row by its path.
func (l *Library) deleteByPath(path string) error {
	_, err := l.db.Exec(`DELETE FROM library_tracks WHERE path = ?`, path)
	return err
}
