package library

import (
	"context"
)

const numWorkers = 8

// ScanStats summarizes a completed scan.
type ScanStats struct {
	Discovered int // music files found on disk
	Added      int
	Updated    int
	Unchanged  int
	Removed    int // rows deleted because the file disappeared
	Failed     int // unreadable files skipped
}

// fileInfo holds information about a discovered music file.
type fileInfo struct {
	path  string
	mtime int64
	size  int64
}

// knownFile is the change-detection snapshot of an indexed track.
type knownFile struct {
	mtime int64
	size  int64
}

// Scan performs an incremental scan of the given source directories.
// Files whose mtime and size are unchanged since the last scan are
// skipped; rows whose files disappeared from disk are removed.
func (l *Library) Scan(ctx context.Context, sources []string) (*ScanStats, error) {
	stats := &ScanStats{}

	files := discoverFiles(sources)
	stats.Discovered = len(files)
	l.log.Debug().Int("files", len(files)).Msg("library scan discovered files")

	existing, err := l.existingTracks()
	if err != nil {
		return nil, err
	}

	toProcess := make([]fileInfo, 0, len(files))
	isNew := make(map[string]bool)
	for _, f := range files {
		if known, ok := existing[f.path]; ok && known.mtime == f.mtime && known.size == f.size {
			stats.Unchanged++
			continue
		}
		_, existed := existing[f.path]
		isNew[f.path] = !existed
		toProcess = append(toProcess, f)
	}

	if len(toProcess) > 0 {
		if err := l.processFiles(ctx, toProcess, isNew, stats); err != nil {
			return nil, err
		}
	}

	discovered := make(map[string]struct{}, len(files))
	for _, f := range files {
		discovered[f.path] = struct{}{}
	}
	for path := range existing {
		if _, ok := discovered[path]; ok {
			continue
		}
		if err := l.deleteByPath(path); err != nil {
			l.log.Warn().Err(err).Str("path", path).Msg("failed to remove deleted track")
			continue
		}
		stats.Removed++
	}

	l.log.Info().
		Int("discovered", stats.Discovered).
		Int("added", stats.Added).
		Int("updated", stats.Updated).
		Int("unchanged", stats.Unchanged).
		Int("removed", stats.Removed).
		Int("failed", stats.Failed).
		Msg("library scan complete")

	return stats, ctx.Err()
}
