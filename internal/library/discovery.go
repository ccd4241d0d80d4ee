package library

import (
	"os"
	"path/filepath"

	"github.com/lmerle/replay/internal/tags"
)

// discoverFiles walks the given source directories and returns all music files found.
// Unreadable entries are skipped so one bad directory cannot abort a scan.
func discoverFiles(sources []string) []fileInfo {
	var files []fileInfo
	for _, src := range sources {
		_ = filepath.WalkDir(src, func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil //nolint:nilerr // intentionally skipping errors
			}
			if d.IsDir() || !tags.IsMusicFile(path) {
				return nil
			}

			info, infoErr := d.Info()
			if infoErr != nil {
				return nil //nolint:nilerr // intentionally skipping errors
			}

			files = append(files, fileInfo{
				path:  path,
				mtime: info.ModTime().Unix(),
				size:  info.Size(),
			})
			return nil
		})
	}
	return files
}
