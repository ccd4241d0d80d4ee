package tags

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Cover art base names checked in album folders, in priority order.
var coverArtNames = []string{"cover", "folder", "album", "front", "artwork"}

// Image extensions accepted for folder art.
var coverArtExts = []string{".jpg", ".jpeg", ".png"}

// ExtractCoverArt reads cover art for an audio file.
// It first tries to extract embedded art from the file metadata.
// If no embedded art is found, it looks for common cover image files
// in the same directory (cover.jpg, folder.jpg, album.png, etc.).
// Returns the image data and MIME type, or nil if no art is found.
func ExtractCoverArt(path string) (data []byte, mimeType string, err error) {
	data, mimeType, err = extractEmbeddedArt(path)
	if err != nil {
		return nil, "", err
	}
	if data != nil {
		return data, mimeType, nil
	}

	return findFolderArt(filepath.Dir(path))
}

// extractEmbeddedArt reads embedded cover art from an audio file's metadata.
func extractEmbeddedArt(path string) (data []byte, mimeType string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, "", err
	}

	pic := m.Picture()
	if pic == nil {
		return nil, "", nil
	}

	return pic.Data, pic.MIMEType, nil
}

// findFolderArt looks for common cover art files in the given directory.
// Filename matching is case-insensitive.
func findFolderArt(dir string) (data []byte, mimeType string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", err
	}

	actual := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			actual[strings.ToLower(e.Name())] = e.Name()
		}
	}

	for _, name := range coverArtNames {
		for _, ext := range coverArtExts {
			filename, ok := actual[name+ext]
			if !ok {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, filename))
			if err != nil {
				continue
			}
			if ext == ".png" {
				return data, mimePNG, nil
			}
			return data, mimeJPEG, nil
		}
	}

	return nil, "", nil
}
