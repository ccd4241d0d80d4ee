package tags

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Write writes tag metadata to a music file.
// The file must already exist. This operation modifies the file in place.
func Write(path string, t *Tag) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ExtMP3:
		return writeMP3Tags(path, t)
	case ExtFLAC:
		return writeFLACTags(path, t)
	case ExtOPUS, ExtOGG, ExtOGA:
		return writeOggTags(path, t)
	case ExtM4A:
		return writeM4ATags(path, t)
	}

	return fmt.Errorf("unsupported file format: %s", ext)
}

const (
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
)

// detectMimeType detects the MIME type of image data.
func detectMimeType(data []byte) string {
	if len(data) == 0 {
		return mimeJPEG
	}
	// http.DetectContentType may return more specific types, normalize to common ones
	switch http.DetectContentType(data) {
	case mimePNG:
		return mimePNG
	default:
		return mimeJPEG
	}
}
