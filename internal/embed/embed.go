// Package embed writes online metadata and cover art into downloaded
// music files.
package embed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/lmerle/replay/internal/tags"
)

const fetchTimeout = 15 * time.Second

// Meta is the metadata to embed into a file.
type Meta struct {
	Title        string
	Artist       string
	Album        string
	ThumbnailURL string
}

// Embedder tags music files with metadata fetched from the catalog.
type Embedder struct {
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates an Embedder.
func New(log zerolog.Logger) *Embedder {
	return &Embedder{
		httpClient: &http.Client{
			Timeout: fetchTimeout,
		},
		log: log,
	}
}

// Embed writes meta into the file at path. A missing or unreachable
// thumbnail downgrades to tag-only embedding rather than failing.
func (e *Embedder) Embed(ctx context.Context, path string, meta Meta) error {
	tag := tags.Tag{
		Path:        path,
		Title:       meta.Title,
		Artist:      meta.Artist,
		AlbumArtist: meta.Artist,
		Album:       meta.Album,
	}

	if meta.ThumbnailURL != "" {
		cover, err := e.fetchCover(ctx, meta.ThumbnailURL)
		if err != nil {
			e.log.Warn().Err(err).Str("url", meta.ThumbnailURL).Msg("cover fetch failed")
		} else {
			tag.CoverArt = cover
		}
	}

	return tags.Write(path, &tag)
}

// fetchCover downloads a thumbnail and scales it down to cover size.
func (e *Embedder) fetchCover(ctx context.Context, coverURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("thumbnail returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return shrinkCover(data)
}
