// Package importer brings playlists from YouTube and Spotify into the
// local playlist store. YouTube playlists map directly onto catalog
// entries; Spotify tracks carry no video ids and are resolved against
// the catalog by fuzzy matching.
package importer

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/lmerle/replay/internal/catalog"
	"github.com/lmerle/replay/internal/playlists"
	"github.com/lmerle/replay/internal/spotify"
)

// CatalogSource is the catalog surface the importer needs.
type CatalogSource interface {
	Playlist(ctx context.Context, listID string) (*catalog.Playlist, error)
	Search(ctx context.Context, query, filter string) ([]catalog.SearchItem, error)
}

// SpotifySource fetches public Spotify playlists.
type SpotifySource interface {
	Playlist(ctx context.Context, playlistID string) (*spotify.Playlist, error)
}

// Importer copies playlists from online sources into the store.
type Importer struct {
	catalog CatalogSource
	spotify SpotifySource
	store   *playlists.Store
	workers int
	log     zerolog.Logger
}

// New creates a new Importer. workers bounds the catalog lookups that
// run concurrently while resolving Spotify tracks.
func New(catalogSource CatalogSource, spotifySource SpotifySource, store *playlists.Store, workers int, log zerolog.Logger) *Importer {
	if workers <= 0 {
		workers = defaultResolveWorkers
	}
	return &Importer{
		catalog: catalogSource,
		spotify: spotifySource,
		store:   store,
		workers: workers,
		log:     log,
	}
}

// Result summarizes a finished import.
type Result struct {
	PlaylistID int64
	Name       string
	Total      int      // tracks in the source playlist
	Imported   int      // tracks stored
	Failed     []string // titles that could not be imported
}

var listIDPattern = regexp.MustCompile(`list=([a-zA-Z0-9_-]+)`)

// ListID extracts the playlist id from a YouTube or YouTube Music URL.
// Returns "" when the URL carries no list parameter.
func ListID(rawURL string) string {
	m := listIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// ImportYouTube fetches a YouTube playlist through the catalog and
// stores it with all its tracks. Entries without an extractable video
// id end up in Result.Failed.
func (i *Importer) ImportYouTube(ctx context.Context, rawURL string) (*Result, error) {
	listID := ListID(rawURL)
	if listID == "" {
		return nil, fmt.Errorf("no playlist id in url: %s", rawURL)
	}

	pl, err := i.catalog.Playlist(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist %s: %w", listID, err)
	}

	res := &Result{Name: pl.Name, Total: len(pl.RelatedStreams)}

	tracks := make([]playlists.Track, 0, len(pl.RelatedStreams))
	for _, item := range pl.RelatedStreams {
		videoID := catalog.VideoID(item.URL)
		if videoID == "" {
			i.log.Warn().Str("title", item.Title).Str("url", item.URL).Msg("no video id in playlist entry")
			res.Failed = append(res.Failed, item.Title)
			continue
		}
		tracks = append(tracks, playlists.Track{
			VideoID:      videoID,
			Title:        item.Title,
			ArtistText:   catalog.UploaderArtist(item.UploaderName),
			DurationSecs: item.Duration,
			ThumbnailURL: item.Thumbnail,
		})
	}

	name := pl.Name
	if name == "" {
		name = "YouTube playlist"
	}

	id, err := i.store.Create(name, playlists.SourceYouTube, rawURL)
	if err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}
	if err := i.store.AddTracks(id, tracks); err != nil {
		return nil, fmt.Errorf("store tracks: %w", err)
	}

	res.PlaylistID = id
	res.Imported = len(tracks)

	i.log.Info().
		Int64("playlist", id).
		Str("name", name).
		Int("imported", res.Imported).
		Int("failed", len(res.Failed)).
		Msg("youtube playlist imported")
	return res, nil
}
