// Package catalog provides a client for Piped-compatible catalog APIs.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound is returned when the catalog has no entry for the request.
var ErrNotFound = errors.New("catalog item not found")

// Some instances refuse requests without a browser-looking agent.
const userAgent = "Mozilla/5.0 (compatible; replay/1.0)"

// Search filters understood by the API.
const (
	FilterSongs   = "music_songs"
	FilterArtists = "music_artists"
	FilterVideos  = "videos"
)

// Client is a catalog API client. It tries each configured instance in
// order until one answers.
type Client struct {
	bases      []string
	httpClient *http.Client
}

// New creates a catalog client for the given instance base URLs.
func New(bases ...string) *Client {
	cleaned := make([]string, 0, len(bases))
	for _, b := range bases {
		if b == "" {
			continue
		}
		for len(b) > 0 && b[len(b)-1] == '/' {
			b = b[:len(b)-1]
		}
		cleaned = append(cleaned, b)
	}
	return &Client{
		bases: cleaned,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Search queries the catalog. An empty filter defaults to music songs.
func (c *Client) Search(ctx context.Context, query, filter string) ([]SearchItem, error) {
	if filter == "" {
		filter = FilterSongs
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("filter", filter)

	var result searchResponse
	if err := c.getJSON(ctx, "/search?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// Playlist fetches a public playlist by its list id.
func (c *Client) Playlist(ctx context.Context, listID string) (*Playlist, error) {
	var result Playlist
	if err := c.getJSON(ctx, "/playlists/"+url.PathEscape(listID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Streams fetches the stream manifest for a video, including the audio
// streams used for download.
func (c *Client) Streams(ctx context.Context, videoID string) (*Streams, error) {
	var result Streams
	if err := c.getJSON(ctx, "/streams/"+url.PathEscape(videoID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ArtistImage resolves an artist name to a channel avatar via artist
// search. It satisfies the photo source interface; an empty URL without
// an error means no artist matched.
func (c *Client) ArtistImage(ctx context.Context, name string) (string, error) {
	items, err := c.Search(ctx, name, FilterArtists)
	if err != nil {
		return "", err
	}
	for _, item := range items {
		if item.Thumbnail != "" {
			return item.Thumbnail, nil
		}
	}
	return "", nil
}

// getJSON performs a GET against each instance in turn and decodes the
// first successful response into v. A 404 is final on any instance.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	if len(c.bases) == 0 {
		return errors.New("no catalog instances configured")
	}

	var lastErr error
	for _, base := range c.bases {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return ErrNotFound
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status from %s: %s", base, resp.Status)
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(v)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("decode response: %w", err)
			continue
		}
		return nil
	}
	return lastErr
}
