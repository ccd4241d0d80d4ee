// Package lastfm wraps the Last.fm API for scrobbling and artist metadata.
package lastfm

import (
	"context"
	"errors"
	"fmt"

	"github.com/shkh/lastfm-go/lastfm"
)

// ErrNotAuthenticated is returned when an operation requires authentication.
var ErrNotAuthenticated = errors.New("not authenticated")

// Client wraps the Last.fm API.
type Client struct {
	api      *lastfm.Api
	username string
	authed   bool
}

// New creates a new Last.fm client with the given API credentials.
func New(apiKey, apiSecret string) *Client {
	return &Client{
		api: lastfm.New(apiKey, apiSecret),
	}
}

// Login authenticates with the mobile session flow using account
// credentials. Required before scrobbling.
func (c *Client) Login(username, password string) error {
	if err := c.api.Login(username, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.username = username
	c.authed = true
	return nil
}

// SetSessionKey restores a stored session without a fresh login.
func (c *Client) SetSessionKey(username, key string) {
	c.api.SetSession(key)
	c.username = username
	c.authed = key != ""
}

// SessionKey returns the active session key so callers can persist it.
func (c *Client) SessionKey() string {
	return c.api.GetSessionKey()
}

// IsAuthenticated returns true once Login has succeeded.
func (c *Client) IsAuthenticated() bool {
	return c.authed
}

// IsAuthError reports whether err means the session key was rejected
// and a fresh login is required.
func IsAuthError(err error) bool {
	var apiErr *lastfm.LastfmError
	return errors.As(err, &apiErr) && apiErr.Code == 9
}

// Username returns the authenticated account name.
func (c *Client) Username() string {
	return c.username
}

// UpdateNowPlaying sends a "now playing" notification to Last.fm.
func (c *Client) UpdateNowPlaying(track ScrobbleTrack) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	params := lastfm.P{
		"artist": track.Artist,
		"track":  track.Track,
	}
	if track.Album != "" {
		params["album"] = track.Album
	}
	if track.Duration > 0 {
		params["duration"] = int(track.Duration.Seconds())
	}

	_, err := c.api.Track.UpdateNowPlaying(params)
	if err != nil {
		return fmt.Errorf("update now playing: %w", err)
	}
	return nil
}

// Scrobble submits a single track play to Last.fm.
func (c *Client) Scrobble(track ScrobbleTrack) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	params := lastfm.P{
		"artist":    track.Artist,
		"track":     track.Track,
		"timestamp": track.Timestamp.Unix(),
	}
	if track.Album != "" {
		params["album"] = track.Album
	}
	if track.Duration > 0 {
		params["duration"] = int(track.Duration.Seconds())
	}

	_, err := c.api.Track.Scrobble(params)
	if err != nil {
		return fmt.Errorf("scrobble: %w", err)
	}
	return nil
}

// ScrobbleBatch submits multiple track plays to Last.fm (up to 50).
func (c *Client) ScrobbleBatch(tracks []ScrobbleTrack) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if len(tracks) == 0 {
		return nil
	}
	if len(tracks) > 50 {
		tracks = tracks[:50] // Last.fm limit
	}

	artists := make([]string, len(tracks))
	trackNames := make([]string, len(tracks))
	timestamps := make([]int64, len(tracks))
	albums := make([]string, len(tracks))

	for i, t := range tracks {
		artists[i] = t.Artist
		trackNames[i] = t.Track
		timestamps[i] = t.Timestamp.Unix()
		albums[i] = t.Album
	}

	params := lastfm.P{
		"artist":    artists,
		"track":     trackNames,
		"timestamp": timestamps,
		"album":     albums,
	}

	_, err := c.api.Track.Scrobble(params)
	if err != nil {
		return fmt.Errorf("batch scrobble: %w", err)
	}
	return nil
}

// SimilarArtists fetches similar artists with their match scores.
func (c *Client) SimilarArtists(artist string, limit int) ([]SimilarArtist, error) {
	params := lastfm.P{
		"artist": artist,
		"limit":  limit,
	}

	result, err := c.api.Artist.GetSimilar(params)
	if err != nil {
		return nil, fmt.Errorf("get similar artists: %w", err)
	}

	artists := make([]SimilarArtist, 0, len(result.Similars))
	for _, a := range result.Similars {
		score := 0.0
		if a.Match != "" {
			_, _ = fmt.Sscanf(a.Match, "%f", &score) //nolint:errcheck // parse failure means score stays 0
		}
		artists = append(artists, SimilarArtist{
			Name:       a.Name,
			MatchScore: score,
		})
	}

	return artists, nil
}

// ArtistImage fetches an artist portrait via artist.getInfo. It
// satisfies the photo source interface; an empty URL without an error
// means Last.fm has no usable image.
func (c *Client) ArtistImage(_ context.Context, name string) (string, error) {
	result, err := c.api.Artist.GetInfo(lastfm.P{"artist": name})
	if err != nil {
		return "", fmt.Errorf("get artist info: %w", err)
	}

	var fallback string
	for _, img := range result.Images {
		if img.Url == "" {
			continue
		}
		if img.Size == "extralarge" {
			return img.Url, nil
		}
		fallback = img.Url
	}
	return fallback, nil
}
