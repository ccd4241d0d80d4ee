// Package spotify provides a minimal Spotify Web API client used for
// playlist import. Only the client-credentials flow is supported, which
// is enough to read public playlists.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ErrNotConfigured is returned when no API credentials are set.
var ErrNotConfigured = errors.New("spotify credentials not configured")

// ErrNotFound is returned when a playlist does not exist or is private.
var ErrNotFound = errors.New("spotify playlist not found")

const (
	defaultAccountsURL = "https://accounts.spotify.com/api/token"
	defaultAPIURL      = "https://api.spotify.com/v1"
)

// Client is a Spotify Web API client.
type Client struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client

	accountsURL string
	apiURL      string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New creates a Spotify client. Both credentials must be non-empty for
// requests to succeed.
func New(clientID, clientSecret string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		accountsURL: defaultAccountsURL,
		apiURL:      defaultAPIURL,
	}
}

// Track is one playlist entry.
type Track struct {
	Title      string
	Artists    []string
	Album      string
	DurationMS int
	CoverURL   string
}

// ArtistText joins the track's artists the way they are displayed.
func (t Track) ArtistText() string {
	return strings.Join(t.Artists, ", ")
}

// Duration returns the track length rounded to whole seconds.
func (t Track) Duration() int {
	return t.DurationMS / 1000
}

// Playlist is a playlist with all its tracks resolved.
type Playlist struct {
	Name        string
	Description string
	CoverURL    string
	Tracks      []Track
}

type image struct {
	URL string `json:"url"`
}

type apiTrack struct {
	Name       string `json:"name"`
	DurationMS int    `json:"duration_ms"`
	Album      struct {
		Name   string  `json:"name"`
		Images []image `json:"images"`
	} `json:"album"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
}

type trackPage struct {
	Items []struct {
		Track *apiTrack `json:"track"`
	} `json:"items"`
	Next string `json:"next"`
}

type playlistResponse struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Images      []image   `json:"images"`
	Tracks      trackPage `json:"tracks"`
}

// Playlist fetches a public playlist with all tracks, following the
// paging cursor until exhausted.
func (c *Client) Playlist(ctx context.Context, playlistID string) (*Playlist, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return nil, ErrNotConfigured
	}

	var result playlistResponse
	if err := c.getJSON(ctx, c.apiURL+"/playlists/"+url.PathEscape(playlistID), &result); err != nil {
		return nil, err
	}

	pl := &Playlist{
		Name:        result.Name,
		Description: result.Description,
	}
	if len(result.Images) > 0 {
		pl.CoverURL = result.Images[0].URL
	}
	pl.Tracks = appendTracks(pl.Tracks, result.Tracks)

	next := result.Tracks.Next
	for next != "" {
		var page trackPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		pl.Tracks = appendTracks(pl.Tracks, page)
		next = page.Next
	}

	return pl, nil
}

// appendTracks converts a page of API items. Entries with a null track
// (removed or region-locked) are skipped.
func appendTracks(tracks []Track, page trackPage) []Track {
	for _, item := range page.Items {
		if item.Track == nil {
			continue
		}
		t := Track{
			Title:      item.Track.Name,
			Album:      item.Track.Album.Name,
			DurationMS: item.Track.DurationMS,
		}
		for _, a := range item.Track.Artists {
			if a.Name != "" {
				t.Artists = append(t.Artists, a.Name)
			}
		}
		if len(item.Track.Album.Images) > 0 {
			t.CoverURL = item.Track.Album.Images[0].URL
		}
		tracks = append(tracks, t)
	}
	return tracks
}

// token returns a valid access token, requesting a new one when the
// cached token is missing or about to expire.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.accountsURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request status: %s", resp.Status)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("empty access token")
	}

	c.accessToken = tok.AccessToken
	// renew slightly early so in-flight requests never race expiry
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - 30*time.Second)

	return c.accessToken, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, v any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var playlistIDPattern = regexp.MustCompile(`(?:open\.spotify\.com/playlist/|spotify:playlist:)([0-9A-Za-z]+)`)

// PlaylistID extracts the playlist id from an open.spotify.com URL or a
// spotify:playlist: URI. Returns "" when neither form matches.
func PlaylistID(rawURL string) string {
	m := playlistIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}
