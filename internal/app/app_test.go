package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lmerle/replay/internal/config"
	"github.com/lmerle/replay/internal/history"
	"github.com/lmerle/replay/internal/spotify"
	"github.com/lmerle/replay/internal/state"
)

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()

	st, err := state.OpenAt(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("open state: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(cfg, st, zerolog.Nop())
}

func fullConfig() *config.Config {
	return &config.Config{
		Spotify: config.SpotifyConfig{ClientID: "id", ClientSecret: "secret"},
		Lastfm: config.LastfmConfig{
			APIKey:    "key",
			APISecret: "secret",
			Username:  "listener",
			Password:  "hunter2",
			Scrobble:  true,
		},
	}
}

func TestNewMinimalConfig(t *testing.T) {
	a := newTestApp(t, &config.Config{})

	for name, got := range map[string]bool{
		"History":       a.History != nil,
		"Playlists":     a.Playlists != nil,
		"Library":       a.Library != nil,
		"Downloads":     a.Downloads != nil,
		"Catalog":       a.Catalog != nil,
		"Photos":        a.Photos != nil,
		"PhotoCache":    a.PhotoCache != nil,
		"StationCache":  a.StationCache != nil,
		"Importer":      a.Importer != nil,
		"Embedder":      a.Embedder != nil,
		"ScrobbleQueue": a.ScrobbleQueue != nil,
		"Worker":        a.Worker != nil,
	} {
		if !got {
			t.Errorf("%s should be wired without credentials", name)
		}
	}

	if a.Spotify != nil || a.Lastfm != nil || a.Station != nil || a.Scrobbler != nil {
		t.Error("credential-gated services should stay nil without credentials")
	}
}

func TestNewFullConfig(t *testing.T) {
	a := newTestApp(t, fullConfig())

	if a.Spotify == nil || a.Lastfm == nil {
		t.Fatal("clients should be wired from credentials")
	}
	if a.Station == nil {
		t.Error("station should be available with last.fm configured")
	}
	if a.Scrobbler == nil {
		t.Error("scrobbler should be enabled")
	}
}

func TestScrobblerNeedsOptIn(t *testing.T) {
	cfg := fullConfig()
	cfg.Lastfm.Scrobble = false
	a := newTestApp(t, cfg)

	if a.Scrobbler != nil {
		t.Error("scrobbler should stay off unless enabled")
	}
}

func TestMusicDir(t *testing.T) {
	if got := MusicDir(&config.Config{MusicFolder: "/mnt/music"}); got != "/mnt/music" {
		t.Errorf("MusicDir = %q, want configured folder", got)
	}
	if got := MusicDir(&config.Config{}); filepath.Base(got) != "replay" {
		t.Errorf("MusicDir = %q, want a replay dir under the user music dir", got)
	}
}

func TestRecordPlayEnqueuesScrobble(t *testing.T) {
	a := newTestApp(t, fullConfig())

	play := history.Play{
		Source:       history.SourceOnline,
		TrackID:      "dQw4w9WgXcQ",
		Title:        "Nobody",
		ArtistText:   "Mitski",
		DurationSecs: 193,
	}
	if err := a.RecordPlay(play); err != nil {
		t.Fatalf("RecordPlay() error = %v", err)
	}

	if n, _ := a.History.Count(history.SourceOnline); n != 1 {
		t.Errorf("history count = %d, want 1", n)
	}
	if n, err := a.ScrobbleQueue.Pending(); err != nil || n != 1 {
		t.Errorf("Pending() = %d, %v, want 1 queued scrobble", n, err)
	}

	// Too short and untitled plays are recorded but never scrobbled.
	short := play
	short.TrackID = "a1b2c3d4e5f"
	short.DurationSecs = 10
	if err := a.RecordPlay(short); err != nil {
		t.Fatalf("RecordPlay() error = %v", err)
	}
	untitled := play
	untitled.TrackID = "f5e4d3c2b1a"
	untitled.Title = ""
	if err := a.RecordPlay(untitled); err != nil {
		t.Fatalf("RecordPlay() error = %v", err)
	}

	if n, _ := a.ScrobbleQueue.Pending(); n != 1 {
		t.Errorf("Pending() = %d, want ineligible plays skipped", n)
	}
}

func TestRecordPlayWithoutScrobbler(t *testing.T) {
	a := newTestApp(t, &config.Config{})

	err := a.RecordPlay(history.Play{
		Source:  history.SourceOnline,
		TrackID: "dQw4w9WgXcQ",
		Title:   "Nobody",
	})
	if err != nil {
		t.Fatalf("RecordPlay() error = %v", err)
	}
	if n, _ := a.ScrobbleQueue.Pending(); n != 0 {
		t.Errorf("Pending() = %d, want no scrobbles without opt-in", n)
	}
}

func TestImportSpotifyNotConfigured(t *testing.T) {
	a := newTestApp(t, &config.Config{})

	_, err := a.Import(context.Background(), "https://open.spotify.com/playlist/37i9dQZF1DX")
	if !errors.Is(err, spotify.ErrNotConfigured) {
		t.Errorf("Import() error = %v, want ErrNotConfigured", err)
	}
}

func TestSuggestRequiresLastfm(t *testing.T) {
	a := newTestApp(t, &config.Config{})

	if _, err := a.Suggest(context.Background(), 5); err == nil {
		t.Error("Suggest() should fail without last.fm credentials")
	}
}

func TestScan(t *testing.T) {
	a := newTestApp(t, &config.Config{})
	if _, err := a.Scan(context.Background()); err == nil {
		t.Error("Scan() should fail without configured sources")
	}

	cfg := &config.Config{LibrarySources: []string{t.TempDir()}}
	a = newTestApp(t, cfg)
	scanStats, err := a.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if scanStats.Discovered != 0 {
		t.Errorf("Discovered = %d, want empty dir to yield nothing", scanStats.Discovered)
	}
}

func TestStats(t *testing.T) {
	a := newTestApp(t, &config.Config{})
	if err := a.RecordPlay(history.Play{
		Source: history.SourceOnline, TrackID: "dQw4w9WgXcQ",
		Title: "Nobody", ArtistText: "Mitski", DurationSecs: 193,
	}); err != nil {
		t.Fatalf("RecordPlay() error = %v", err)
	}

	s, err := a.Stats(10)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if s.TotalPlays != 1 || s.DistinctArtists != 1 {
		t.Errorf("summary = %+v, want one play by one artist", s)
	}
}

func TestQueueDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/streams/dQw4w9WgXcQ":
			w.Write([]byte(`{"title": "Nobody", "uploader": "Mitski - Topic", "thumbnailUrl": "http://img/n.jpg", "audioStreams": []}`))
		case r.URL.Path == "/search":
			w.Write([]byte(`{"items": [
				{"url": "/watch?v=a1b2c3d4e5f", "type": "stream", "title": "Not", "uploaderName": "Big Thief", "thumbnail": "http://img/t.jpg", "duration": 300}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := &config.Config{Catalog: config.CatalogConfig{URL: server.URL}}
	a := newTestApp(t, cfg)

	d, err := a.QueueDownload(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("QueueDownload(url) error = %v", err)
	}
	if d.VideoID != "dQw4w9WgXcQ" || d.Title != "Nobody" || d.Artist != "Mitski" {
		t.Errorf("queued = %+v, want metadata from the stream manifest", d)
	}

	d, err = a.QueueDownload(context.Background(), "big thief not")
	if err != nil {
		t.Fatalf("QueueDownload(query) error = %v", err)
	}
	if d.VideoID != "a1b2c3d4e5f" || d.Title != "Not" || d.Artist != "Big Thief" {
		t.Errorf("queued = %+v, want first search hit", d)
	}

	list, err := a.Downloads.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("downloads = %d, want 2 queued", len(list))
	}
}

func TestFlushScrobblesNotEnabled(t *testing.T) {
	a := newTestApp(t, &config.Config{})

	if _, err := a.FlushScrobbles(context.Background()); err == nil {
		t.Error("FlushScrobbles() should fail when scrobbling is off")
	}
}

func TestMaintain(t *testing.T) {
	a := newTestApp(t, &config.Config{})
	for i := 0; i < 3; i++ {
		if err := a.RecordPlay(history.Play{
			Source: history.SourceOnline, TrackID: string(rune('a'+i)) + "1b2c3d4e5f",
			Title: "Track", ArtistText: "Someone",
		}); err != nil {
			t.Fatalf("RecordPlay() error = %v", err)
		}
	}

	if err := a.Maintain(); err != nil {
		t.Fatalf("Maintain() error = %v", err)
	}
	if n, _ := a.History.Count(history.SourceOnline); n != 3 {
		t.Errorf("history count = %d, default cap should keep all three", n)
	}
}
