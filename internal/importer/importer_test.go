package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/lmerle/replay/internal/catalog"
	"github.com/lmerle/replay/internal/playlists"
	"github.com/lmerle/replay/internal/spotify"
)

type fakeCatalog struct {
	playlists map[string]*catalog.Playlist
	results   map[string][]catalog.SearchItem
	searchErr error

	mu      sync.Mutex
	queries []string
}

func (f *fakeCatalog) Playlist(_ context.Context, listID string) (*catalog.Playlist, error) {
	pl, ok := f.playlists[listID]
	if !ok {
		return nil, fmt.Errorf("unknown playlist %s", listID)
	}
	return pl, nil
}

func (f *fakeCatalog) Search(_ context.Context, query, _ string) ([]catalog.SearchItem, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results[query], nil
}

type fakeSpotify struct {
	playlist *spotify.Playlist
	err      error
}

func (f *fakeSpotify) Playlist(context.Context, string) (*spotify.Playlist, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.playlist, nil
}

func setupStore(t *testing.T) *playlists.Store {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		PRAGMA foreign_keys = ON;
		CREATE TABLE playlists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			source_url TEXT,
			created_at INTEGER NOT NULL,
			last_used_at INTEGER NOT NULL
		);
		CREATE TABLE playlist_tracks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			video_id TEXT NOT NULL,
			title TEXT NOT NULL,
			artist_text TEXT NOT NULL DEFAULT '',
			duration_secs INTEGER NOT NULL DEFAULT 0,
			thumbnail_url TEXT,
			UNIQUE(playlist_id, position)
		);
	`)
	require.NoError(t, err)

	return playlists.New(db)
}

func newTestImporter(t *testing.T, cat *fakeCatalog, sp *fakeSpotify) (*Importer, *playlists.Store) {
	t.Helper()
	store := setupStore(t)
	return New(cat, sp, store, 2, zerolog.Nop()), store
}

func TestListID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/playlist?list=PLabc123_-XY", "PLabc123_-XY"},
		{"https://music.youtube.com/watch?v=abc&list=RDAMVMxyz&index=2", "RDAMVMxyz"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ListID(tt.url), "url %q", tt.url)
	}
}

func TestImportYouTube(t *testing.T) {
	cat := &fakeCatalog{
		playlists: map[string]*catalog.Playlist{
			"PLx1": {
				Name: "Road Trip",
				RelatedStreams: []catalog.PlaylistItem{
					{URL: "/watch?v=dQw4w9WgXcQ", Title: "Song One", UploaderName: "Mitski - Topic", Duration: 201, Thumbnail: "https://img.example/1.jpg"},
					{URL: "/watch?v=a1b2c3d4e5f", Title: "Song Two", UploaderName: "Big Thief", Duration: 187},
					{URL: "/channel/UCab", Title: "Broken Entry"},
				},
			},
		},
	}
	imp, store := newTestImporter(t, cat, &fakeSpotify{})

	url := "https://www.youtube.com/playlist?list=PLx1"
	res, err := imp.ImportYouTube(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, "Road Trip", res.Name)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, []string{"Broken Entry"}, res.Failed)

	pl, err := store.Get(res.PlaylistID)
	require.NoError(t, err)
	assert.Equal(t, "Road Trip", pl.Name)
	assert.Equal(t, playlists.SourceYouTube, pl.Source)
	assert.Equal(t, url, pl.SourceURL)

	tracks, err := store.Tracks(res.PlaylistID)
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.Equal(t, 0, tracks[0].Position)
	assert.Equal(t, "dQw4w9WgXcQ", tracks[0].VideoID)
	assert.Equal(t, "Song One", tracks[0].Title)
	assert.Equal(t, "Mitski", tracks[0].ArtistText, "Topic suffix should be stripped")
	assert.Equal(t, 201, tracks[0].DurationSecs)
	assert.Equal(t, "https://img.example/1.jpg", tracks[0].ThumbnailURL)

	assert.Equal(t, "a1b2c3d4e5f", tracks[1].VideoID)
	assert.Equal(t, "Big Thief", tracks[1].ArtistText)
}

func TestImportYouTube_NoListID(t *testing.T) {
	imp, store := newTestImporter(t, &fakeCatalog{}, &fakeSpotify{})

	_, err := imp.ImportYouTube(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.Error(t, err)

	pls, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, pls, "no playlist should be created on a bad url")
}

func TestImportSpotify(t *testing.T) {
	sp := &fakeSpotify{
		playlist: &spotify.Playlist{
			Name: "Indie Mix",
			Tracks: []spotify.Track{
				{Title: "Nobody", Artists: []string{"Mitski"}, Album: "Be the Cowboy", DurationMS: 193000, CoverURL: "https://cover.example/a.jpg"},
				{Title: "Obscure B-Side", Artists: []string{"Nowhere Band"}, DurationMS: 200000},
			},
		},
	}
	cat := &fakeCatalog{
		results: map[string][]catalog.SearchItem{
			"Nobody Mitski": {
				{URL: "/watch?v=mitski00001", Title: "Mitski - Nobody", UploaderName: "Mitski - Topic", Duration: 195},
				{URL: "/watch?v=covervid001", Title: "Nobody (Piano Cover)", UploaderName: "Random Pianist", Duration: 300},
			},
			"Obscure B-Side Nowhere Band": {
				{URL: "/watch?v=unrelated01", Title: "Completely Different Song", UploaderName: "Someone", Duration: 95},
			},
		},
	}
	imp, store := newTestImporter(t, cat, sp)

	url := "https://open.spotify.com/playlist/37i9dQZF1DX"
	res, err := imp.ImportSpotify(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, "Indie Mix", res.Name)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, []string{"Obscure B-Side"}, res.Failed)

	pl, err := store.Get(res.PlaylistID)
	require.NoError(t, err)
	assert.Equal(t, playlists.SourceSpotify, pl.Source)
	assert.Equal(t, url, pl.SourceURL)

	tracks, err := store.Tracks(res.PlaylistID)
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	assert.Equal(t, 0, tracks[0].Position)
	assert.Equal(t, "mitski00001", tracks[0].VideoID, "best-scoring candidate should win")
	assert.Equal(t, "Nobody", tracks[0].Title, "stored title comes from Spotify, not the catalog")
	assert.Equal(t, "Mitski", tracks[0].ArtistText)
	assert.Equal(t, 193, tracks[0].DurationSecs)
	assert.Equal(t, "https://cover.example/a.jpg", tracks[0].ThumbnailURL)

	assert.Contains(t, cat.queries, "Nobody Mitski")
}

func TestImportSpotify_InvalidURL(t *testing.T) {
	imp, _ := newTestImporter(t, &fakeCatalog{}, &fakeSpotify{})

	_, err := imp.ImportSpotify(context.Background(), "https://open.spotify.com/album/4g1ZbCSS63")
	require.Error(t, err)
}

func TestImportSpotify_FetchError(t *testing.T) {
	sp := &fakeSpotify{err: errors.New("boom")}
	imp, _ := newTestImporter(t, &fakeCatalog{}, sp)

	_, err := imp.ImportSpotify(context.Background(), "spotify:playlist:37i9dQZF1DX")
	require.Error(t, err)
}

func TestImportSpotify_SearchErrorsAreNotFatal(t *testing.T) {
	sp := &fakeSpotify{
		playlist: &spotify.Playlist{
			Name: "Flaky",
			Tracks: []spotify.Track{
				{Title: "First", Artists: []string{"A"}, DurationMS: 100000},
				{Title: "Second", Artists: []string{"B"}, DurationMS: 120000},
			},
		},
	}
	cat := &fakeCatalog{searchErr: errors.New("catalog down")}
	imp, store := newTestImporter(t, cat, sp)

	res, err := imp.ImportSpotify(context.Background(), "spotify:playlist:37i9dQZF1DX")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 0, res.Imported)
	assert.ElementsMatch(t, []string{"First", "Second"}, res.Failed)

	count, err := store.TrackCount(res.PlaylistID)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "playlist exists but has no tracks")
}

func TestScoreCandidate(t *testing.T) {
	track := spotify.Track{Title: "Nobody", Artists: []string{"Mitski"}, DurationMS: 193000}

	tests := []struct {
		name         string
		item         catalog.SearchItem
		wantResolved bool
	}{
		{
			name:         "exact title with artist and duration",
			item:         catalog.SearchItem{Title: "Nobody", UploaderName: "Mitski - Topic", Duration: 193},
			wantResolved: true,
		},
		{
			name:         "artist-prefixed title",
			item:         catalog.SearchItem{Title: "Mitski - Nobody (Official Video)", UploaderName: "Mitski", Duration: 195},
			wantResolved: true,
		},
		{
			name:         "unrelated video",
			item:         catalog.SearchItem{Title: "Top 50 Hits Mix", UploaderName: "ChartChannel", Duration: 3600},
			wantResolved: false,
		},
		{
			name:         "same artist different song",
			item:         catalog.SearchItem{Title: "Mitski - Washing Machine Heart", UploaderName: "Mitski - Topic", Duration: 128},
			wantResolved: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := scoreCandidate(track, tt.item)
			if tt.wantResolved {
				assert.GreaterOrEqual(t, score, resolveThreshold, "score %.2f", score)
			} else {
				assert.Less(t, score, resolveThreshold, "score %.2f", score)
			}
		})
	}
}

func TestTitleSimilarity_IgnoresUploaderPrefix(t *testing.T) {
	plain := titleSimilarity("Nobody", "Nobody")
	prefixed := titleSimilarity("Nobody", "Mitski - Nobody")
	assert.InDelta(t, plain, prefixed, 0.001)
}
