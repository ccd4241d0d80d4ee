package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("q"); got != "Sunflower Post Malone" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("filter"); got != FilterSongs {
			t.Errorf("filter = %q, want default %q", got, FilterSongs)
		}
		io.WriteString(w, `{
			"items": [
				{"url": "/watch?v=ApXoWvfEYVU", "type": "stream", "title": "Sunflower",
				 "thumbnail": "http://img/sunflower.jpg", "uploaderName": "Post Malone", "duration": 158}
			],
			"nextpage": "tok"
		}`)
	}))
	defer srv.Close()

	client := New(srv.URL)

	items, err := client.Search(context.Background(), "Sunflower Post Malone", "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].Title != "Sunflower" || items[0].Duration != 158 {
		t.Errorf("unexpected item: %+v", items[0])
	}
}

func TestPlaylist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/playlists/PLrAXtmErZgOe" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{
			"name": "Road Trip",
			"thumbnailUrl": "http://img/list.jpg",
			"uploader": "Somebody",
			"videos": 2,
			"relatedStreams": [
				{"url": "/watch?v=ApXoWvfEYVU", "title": "Sunflower", "uploaderName": "Post Malone", "duration": 158},
				{"url": "/watch?v=JGwWNGJdvx8", "title": "Shape of You", "uploaderName": "Ed Sheeran", "duration": 263}
			]
		}`)
	}))
	defer srv.Close()

	client := New(srv.URL)

	pl, err := client.Playlist(context.Background(), "PLrAXtmErZgOe")
	if err != nil {
		t.Fatalf("Playlist failed: %v", err)
	}
	if pl.Name != "Road Trip" || len(pl.RelatedStreams) != 2 {
		t.Fatalf("unexpected playlist: %+v", pl)
	}
	if got := VideoID(pl.RelatedStreams[1].URL); got != "JGwWNGJdvx8" {
		t.Errorf("VideoID = %q", got)
	}
}

func TestStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/streams/ApXoWvfEYVU" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{
			"title": "Sunflower",
			"uploader": "Post Malone",
			"thumbnailUrl": "http://img/sunflower.jpg",
			"duration": 158,
			"audioStreams": [
				{"url": "http://cdn/low", "format": "M4A", "mimeType": "audio/mp4", "bitrate": 48000},
				{"url": "http://cdn/high", "format": "M4A", "mimeType": "audio/mp4", "bitrate": 128000},
				{"url": "http://cdn/mid", "format": "WEBM", "mimeType": "audio/webm", "bitrate": 64000}
			]
		}`)
	}))
	defer srv.Close()

	client := New(srv.URL)

	streams, err := client.Streams(context.Background(), "ApXoWvfEYVU")
	if err != nil {
		t.Fatalf("Streams failed: %v", err)
	}
	if streams.Title != "Sunflower" || len(streams.AudioStreams) != 3 {
		t.Fatalf("unexpected streams: %+v", streams)
	}

	best := BestAudio(streams.AudioStreams)
	if best == nil || best.URL != "http://cdn/high" {
		t.Errorf("BestAudio = %+v, want the 128k stream", best)
	}
}

func TestStreams_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client := New(srv.URL)

	_, err := client.Streams(context.Background(), "missingvideo")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFallbackInstance(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer broken.Close()

	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"items": [{"url": "/watch?v=ApXoWvfEYVU", "title": "Sunflower"}]}`)
	}))
	defer working.Close()

	client := New(broken.URL, working.URL)

	items, err := client.Search(context.Background(), "Sunflower", FilterSongs)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Sunflower" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestArtistImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("filter"); got != FilterArtists {
			t.Errorf("filter = %q, want %q", got, FilterArtists)
		}
		io.WriteString(w, `{
			"items": [
				{"url": "/channel/UCeLHszkByNZtPKcaVXOCOQQ", "type": "channel", "name": "Post Malone", "thumbnail": "http://img/postmalone.jpg"}
			]
		}`)
	}))
	defer srv.Close()

	client := New(srv.URL)

	url, err := client.ArtistImage(context.Background(), "Post Malone")
	if err != nil {
		t.Fatalf("ArtistImage failed: %v", err)
	}
	if url != "http://img/postmalone.jpg" {
		t.Errorf("ArtistImage = %q", url)
	}
}

func TestVideoID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"watch path", "/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"full url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"with playlist param", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLabc", "dQw4w9WgXcQ"},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"no id", "/playlist?list=PLabc", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VideoID(tt.url); got != tt.want {
				t.Errorf("VideoID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestUploaderArtist(t *testing.T) {
	tests := []struct {
		uploader string
		want     string
	}{
		{"Mitski - Topic", "Mitski"},
		{"Big Thief", "Big Thief"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := UploaderArtist(tt.uploader); got != tt.want {
			t.Errorf("UploaderArtist(%q) = %q, want %q", tt.uploader, got, tt.want)
		}
	}
}

func TestBestAudio_Empty(t *testing.T) {
	if got := BestAudio(nil); got != nil {
		t.Errorf("BestAudio(nil) = %+v, want nil", got)
	}
}
