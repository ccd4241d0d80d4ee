package catalog

import (
	"regexp"
	"strings"
)

// SearchItem is a single search result. Streams carry Title and
// UploaderName; channels carry Name.
type SearchItem struct {
	URL          string `json:"url"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	Thumbnail    string `json:"thumbnail"`
	UploaderName string `json:"uploaderName"`
	Duration     int    `json:"duration"` // seconds, -1 when unknown
}

type searchResponse struct {
	Items    []SearchItem `json:"items"`
	NextPage string       `json:"nextpage"`
}

// Playlist is a public playlist with its entries.
type Playlist struct {
	Name           string         `json:"name"`
	ThumbnailURL   string         `json:"thumbnailUrl"`
	Uploader       string         `json:"uploader"`
	Videos         int            `json:"videos"`
	RelatedStreams []PlaylistItem `json:"relatedStreams"`
}

// PlaylistItem is one entry of a playlist.
type PlaylistItem struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	Thumbnail    string `json:"thumbnail"`
	UploaderName string `json:"uploaderName"`
	Duration     int    `json:"duration"`
}

// Streams is the stream manifest for a single video.
type Streams struct {
	Title        string        `json:"title"`
	Uploader     string        `json:"uploader"`
	ThumbnailURL string        `json:"thumbnailUrl"`
	Duration     int           `json:"duration"`
	AudioStreams []AudioStream `json:"audioStreams"`
}

// AudioStream is a downloadable audio rendition of a video.
type AudioStream struct {
	URL           string `json:"url"`
	Format        string `json:"format"`
	Quality       string `json:"quality"`
	MimeType      string `json:"mimeType"`
	Codec         string `json:"codec"`
	Bitrate       int    `json:"bitrate"`
	ContentLength int64  `json:"contentLength"`
}

var videoIDPattern = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`)

// VideoID extracts the 11-character video id from a watch URL or path
// such as "/watch?v=dQw4w9WgXcQ". Returns "" when no id is present.
func VideoID(rawURL string) string {
	m := videoIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// UploaderArtist turns an uploader channel name into artist text.
// Auto-generated music channels are named "Artist - Topic".
func UploaderArtist(uploader string) string {
	return strings.TrimSuffix(uploader, " - Topic")
}

// BestAudio picks the highest-bitrate audio stream, or nil when the
// manifest has none.
func BestAudio(streams []AudioStream) *AudioStream {
	var best *AudioStream
	for i := range streams {
		if best == nil || streams[i].Bitrate > best.Bitrate {
			best = &streams[i]
		}
	}
	return best
}
