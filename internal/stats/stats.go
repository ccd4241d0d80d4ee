// Package stats aggregates listening history and the local library into
// the numbers behind the stats report.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lmerle/replay/internal/artist"
	"github.com/lmerle/replay/internal/history"
	"github.com/lmerle/replay/internal/library"
)

// ArtistStat is one artist's accumulated plays across every track
// credited to them.
type ArtistStat struct {
	Name      string
	PlayCount int
	SongCount int
}

// TrackStat is one track's counters, shared by the skip and recency
// listings.
type TrackStat struct {
	Title        string
	ArtistText   string
	PlayCount    int
	SkipCount    int
	LastPlayedAt time.Time
}

// Summary holds everything the stats report shows.
type Summary struct {
	TotalPlays      int
	TotalSkips      int
	DistinctTracks  int
	DistinctArtists int
	ListeningTime   time.Duration
	LibraryTracks   int

	TopArtists  []ArtistStat
	MostSkipped []TrackStat
	RecentPlays []TrackStat
}

// Collect computes the summary from listening history, plus the library
// track count when a library is wired (lib may be nil). topN caps the
// per-section listings; topN <= 0 leaves them uncapped.
//
// Artist attribution follows the artists view: multi-artist credits
// count for each named artist, credits that parse to nothing fall back
// to the raw text and placeholder buckets are dropped. A track played
// twice adds two plays to each of its artists. Listening time is the
// sum of track duration times play count, so it only covers tracks with
// a known duration. Skip-only rows count toward TotalSkips but not
// toward DistinctTracks.
func Collect(hist *history.Store, lib *library.Library, topN int) (*Summary, error) {
	records, err := hist.All()
	if err != nil {
		return nil, fmt.Errorf("collect stats: %w", err)
	}

	s := &Summary{}

	type bucket struct {
		name   string
		plays  int
		tracks int
	}
	var order []*bucket
	index := make(map[string]*bucket)

	for _, r := range records {
		s.TotalPlays += r.PlayCount
		s.TotalSkips += r.SkipCount
		if r.PlayCount == 0 {
			continue
		}
		s.DistinctTracks++
		s.ListeningTime += time.Duration(r.DurationSecs*r.PlayCount) * time.Second

		names := artist.Parse(r.ArtistText)
		if len(names) == 0 {
			name := strings.TrimSpace(r.ArtistText)
			if name == "" {
				name = artist.FallbackName
			}
			names = []string{name}
		}
		for _, name := range names {
			b, ok := index[name]
			if !ok {
				b = &bucket{name: name}
				index[name] = b
				order = append(order, b)
			}
			b.plays += r.PlayCount
			b.tracks++
		}
	}

	for _, b := range order {
		if len(b.name) <= 1 || artist.IsReserved(b.name) {
			continue
		}
		s.TopArtists = append(s.TopArtists, ArtistStat{
			Name:      b.name,
			PlayCount: b.plays,
			SongCount: b.tracks,
		})
	}
	s.DistinctArtists = len(s.TopArtists)
	sort.SliceStable(s.TopArtists, func(i, j int) bool {
		return s.TopArtists[i].PlayCount > s.TopArtists[j].PlayCount
	})
	s.TopArtists = clip(s.TopArtists, topN)

	for _, r := range records {
		if r.SkipCount == 0 {
			continue
		}
		s.MostSkipped = append(s.MostSkipped, trackStat(r))
	}
	sort.SliceStable(s.MostSkipped, func(i, j int) bool {
		return s.MostSkipped[i].SkipCount > s.MostSkipped[j].SkipCount
	})
	s.MostSkipped = clip(s.MostSkipped, topN)

	// Records arrive most recently played first.
	for _, r := range records {
		if r.PlayCount == 0 {
			continue
		}
		s.RecentPlays = append(s.RecentPlays, trackStat(r))
		if topN > 0 && len(s.RecentPlays) == topN {
			break
		}
	}

	if lib != nil {
		n, err := lib.Count()
		if err != nil {
			return nil, fmt.Errorf("collect stats: %w", err)
		}
		s.LibraryTracks = n
	}

	return s, nil
}

// trackStat projects a record into a listing row. The title falls back
// to the track id and the artist text to the fallback name so rows are
// never blank.
func trackStat(r history.Record) TrackStat {
	title := r.Title
	if title == "" {
		title = r.TrackID
	}
	artistText := r.ArtistText
	if artistText == "" {
		artistText = artist.FallbackName
	}
	return TrackStat{
		Title:        title,
		ArtistText:   artistText,
		PlayCount:    r.PlayCount,
		SkipCount:    r.SkipCount,
		LastPlayedAt: time.Unix(r.LastPlayedAt, 0),
	}
}

func clip[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
