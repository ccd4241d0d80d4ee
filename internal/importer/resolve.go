package importer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lmerle/replay/internal/catalog"
	"github.com/lmerle/replay/internal/match"
	"github.com/lmerle/replay/internal/playlists"
	"github.com/lmerle/replay/internal/spotify"
)

const (
	defaultResolveWorkers = 4

	// Candidates scoring below this are treated as unresolved.
	resolveThreshold = 0.6

	artistBonus       = 0.2
	durationBonus     = 0.1
	durationTolerance = 10 // seconds
)

// ImportSpotify fetches a Spotify playlist and resolves every track to
// a catalog video id before storing it. Tracks without a convincing
// catalog match end up in Result.Failed.
func (i *Importer) ImportSpotify(ctx context.Context, rawURL string) (*Result, error) {
	playlistID := spotify.PlaylistID(rawURL)
	if playlistID == "" {
		return nil, fmt.Errorf("not a spotify playlist url: %s", rawURL)
	}

	pl, err := i.spotify.Playlist(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("fetch spotify playlist %s: %w", playlistID, err)
	}

	videoIDs := i.resolveTracks(ctx, pl.Tracks)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Name: pl.Name, Total: len(pl.Tracks)}

	tracks := make([]playlists.Track, 0, len(pl.Tracks))
	for idx, t := range pl.Tracks {
		if videoIDs[idx] == "" {
			res.Failed = append(res.Failed, t.Title)
			continue
		}
		tracks = append(tracks, playlists.Track{
			VideoID:      videoIDs[idx],
			Title:        t.Title,
			ArtistText:   t.ArtistText(),
			DurationSecs: t.Duration(),
			ThumbnailURL: t.CoverURL,
		})
	}

	name := pl.Name
	if name == "" {
		name = "Spotify playlist"
	}

	id, err := i.store.Create(name, playlists.SourceSpotify, rawURL)
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
		Msg("spotify playlist imported")
	return res, nil
}

// resolveTracks looks up a catalog video id for every track. Workers
// write disjoint indices, so the result slice needs no locking.
func (i *Importer) resolveTracks(ctx context.Context, tracks []spotify.Track) []string {
	videoIDs := make([]string, len(tracks))

	workCh := make(chan int, len(tracks))
	for idx := range tracks {
		workCh <- idx
	}
	close(workCh)

	var wg sync.WaitGroup
	for range i.workers {
		wg.Go(func() {
			for idx := range workCh {
				if ctx.Err() != nil {
					continue
				}
				videoIDs[idx] = i.resolve(ctx, tracks[idx])
			}
		})
	}
	wg.Wait()

	return videoIDs
}

// resolve searches the catalog for a track and returns the best-scoring
// video id, or "" when nothing convincing was found.
func (i *Importer) resolve(ctx context.Context, t spotify.Track) string {
	query := strings.TrimSpace(t.Title + " " + t.ArtistText())

	items, err := i.catalog.Search(ctx, query, catalog.FilterSongs)
	if err != nil {
		i.log.Warn().Err(err).Str("title", t.Title).Msg("catalog search failed")
		return ""
	}

	var best string
	var bestScore float64
	for _, item := range items {
		videoID := catalog.VideoID(item.URL)
		if videoID == "" {
			continue
		}
		if score := scoreCandidate(t, item); score > bestScore {
			best = videoID
			bestScore = score
		}
	}

	if bestScore < resolveThreshold {
		i.log.Warn().
			Str("title", t.Title).
			Str("artist", t.ArtistText()).
			Float64("score", bestScore).
			Msg("no catalog match")
		return ""
	}

	i.log.Debug().
		Str("title", t.Title).
		Str("video", best).
		Float64("score", bestScore).
		Msg("track resolved")
	return best
}

// scoreCandidate rates how well a search result matches a Spotify
// track. Title similarity is the base; a recognizable artist and a
// close duration add on top.
func scoreCandidate(t spotify.Track, item catalog.SearchItem) float64 {
	score := titleSimilarity(t.Title, item.Title)

	if artistPresent(t.Artists, item) {
		score += artistBonus
	}

	if want := t.Duration(); want > 0 && item.Duration > 0 {
		diff := item.Duration - want
		if diff < 0 {
			diff = -diff
		}
		if diff <= durationTolerance {
			score += durationBonus
		}
	}

	return score
}

// titleSimilarity compares titles, also trying the part after an
// "Artist - Title" separator so uploader prefixes do not drag the
// score down.
func titleSimilarity(want, got string) float64 {
	score := match.Similarity(want, got)
	if _, after, found := strings.Cut(got, " - "); found {
		if s := match.Similarity(want, after); s > score {
			score = s
		}
	}
	return score
}

// artistPresent reports whether any of the track's artists shows up in
// the result title or uploader name.
func artistPresent(artists []string, item catalog.SearchItem) bool {
	for _, a := range artists {
		if match.Contains(item.Title, a) || match.Contains(item.UploaderName, a) {
			return true
		}
	}
	return false
}
