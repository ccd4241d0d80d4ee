// Package station derives artist suggestions from listening history.
// The most played artists become seeds; Last.fm similar artists of the
// seeds, weighted by familiarity and skip behaviour, become suggestions.
package station

import (
	"cmp"
	"context"
	"database/sql"
	"math"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lmerle/replay/internal/artist"
	"github.com/lmerle/replay/internal/config"
	"github.com/lmerle/replay/internal/history"
	"github.com/lmerle/replay/internal/lastfm"
	"github.com/lmerle/replay/internal/match"
)

// SimilarSource fetches similar artists with match scores.
type SimilarSource interface {
	SimilarArtists(artist string, limit int) ([]lastfm.SimilarArtist, error)
}

// Suggestion is one recommended artist.
type Suggestion struct {
	Artist string
	Score  float64
	Reason string // names the seed(s) the suggestion came from
}

// Station manages suggestion generation.
type Station struct {
	history *history.Store
	source  SimilarSource
	cache   *Cache
	cfg     config.StationConfig
	log     zerolog.Logger
}

// New creates a new Station instance.
func New(db *sql.DB, hist *history.Store, source SimilarSource, cfg config.StationConfig, log zerolog.Logger) *Station {
	return &Station{
		history: hist,
		source:  source,
		cache:   NewCache(db, cfg.CacheTTLDays),
		cfg:     cfg,
		log:     log,
	}
}

// Cache returns the similar-artist cache for maintenance tasks.
func (s *Station) Cache() *Cache {
	return s.cache
}

// Suggestions returns up to n artists to listen to next. Seeds are the
// most played artists in history; candidates are their Last.fm similar
// artists. A weighted shuffle keeps repeated calls from returning the
// same corridor of artists.
func (s *Station) Suggestions(ctx context.Context, n int) ([]Suggestion, error) {
	if n <= 0 {
		return nil, nil
	}

	credits, err := s.history.Credits("")
	if err != nil {
		return nil, err
	}
	views := artist.Aggregate(credits, nil)
	if len(views) == 0 {
		return nil, nil
	}

	seeds := views[:min(s.cfg.Seeds, len(views))]

	known := make([]string, 0, len(views))
	for _, v := range views {
		known = append(known, v.Name)
	}

	skipped, err := s.skippedArtists()
	if err != nil {
		return nil, err
	}

	seedSet := make(map[string]struct{}, len(seeds))
	for _, v := range seeds {
		seedSet[match.Normalize(v.Name)] = struct{}{}
	}

	// Collect candidates across seeds, merging duplicates
	byName := make(map[string]*Suggestion)
	seedsFor := make(map[string][]string)
	var order []string

	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		similar, err := s.similarArtists(seed.Name)
		if err != nil {
			s.log.Warn().Err(err).Str("seed", seed.Name).Msg("similar artists lookup failed")
			continue
		}

		for _, sim := range similar {
			key := match.Normalize(sim.Name)
			if key == "" {
				continue
			}
			if _, isSeed := seedSet[key]; isSeed {
				continue
			}

			score := s.scoreCandidate(sim, known, skipped)
			if existing, ok := byName[key]; ok {
				if score > existing.Score {
					existing.Score = score
				}
				seedsFor[key] = append(seedsFor[key], seed.Name)
				continue
			}
			byName[key] = &Suggestion{Artist: sim.Name, Score: score}
			seedsFor[key] = []string{seed.Name}
			order = append(order, key)
		}
	}

	suggestions := make([]Suggestion, 0, len(order))
	for _, key := range order {
		sug := *byName[key]
		sug.Reason = "similar to " + strings.Join(seedsFor[key], ", ")
		suggestions = append(suggestions, sug)
	}

	suggestions = weightedShuffle(suggestions)
	if len(suggestions) > n {
		suggestions = suggestions[:n]
	}
	return suggestions, nil
}

// scoreCandidate weighs a similar artist. The Last.fm match score is the
// base; artists already present in history get a familiarity boost,
// artists the listener tends to skip get penalized.
func (s *Station) scoreCandidate(sim lastfm.SimilarArtist, known []string, skipped map[string]struct{}) float64 {
	score := sim.MatchScore
	if score < 0.01 {
		score = 0.01
	}

	if name, _ := match.Best(sim.Name, known, s.cfg.ArtistMatchThreshold); name != "" {
		score *= s.cfg.KnownBoost
	}
	if _, isSkipped := skipped[match.Normalize(sim.Name)]; isSkipped {
		score *= s.cfg.SkipPenalty
	}
	return score
}

// skippedArtists returns the normalized names of artists whose records
// are skipped more often than played.
func (s *Station) skippedArtists() (map[string]struct{}, error) {
	records, err := s.history.All()
	if err != nil {
		return nil, err
	}

	plays := make(map[string]int)
	skips := make(map[string]int)
	for _, r := range records {
		for _, name := range artist.Parse(r.ArtistText) {
			key := match.Normalize(name)
			plays[key] += r.PlayCount
			skips[key] += r.SkipCount
		}
	}

	skipped := make(map[string]struct{})
	for key, skipCount := range skips {
		if skipCount > plays[key] {
			skipped[key] = struct{}{}
		}
	}
	return skipped, nil
}

// similarArtists returns similar artists from cache or fetches them.
func (s *Station) similarArtists(name string) ([]lastfm.SimilarArtist, error) {
	cached, err := s.cache.SimilarArtists(name)
	if err == nil && len(cached) > 0 {
		return cached, nil
	}

	if s.source == nil {
		return nil, nil
	}

	similar, err := s.source.SimilarArtists(name, 50)
	if err != nil {
		return nil, err
	}

	if len(similar) > 0 {
		if err := s.cache.SetSimilarArtists(name, similar); err != nil {
			s.log.Warn().Err(err).Str("artist", name).Msg("cache similar artists")
		}
	}

	return similar, nil
}

// weightedShuffle reorders suggestions with probability weighted by
// score, using the Efraimidis-Spirakis algorithm. Higher scores tend to
// rank first but lower scores still get a shot.
func weightedShuffle(suggestions []Suggestion) []Suggestion {
	if len(suggestions) <= 1 {
		return suggestions
	}

	type weighted struct {
		suggestion Suggestion
		key        float64
	}

	items := make([]weighted, len(suggestions))
	for i, sug := range suggestions {
		score := sug.Score
		if score <= 0 {
			score = 0.01 // Minimum weight to avoid division by zero
		}
		// key = -log(rand) / weight; lower key = higher priority
		items[i] = weighted{
			suggestion: sug,
			key:        -math.Log(rand.Float64()) / score, //nolint:gosec // not security-sensitive
		}
	}

	slices.SortFunc(items, func(a, b weighted) int {
		return cmp.Compare(a.key, b.key)
	})

	result := make([]Suggestion, len(suggestions))
	for i, item := range items {
		result[i] = item.suggestion
	}
	return result
}
