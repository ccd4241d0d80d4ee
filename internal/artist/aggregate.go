package artist

import (
	"sort"
	"strings"
)

// FallbackName is the bucket used for records whose artist text is blank.
const FallbackName = "Unknown"

// Credit is the slice of a history record the aggregator needs: the raw
// artist text, an optional thumbnail and whether the record came from
// online history or the local library.
type Credit struct {
	ArtistText   string
	ThumbnailURL string
	Online       bool
}

// View is one row of the aggregated artists list.
type View struct {
	Name      string
	SongCount int
	Online    bool
	ImageURL  string
}

// Aggregate groups history credits by individual artist name and builds
// the artists view, sorted by descending song count (ties keep
// first-seen order).
//
// Every credit is attributed to at least one bucket: credits whose artist
// text parses to nothing fall back to the trimmed raw text, or
// FallbackName when even that is blank. One credit can land in several
// buckets (multi-artist strings). Bucket keys are filtered again for
// placeholder and single-character names because fallback names bypass
// Parse, so pure-placeholder buckets never reach the output.
//
// photos maps artist name to a photo URL and wins over record thumbnails;
// otherwise the first credit in the bucket with a thumbnail supplies the
// image. Aggregate is a pure projection and never fails.
func Aggregate(credits []Credit, photos map[string]string) []View {
	type bucket struct {
		name    string
		credits []Credit
	}

	var order []*bucket
	index := make(map[string]*bucket)
	add := func(name string, c Credit) {
		b, ok := index[name]
		if !ok {
			b = &bucket{name: name}
			index[name] = b
			order = append(order, b)
		}
		b.credits = append(b.credits, c)
	}

	for _, c := range credits {
		names := Parse(c.ArtistText)
		if len(names) == 0 {
			name := strings.TrimSpace(c.ArtistText)
			if name == "" {
				name = FallbackName
			}
			names = []string{name}
		}
		for _, name := range names {
			add(name, c)
		}
	}

	views := make([]View, 0, len(order))
	for _, b := range order {
		if len(b.name) <= 1 || IsReserved(b.name) {
			continue
		}
		views = append(views, View{
			Name:      b.name,
			SongCount: len(b.credits),
			Online:    b.credits[0].Online,
			ImageURL:  bucketImage(b.name, b.credits, photos),
		})
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].SongCount > views[j].SongCount
	})
	return views
}

func bucketImage(name string, credits []Credit, photos map[string]string) string {
	if url := photos[name]; url != "" {
		return url
	}
	for _, c := range credits {
		if c.ThumbnailURL != "" {
			return c.ThumbnailURL
		}
	}
	return ""
}
