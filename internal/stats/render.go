package stats

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

// Render writes the summary as aligned plain text. Each section gets
// its own tabwriter so column widths do not bleed across sections.
func Render(w io.Writer, s *Summary) error {
	tw := newTabWriter(w)
	fmt.Fprintf(tw, "Plays\t%s\n", humanize.Comma(int64(s.TotalPlays)))
	fmt.Fprintf(tw, "Skips\t%s\n", humanize.Comma(int64(s.TotalSkips)))
	fmt.Fprintf(tw, "Tracks\t%s\n", humanize.Comma(int64(s.DistinctTracks)))
	fmt.Fprintf(tw, "Artists\t%s\n", humanize.Comma(int64(s.DistinctArtists)))
	fmt.Fprintf(tw, "Listening\t%s\n", formatListening(s.ListeningTime))
	if s.LibraryTracks > 0 {
		fmt.Fprintf(tw, "Library\t%s\n", english.Plural(s.LibraryTracks, "track", ""))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(s.TopArtists) > 0 {
		fmt.Fprintf(w, "\nTop artists\n")
		tw = newTabWriter(w)
		for i, a := range s.TopArtists {
			fmt.Fprintf(tw, "  %d.\t%s\t%s\t%s\n", i+1, a.Name,
				english.Plural(a.PlayCount, "play", ""),
				english.Plural(a.SongCount, "song", ""))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(s.MostSkipped) > 0 {
		fmt.Fprintf(w, "\nMost skipped\n")
		tw = newTabWriter(w)
		for _, t := range s.MostSkipped {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", t.Title, t.ArtistText,
				english.Plural(t.SkipCount, "skip", ""))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(s.RecentPlays) > 0 {
		fmt.Fprintf(w, "\nRecently played\n")
		tw = newTabWriter(w)
		for _, t := range s.RecentPlays {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", t.Title, t.ArtistText,
				humanize.Time(t.LastPlayedAt))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	return nil
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// formatListening renders total listening time as hours and minutes.
// Sub-minute totals round away, so anything non-zero below a minute
// still shows as 0m rather than vanishing oddly into an empty cell.
func formatListening(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
