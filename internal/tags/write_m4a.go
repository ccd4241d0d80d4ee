package tags

import (
	"fmt"

	"github.com/Sorrow446/go-mp4tag"
)

// writeM4ATags writes MP4/M4A tags using go-mp4tag.
func writeM4ATags(path string, t *Tag) error {
	mp4, err := mp4tag.Open(path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer mp4.Close()

	tags := &mp4tag.MP4Tags{
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		AlbumArtist: t.AlbumArtist,
		TrackNumber: safeInt16(t.TrackNumber),
		TrackTotal:  safeInt16(t.TotalTracks),
		DiscNumber:  safeInt16(t.DiscNumber),
		DiscTotal:   safeInt16(t.TotalDiscs),
		Date:        t.Date,
		CustomGenre: t.Genre,
	}

	if len(t.CoverArt) > 0 {
		tags.Pictures = []*mp4tag.MP4Picture{
			{Data: t.CoverArt},
		}
	}

	if err := mp4.Write(tags, nil); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

// safeInt16 converts int to int16 with bounds checking.
func safeInt16(n int) int16 {
	if n > 32767 {
		return 32767
	}
	if n < -32768 {
		return -32768
	}
	return int16(n)
}
