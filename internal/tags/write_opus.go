package tags

import (
	"fmt"
	"strconv"

	"go.senan.xyz/taglib"
)

// writeOggTags writes Vorbis comments to an Ogg/Opus file using TagLib.
func writeOggTags(path string, t *Tag) error {
	tags := make(map[string][]string)

	addTag := func(key, value string) {
		if value != "" {
			tags[key] = []string{value}
		}
	}
	addIntTag := func(key string, value int) {
		if value > 0 {
			tags[key] = []string{strconv.Itoa(value)}
		}
	}

	addTag(taglib.Artist, t.Artist)
	addTag(taglib.AlbumArtist, t.AlbumArtist)
	addTag(taglib.Album, t.Album)
	addTag(taglib.Title, t.Title)
	addTag(taglib.Genre, t.Genre)
	addTag(taglib.Date, t.Date)

	addIntTag(taglib.TrackNumber, t.TrackNumber)
	addIntTag(totalTracksKey, t.TotalTracks)
	addIntTag(taglib.DiscNumber, t.DiscNumber)
	addIntTag(totalDiscsKey, t.TotalDiscs)

	// Clear removes any existing tags not in our map
	if err := taglib.WriteTags(path, tags, taglib.Clear); err != nil {
		return fmt.Errorf("write tags: %w", err)
	}

	if len(t.CoverArt) > 0 {
		if err := taglib.WriteImage(path, t.CoverArt); err != nil {
			return fmt.Errorf("write cover art: %w", err)
		}
	}

	return nil
}
