package tags

import (
	"path/filepath"

	"go.senan.xyz/taglib"
)

// readWithTaglib reads metadata using TagLib as fallback when dhowden/tag fails.
// TagLib normalizes keys across Vorbis comments, MP4 atoms and ID3 frames, so a
// single reader covers FLAC, Ogg, Opus and M4A.
func readWithTaglib(path string) (*Tag, error) {
	rawTags, err := taglib.ReadTags(path)
	if err != nil {
		return nil, err
	}
	tags := taglibTags(rawTags)

	title := tags.get(taglib.Title)
	if title == "" {
		title = filepath.Base(path)
	}

	artist := tags.get(taglib.Artist)
	albumArtist := tags.get(taglib.AlbumArtist)
	if albumArtist == "" {
		albumArtist = artist
	}

	track, totalTracks := tags.parseNumberPair(taglib.TrackNumber)
	if totalTracks == 0 {
		totalTracks = tags.getInt(totalTracksKey)
	}
	disc, totalDiscs := tags.parseNumberPair(taglib.DiscNumber)
	if totalDiscs == 0 {
		totalDiscs = tags.getInt(totalDiscsKey)
	}

	return &Tag{
		Path:        path,
		Title:       title,
		Artist:      artist,
		AlbumArtist: albumArtist,
		Album:       tags.get(taglib.Album),
		Date:        tags.get(taglib.Date),
		TrackNumber: track,
		TotalTracks: totalTracks,
		DiscNumber:  disc,
		TotalDiscs:  totalDiscs,
		Genre:       tags.get(taglib.Genre),
	}, nil
}
