package tags

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/bogem/id3v2/v2"
)

// writeMP3Tags writes ID3v2 tags to an MP3 file.
func writeMP3Tags(path string, t *Tag) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if errors.Is(err, id3v2.ErrUnsupportedVersion) {
		// ID3v2.2 or older tags - strip them and retry
		if stripErr := stripID3v2Tag(path); stripErr != nil {
			return fmt.Errorf("strip unsupported ID3v2.2 tag: %w", stripErr)
		}
		tag, err = id3v2.Open(path, id3v2.Options{Parse: true})
	}
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer tag.Close()

	// ID3v2.4 with UTF-8 for full Unicode support
	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	// Clear existing tags to avoid duplicates
	tag.DeleteAllFrames()

	tag.SetArtist(t.Artist)
	tag.SetAlbum(t.Album)
	tag.SetTitle(t.Title)
	tag.SetGenre(t.Genre)

	// Recording date (TDRC in ID3v2.4)
	if t.Date != "" {
		tag.AddTextFrame("TDRC", id3v2.EncodingUTF8, t.Date)
	}

	// Track number (format: "track/total")
	trackStr := strconv.Itoa(t.TrackNumber)
	if t.TotalTracks > 0 {
		trackStr = strconv.Itoa(t.TrackNumber) + "/" + strconv.Itoa(t.TotalTracks)
	}
	tag.AddTextFrame(tag.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, trackStr)

	// Disc number (TPOS frame)
	if t.DiscNumber > 0 {
		discStr := strconv.Itoa(t.DiscNumber)
		if t.TotalDiscs > 0 {
			discStr = strconv.Itoa(t.DiscNumber) + "/" + strconv.Itoa(t.TotalDiscs)
		}
		tag.AddTextFrame(tag.CommonID("Part of a set"), id3v2.EncodingUTF8, discStr)
	}

	// Album artist (TPE2 frame)
	if t.AlbumArtist != "" {
		tag.AddTextFrame(tag.CommonID("Band/Orchestra/Accompaniment"), id3v2.EncodingUTF8, t.AlbumArtist)
	}

	if len(t.CoverArt) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    detectMimeType(t.CoverArt),
			PictureType: id3v2.PTFrontCover,
			Description: "Front Cover",
			Picture:     t.CoverArt,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save tags: %w", err)
	}

	return nil
}

// stripID3v2Tag removes ID3v2 tags from an MP3 file.
// This is used to handle ID3v2.2 tags which the id3v2 library doesn't support.
func stripID3v2Tag(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	// Check for ID3v2 header (must have at least 10 bytes for header)
	if len(data) < 10 || string(data[:3]) != id3Magic {
		return nil // No ID3v2 tag to strip
	}

	// Parse tag size from bytes 6-9 (synchsafe integer: each byte uses only 7 bits)
	size := int(data[6])<<21 | int(data[7])<<14 | int(data[8])<<7 | int(data[9])
	tagSize := size + 10 // Add 10-byte header

	// Check for footer flag (bit 4 of flags byte) - ID3v2.4 only
	if data[5]&0x10 != 0 {
		tagSize += 10
	}

	if tagSize >= len(data) {
		return fmt.Errorf("ID3v2 tag size (%d) exceeds file size (%d)", tagSize, len(data))
	}

	// Preserve original file permissions
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	// Write audio data without the ID3v2 tag
	if err := os.WriteFile(path, data[tagSize:], info.Mode()); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}
