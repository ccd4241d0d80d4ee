package tags

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.senan.xyz/taglib"
)

// ReadAudioInfo reads audio stream properties (duration, sample rate, bitrate)
// without decoding the audio.
func ReadAudioInfo(path string) (*AudioInfo, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsMusicFile(path) {
		return nil, fmt.Errorf("unsupported format: %s", ext)
	}

	props, err := taglib.ReadProperties(path)
	if err != nil {
		return nil, fmt.Errorf("read properties: %w", err)
	}

	return &AudioInfo{
		Duration:   props.Length,
		SampleRate: int(props.SampleRate),
		Bitrate:    int(props.Bitrate),
		Channels:   int(props.Channels),
	}, nil
}
