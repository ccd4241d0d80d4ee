package embed

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // thumbnails are often PNG

	"github.com/nfnt/resize"
)

const (
	// Covers above this edge length get scaled down. Players choke on
	// multi-megabyte embedded art.
	maxCoverEdge = 1000

	jpegQuality = 90
)

// shrinkCover re-encodes oversized images as JPEG with a bounded edge
// length. Images already within bounds pass through untouched.
func shrinkCover(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxCoverEdge && bounds.Dy() <= maxCoverEdge {
		return data, nil
	}

	resized := resize.Thumbnail(maxCoverEdge, maxCoverEdge, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode cover: %w", err)
	}
	return buf.Bytes(), nil
}
