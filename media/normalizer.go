package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"math"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// ErrUnsupportedMedia marks input that could not be decoded as an image.
var ErrUnsupportedMedia = errors.New("unsupported media type")

// NormalizedImage is the decodable photo descriptor produced by Normalize.
type NormalizedImage struct {
	Image          image.Image
	Width          int
	Height         int
	OriginalWidth  int
	OriginalHeight int
}

// Normalize decodes a raw photo, applies its EXIF orientation, and downsizes
// it so neither dimension exceeds the given ceiling, preserving aspect ratio.
// Images already within bounds pass through unchanged.
func Normalize(r io.Reader, maxWidth, maxHeight int) (*NormalizedImage, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo data: %w", err)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
	}
	log.Printf("normalizer: decoded photo (format: %s)", format)

	img = applyOrientation(img, readOrientation(raw))

	origBounds := img.Bounds()
	origWidth := origBounds.Dx()
	origHeight := origBounds.Dy()
	if origWidth <= 0 || origHeight <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedMedia)
	}

	width, height := origWidth, origHeight
	if origWidth > maxWidth || origHeight > maxHeight {
		ratio := math.Min(float64(maxWidth)/float64(origWidth), float64(maxHeight)/float64(origHeight))
		width = maxInt(1, int(math.Round(float64(origWidth)*ratio)))
		height = maxInt(1, int(math.Round(float64(origHeight)*ratio)))
		img = imaging.Resize(img, width, height, imaging.Lanczos)
		log.Printf("normalizer: downsized %dx%d -> %dx%d", origWidth, origHeight, width, height)
	}

	return &NormalizedImage{
		Image:          img,
		Width:          width,
		Height:         height,
		OriginalWidth:  origWidth,
		OriginalHeight: origHeight,
	}, nil
}

// readOrientation pulls the EXIF orientation tag, defaulting to 1 (upright)
// when absent or unreadable.
func readOrientation(raw []byte) int {
	exifData, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return 1
	}
	tag, err := exifData.Get(exif.Orientation)
	if err != nil || tag == nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil || orientation < 1 || orientation > 8 {
		return 1
	}
	return orientation
}

// applyOrientation bakes the EXIF orientation into the pixels so downstream
// compositing never has to consult metadata.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
