package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) *bytes.Reader {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x % 256), uint8(y % 256), 0, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return bytes.NewReader(buf.Bytes())
}

func TestNormalizePassThroughWithinBounds(t *testing.T) {
	out, err := Normalize(encodePNG(t, 800, 600), 1200, 1600)
	require.NoError(t, err)

	assert.Equal(t, 800, out.Width)
	assert.Equal(t, 600, out.Height)
	assert.Equal(t, 800, out.OriginalWidth)
	assert.Equal(t, 600, out.OriginalHeight)
}

func TestNormalizeDownscalesOversizedWidth(t *testing.T) {
	out, err := Normalize(encodePNG(t, 2400, 1600), 1200, 1600)
	require.NoError(t, err)

	assert.Equal(t, 1200, out.Width)
	assert.Equal(t, 800, out.Height)
	assert.Equal(t, 2400, out.OriginalWidth)
	assert.Equal(t, 1600, out.OriginalHeight)
	assert.Equal(t, 1200, out.Image.Bounds().Dx())
	assert.Equal(t, 800, out.Image.Bounds().Dy())
}

func TestNormalizeDownscalesOversizedHeight(t *testing.T) {
	out, err := Normalize(encodePNG(t, 1000, 3200), 1200, 1600)
	require.NoError(t, err)

	assert.Equal(t, 500, out.Width)
	assert.Equal(t, 1600, out.Height)
}

func TestNormalizePreservesAspectRatio(t *testing.T) {
	out, err := Normalize(encodePNG(t, 3000, 2000), 1200, 1600)
	require.NoError(t, err)

	origRatio := 3000.0 / 2000.0
	newRatio := float64(out.Width) / float64(out.Height)
	assert.InDelta(t, origRatio, newRatio, 0.01)
	assert.LessOrEqual(t, out.Width, 1200)
	assert.LessOrEqual(t, out.Height, 1600)
}

func TestNormalizeRejectsNonImage(t *testing.T) {
	_, err := Normalize(strings.NewReader("this is not an image"), 1200, 1600)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
}

func TestReadOrientationDefaultsToUpright(t *testing.T) {
	// PNGs carry no EXIF block
	assert.Equal(t, 1, readOrientation([]byte("not exif")))
}

func TestApplyOrientationRotates(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))

	rotated := applyOrientation(img, 6)
	assert.Equal(t, 2, rotated.Bounds().Dx())
	assert.Equal(t, 4, rotated.Bounds().Dy())

	upright := applyOrientation(img, 1)
	assert.Equal(t, 4, upright.Bounds().Dx())
}

func TestIsRasterImage(t *testing.T) {
	assert.True(t, IsRasterImage("shirt.PNG"))
	assert.True(t, IsRasterImage("photo.jpeg"))
	assert.False(t, IsRasterImage("notes.txt"))
	assert.False(t, IsRasterImage("garments"))
}
