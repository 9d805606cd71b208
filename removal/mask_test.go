package removal

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func halfMask(w, h int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return mask
}

func TestApplyMaskMakesBackgroundTransparent(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetNRGBA(x, y, color.NRGBA{200, 100, 50, 255})
		}
	}

	out := ApplyMask(src, halfMask(8, 8))
	require.NotNil(t, out)

	// left half is foreground, right half cleared
	assert.Equal(t, uint8(255), out.NRGBAAt(1, 4).A)
	assert.Equal(t, color.NRGBA{}, out.NRGBAAt(6, 4))
}

func TestApplyMaskWithBackgroundFills(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetNRGBA(x, y, color.NRGBA{200, 100, 50, 255})
		}
	}

	out := ApplyMaskWithBackground(src, halfMask(8, 8), color.White)
	assert.Equal(t, color.NRGBA{200, 100, 50, 255}, out.NRGBAAt(1, 4))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, out.NRGBAAt(6, 4))
}

func TestRefineMaskStaysBinary(t *testing.T) {
	out := RefineMask(halfMask(16, 16))

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := out.GrayAt(x, y).Y
			assert.True(t, v == 0 || v == 255, "pixel (%d,%d) = %d", x, y, v)
		}
	}
	// interior foreground survives the blur and re-threshold
	assert.Equal(t, uint8(255), out.GrayAt(2, 8).Y)
	assert.Equal(t, uint8(0), out.GrayAt(13, 8).Y)
}

func TestScaleMaskRebinarizes(t *testing.T) {
	out := scaleMask(halfMask(16, 16), 8, 8)
	require.Equal(t, 8, out.Bounds().Dx())
	require.Equal(t, 8, out.Bounds().Dy())

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := out.GrayAt(x, y).Y
			assert.True(t, v == 0 || v == 255)
		}
	}
	assert.Equal(t, uint8(255), out.GrayAt(1, 4).Y)
	assert.Equal(t, uint8(0), out.GrayAt(6, 4).Y)
}

func TestScaleMaskNoOpAtSameSize(t *testing.T) {
	mask := halfMask(8, 8)
	assert.Same(t, mask, scaleMask(mask, 8, 8))
}
