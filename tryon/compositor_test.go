package tryon

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource serves fixed solid-color images by ref and fails unknown refs.
type stubSource struct {
	images map[string]image.Image
	loads  map[string]int
}

func newStubSource() *stubSource {
	return &stubSource{images: make(map[string]image.Image), loads: make(map[string]int)}
}

func (s *stubSource) add(ref string, c color.NRGBA, w, h int) {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	s.images[ref] = img
}

func (s *stubSource) Load(ref string) (image.Image, error) {
	s.loads[ref]++
	img, ok := s.images[ref]
	if !ok {
		return nil, errors.New("no such image")
	}
	return img, nil
}

func centeredLayer(id, ref string, z int, natural int, scale float64) GarmentLayer {
	return GarmentLayer{
		ID:            id,
		SourceRef:     ref,
		ZIndex:        z,
		Transform:     Transform{Scale: scale},
		NaturalWidth:  natural,
		NaturalHeight: natural,
	}
}

func TestRenderGuidelinesWithoutSubject(t *testing.T) {
	c := NewCompositor(200, 300, newStubSource())

	frame := c.Render(Outfit{})
	require.NotNil(t, frame)

	// vertical center guide
	assert.Equal(t, guidelineColor, frame.NRGBAAt(100, 50))
	// horizontal thirds
	assert.Equal(t, guidelineColor, frame.NRGBAAt(10, 100))
	assert.Equal(t, guidelineColor, frame.NRGBAAt(10, 200))
	// background elsewhere
	assert.Equal(t, surfaceBackground, frame.NRGBAAt(10, 50))
}

func TestRenderDrawsSubject(t *testing.T) {
	src := newStubSource()
	blue := color.NRGBA{0, 0, 255, 255}
	src.add("subjects/a.png", blue, 50, 75)
	c := NewCompositor(200, 300, src)

	frame := c.Render(Outfit{Subject: &SubjectImage{ID: "s", ImagePath: "subjects/a.png"}})
	assert.Equal(t, blue, frame.NRGBAAt(100, 150))
}

func TestRenderPaintsLayersInZOrder(t *testing.T) {
	src := newStubSource()
	red := color.NRGBA{255, 0, 0, 255}
	green := color.NRGBA{0, 255, 0, 255}
	src.add("subjects/a.png", color.NRGBA{0, 0, 255, 255}, 50, 75)
	src.add("garments/red.png", red, 100, 100)
	src.add("garments/green.png", green, 100, 100)
	c := NewCompositor(200, 300, src)

	outfit := Outfit{
		Subject: &SubjectImage{ID: "s", ImagePath: "subjects/a.png"},
		Layers: []GarmentLayer{
			// listed top-first to prove the compositor sorts by z, not input order
			centeredLayer("top", "garments/green.png", 2, 100, 1.0),
			centeredLayer("under", "garments/red.png", 1, 100, 1.0),
		},
	}
	frame := c.Render(outfit)

	// both layers cover the surface center; the higher z wins
	assert.Equal(t, green, frame.NRGBAAt(100, 150))
}

func TestRenderSkipsUnloadableLayer(t *testing.T) {
	src := newStubSource()
	blue := color.NRGBA{0, 0, 255, 255}
	red := color.NRGBA{255, 0, 0, 255}
	src.add("subjects/a.png", blue, 50, 75)
	src.add("garments/red.png", red, 100, 100)
	c := NewCompositor(200, 300, src)

	outfit := Outfit{
		Subject: &SubjectImage{ID: "s", ImagePath: "subjects/a.png"},
		Layers: []GarmentLayer{
			centeredLayer("ok", "garments/red.png", 1, 100, 1.0),
			centeredLayer("broken", "garments/missing.png", 2, 100, 1.0),
		},
	}
	frame := c.Render(outfit)
	require.NotNil(t, frame)

	// the loadable layer still renders
	assert.Equal(t, red, frame.NRGBAAt(100, 150))
}

func TestRenderOffsetAndScalePositioning(t *testing.T) {
	src := newStubSource()
	red := color.NRGBA{255, 0, 0, 255}
	src.add("subjects/a.png", color.NRGBA{0, 0, 255, 255}, 50, 75)
	src.add("garments/red.png", red, 100, 100)
	c := NewCompositor(200, 300, src)

	layer := centeredLayer("l", "garments/red.png", 1, 100, 0.5)
	layer.OffsetX = 40
	layer.OffsetY = -60
	frame := c.Render(Outfit{
		Subject: &SubjectImage{ID: "s", ImagePath: "subjects/a.png"},
		Layers:  []GarmentLayer{layer},
	})

	// box center moves to (140, 90); half size 25 each way
	assert.Equal(t, red, frame.NRGBAAt(140, 90))
	assert.NotEqual(t, red, frame.NRGBAAt(100, 150))
}

func TestQualityTiersProduceSameGeometry(t *testing.T) {
	render := func(highQuality bool) *image.NRGBA {
		src := newStubSource()
		src.add("subjects/a.png", color.NRGBA{0, 0, 255, 255}, 50, 75)
		src.add("garments/red.png", color.NRGBA{255, 0, 0, 255}, 100, 100)
		c := NewCompositor(200, 300, src)
		c.SetHighQuality(highQuality)
		layer := centeredLayer("l", "garments/red.png", 1, 100, 0.5)
		layer.OffsetX = 40
		return c.Render(Outfit{
			Subject: &SubjectImage{ID: "s", ImagePath: "subjects/a.png"},
			Layers:  []GarmentLayer{layer},
		})
	}

	high := render(true)
	low := render(false)

	// interior sample points land identically regardless of filter cost
	for _, pt := range []image.Point{{140, 150}, {100, 150}, {10, 10}} {
		assert.Equal(t, high.NRGBAAt(pt.X, pt.Y), low.NRGBAAt(pt.X, pt.Y), "pixel %v", pt)
	}
}

func TestLoadCacheAndInvalidate(t *testing.T) {
	src := newStubSource()
	src.add("subjects/a.png", color.NRGBA{0, 0, 255, 255}, 50, 75)
	c := NewCompositor(200, 300, src)

	outfit := Outfit{Subject: &SubjectImage{ID: "s", ImagePath: "subjects/a.png"}}
	c.Render(outfit)
	c.Render(outfit)
	assert.Equal(t, 1, src.loads["subjects/a.png"], "second render should hit the decode cache")

	c.InvalidateCache("subjects/a.png")
	c.Render(outfit)
	assert.Equal(t, 2, src.loads["subjects/a.png"])
}

func TestFrameNilBeforeFirstRender(t *testing.T) {
	c := NewCompositor(200, 300, newStubSource())
	assert.Nil(t, c.Frame())
	c.Render(Outfit{})
	assert.NotNil(t, c.Frame())
}

func TestLayerBoundsIgnoresRotation(t *testing.T) {
	layer := centeredLayer("l", "x", 1, 100, 1.0)
	layer.Rotation = 45

	bounds := LayerBounds(layer, 200, 300)
	assert.Equal(t, Rect{X: 50, Y: 100, W: 100, H: 100}, bounds)
	assert.True(t, bounds.Contains(100, 150))
	assert.False(t, bounds.Contains(40, 150))
}
