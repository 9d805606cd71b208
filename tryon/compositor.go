package tryon

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"sort"
	"sync"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// ImageSource resolves a source reference to a decoded image. Implementations
// back onto the media store; tests substitute a stub.
type ImageSource interface {
	Load(ref string) (image.Image, error)
}

var surfaceBackground = color.NRGBA{245, 245, 245, 255}
var guidelineColor = color.NRGBA{200, 200, 205, 255}

// Compositor renders the active outfit onto the drawing surface. It holds
// only read-only outfit projections; the layer store owns the data.
type Compositor struct {
	width  int
	height int
	source ImageSource

	mu          sync.Mutex
	highQuality bool
	cache       map[string]image.Image
	frame       *image.NRGBA
}

func NewCompositor(width, height int, source ImageSource) *Compositor {
	return &Compositor{
		width:       width,
		height:      height,
		source:      source,
		highQuality: true,
		cache:       make(map[string]image.Image),
	}
}

// SetHighQuality selects the resampling tier. Geometry is identical across
// tiers; only filter cost differs.
func (c *Compositor) SetHighQuality(enabled bool) {
	c.mu.Lock()
	c.highQuality = enabled
	c.mu.Unlock()
}

// Frame returns the last rendered frame, or nil before the first render.
func (c *Compositor) Frame() *image.NRGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Render produces a single frame from the outfit snapshot. Never invoked
// concurrently with itself; the render loop guarantees single-flight.
func (c *Compositor) Render(outfit Outfit) *image.NRGBA {
	c.mu.Lock()
	highQuality := c.highQuality
	c.mu.Unlock()

	frame := image.NewNRGBA(image.Rect(0, 0, c.width, c.height))
	draw.Draw(frame, frame.Bounds(), image.NewUniform(surfaceBackground), image.Point{}, draw.Src)

	if outfit.Subject == nil || outfit.Subject.ImagePath == "" {
		c.drawGuidelines(frame)
		c.setFrame(frame)
		return frame
	}

	if subj, err := c.load(outfit.Subject.ImagePath); err != nil {
		log.Printf("compositor: subject image %s unavailable: %v", outfit.Subject.ImagePath, err)
		c.drawGuidelines(frame)
	} else {
		c.drawSubject(frame, subj, highQuality)
	}

	layers := make([]GarmentLayer, len(outfit.Layers))
	copy(layers, outfit.Layers)
	sort.Slice(layers, func(i, j int) bool { return layers[i].ZIndex < layers[j].ZIndex })

	for _, layer := range layers {
		if err := c.drawLayer(frame, layer, highQuality); err != nil {
			// a single bad garment must not blank the frame
			log.Printf("compositor: skipping layer %s: %v", layer.ID, err)
		}
	}

	c.setFrame(frame)
	return frame
}

// InvalidateCache drops a cached decode once its reference is no longer
// displayed, e.g. the original photo after its cutout takes over, or a
// replaced subject's images.
func (c *Compositor) InvalidateCache(ref string) {
	c.mu.Lock()
	delete(c.cache, ref)
	c.mu.Unlock()
}

func (c *Compositor) setFrame(frame *image.NRGBA) {
	c.mu.Lock()
	c.frame = frame
	c.mu.Unlock()
}

func (c *Compositor) load(ref string) (image.Image, error) {
	c.mu.Lock()
	img, ok := c.cache[ref]
	c.mu.Unlock()
	if ok {
		return img, nil
	}
	img, err := c.source.Load(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrGarmentLoad, ref, err)
	}
	c.mu.Lock()
	c.cache[ref] = img
	c.mu.Unlock()
	return img, nil
}

// drawSubject scales the photo to fill the surface bounds.
func (c *Compositor) drawSubject(frame *image.NRGBA, subj image.Image, highQuality bool) {
	var scaler xdraw.Scaler = xdraw.NearestNeighbor
	if highQuality {
		scaler = xdraw.CatmullRom
	}
	scaler.Scale(frame, frame.Bounds(), subj, subj.Bounds(), xdraw.Over, nil)
}

func (c *Compositor) drawLayer(frame *image.NRGBA, layer GarmentLayer, highQuality bool) error {
	img, err := c.load(layer.SourceRef)
	if err != nil {
		return err
	}

	bounds := LayerBounds(layer, c.width, c.height)
	targetW := int(bounds.W)
	targetH := int(bounds.H)
	if targetW < 1 || targetH < 1 {
		return nil
	}

	filter := imaging.NearestNeighbor
	if highQuality {
		filter = imaging.Lanczos
	}

	rendered := imaging.Resize(img, targetW, targetH, filter)
	if layer.FlipH {
		rendered = imaging.FlipH(rendered)
	}
	if layer.Rotation != 0 {
		// imaging rotates counter-clockwise; layer rotation is clockwise
		rendered = imaging.Rotate(rendered, -layer.Rotation, color.Transparent)
	}

	// rotation grows the bounds, so position from the rendered size to keep
	// the layer centered on its box center
	cx := bounds.X + bounds.W/2
	cy := bounds.Y + bounds.H/2
	rb := rendered.Bounds()
	pos := image.Pt(int(cx)-rb.Dx()/2, int(cy)-rb.Dy()/2)

	result := imaging.Overlay(frame, rendered, pos, 1.0)
	draw.Draw(frame, frame.Bounds(), result, image.Point{}, draw.Src)
	return nil
}

// drawGuidelines renders static alignment guides when no subject is attached:
// a vertical center line plus horizontal lines at the vertical thirds.
func (c *Compositor) drawGuidelines(frame *image.NRGBA) {
	cx := c.width / 2
	for y := 0; y < c.height; y++ {
		frame.SetNRGBA(cx, y, guidelineColor)
	}
	for _, frac := range []float64{1.0 / 3.0, 2.0 / 3.0} {
		y := int(float64(c.height) * frac)
		for x := 0; x < c.width; x++ {
			frame.SetNRGBA(x, y, guidelineColor)
		}
	}
}
