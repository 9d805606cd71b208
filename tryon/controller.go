package tryon

import (
	"sort"
	"sync"
)

// PointerKind is the gesture event type delivered by the hosting surface.
type PointerKind string

const (
	PointerDown PointerKind = "down"
	PointerMove PointerKind = "move"
	// PointerUp ends a drag. A global pointer-up fired outside the surface
	// maps to the same event.
	PointerUp PointerKind = "up"
)

// PointerEvent is one pointer sample in surface coordinates.
type PointerEvent struct {
	Kind PointerKind `json:"kind"`
	X    float64     `json:"x"`
	Y    float64     `json:"y"`
}

// Controller translates pointer gestures into layer selection and transform
// updates. State machine per gesture: idle → dragging → idle.
type Controller struct {
	store    *LayerStore
	loop     *RenderLoop
	surfaceW int
	surfaceH int

	mu       sync.Mutex
	selected string
	dragging bool
	lastX    float64
	lastY    float64
}

func NewController(store *LayerStore, loop *RenderLoop, surfaceW, surfaceH int) *Controller {
	return &Controller{
		store:    store,
		loop:     loop,
		surfaceW: surfaceW,
		surfaceH: surfaceH,
	}
}

// Selected returns the id of the currently selected layer, or "".
func (c *Controller) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Handle processes one pointer event and returns the selected layer id.
func (c *Controller) Handle(ev PointerEvent) string {
	switch ev.Kind {
	case PointerDown:
		return c.pointerDown(ev.X, ev.Y)
	case PointerMove:
		return c.pointerMove(ev.X, ev.Y)
	case PointerUp:
		return c.pointerUp()
	}
	return c.Selected()
}

// pointerDown hit-tests layers topmost first and selects the first whose
// bounding box contains the point; no hit clears the selection.
func (c *Controller) pointerDown(x, y float64) string {
	outfit := c.store.Snapshot()
	layers := outfit.Layers
	sort.Slice(layers, func(i, j int) bool { return layers[i].ZIndex > layers[j].ZIndex })

	hit := ""
	for _, l := range layers {
		if LayerBounds(l, c.surfaceW, c.surfaceH).Contains(x, y) {
			hit = l.ID
			break
		}
	}

	c.mu.Lock()
	c.selected = hit
	c.dragging = hit != ""
	c.lastX = x
	c.lastY = y
	c.mu.Unlock()
	return hit
}

// pointerMove applies the delta from the previous sample to the selected
// layer's offset. Drag never changes scale or rotation.
func (c *Controller) pointerMove(x, y float64) string {
	c.mu.Lock()
	if !c.dragging || c.selected == "" {
		sel := c.selected
		c.mu.Unlock()
		return sel
	}
	dx := x - c.lastX
	dy := y - c.lastY
	c.lastX = x
	c.lastY = y
	selected := c.selected
	c.mu.Unlock()

	layer, ok := c.store.Layer(selected)
	if !ok {
		return selected
	}
	newX := layer.OffsetX + dx
	newY := layer.OffsetY + dy
	c.store.UpdateGarment(selected, TransformPatch{OffsetX: &newX, OffsetY: &newY})
	return selected
}

// pointerUp ends the drag and forces a final render so the frame matches the
// final transform regardless of debouncing.
func (c *Controller) pointerUp() string {
	c.mu.Lock()
	wasDragging := c.dragging
	c.dragging = false
	selected := c.selected
	c.mu.Unlock()

	if wasDragging && c.loop != nil {
		c.loop.Flush()
	}
	return selected
}
