package tryon

// Rect is an axis-aligned box in surface pixels.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether the point lies inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// LayerBounds computes the on-screen bounding box of a layer: centered at
// surface-center plus the layer offset, sized by natural dimensions times
// scale. Rotation is deliberately ignored; hit-testing and placement both use
// the unrotated box.
func LayerBounds(l GarmentLayer, surfaceW, surfaceH int) Rect {
	w := float64(l.NaturalWidth) * l.Scale
	h := float64(l.NaturalHeight) * l.Scale
	cx := float64(surfaceW)/2 + l.OffsetX
	cy := float64(surfaceH)/2 + l.OffsetY
	return Rect{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}
