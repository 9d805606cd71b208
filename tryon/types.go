package tryon

import "time"

// Category classifies a garment image handed over by the picker UI.
type Category string

const (
	CategoryTop       Category = "top"
	CategoryBottom    Category = "bottom"
	CategoryDress     Category = "dress"
	CategoryOuterwear Category = "outerwear"
	CategoryShoes     Category = "shoes"
	CategoryAccessory Category = "accessory"
)

// Placement is the body region a garment occupies on the subject. At most one
// layer may occupy a placement at a time.
type Placement string

const (
	PlacementUpperBody Placement = "upper-body"
	PlacementLowerBody Placement = "lower-body"
	PlacementFullBody  Placement = "full-body"
	PlacementFeet      Placement = "feet"
	PlacementHead      Placement = "head"
)

// DefaultPlacement maps a category to its anatomical placement.
func (c Category) DefaultPlacement() Placement {
	switch c {
	case CategoryTop, CategoryOuterwear:
		return PlacementUpperBody
	case CategoryBottom:
		return PlacementLowerBody
	case CategoryDress:
		return PlacementFullBody
	case CategoryShoes:
		return PlacementFeet
	case CategoryAccessory:
		return PlacementHead
	default:
		return PlacementUpperBody
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTop, CategoryBottom, CategoryDress, CategoryOuterwear, CategoryShoes, CategoryAccessory:
		return true
	}
	return false
}

// LayerDefaults holds the configured starting transform for a category. These
// are static placement tables, not computed body-proportion fits.
type LayerDefaults struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// DefaultLayerTable returns the per-category starting scale/offset table.
func DefaultLayerTable() map[Category]LayerDefaults {
	return map[Category]LayerDefaults{
		CategoryTop:       {Scale: 0.55, OffsetX: 0, OffsetY: -120},
		CategoryOuterwear: {Scale: 0.60, OffsetX: 0, OffsetY: -110},
		CategoryBottom:    {Scale: 0.55, OffsetX: 0, OffsetY: 80},
		CategoryDress:     {Scale: 0.70, OffsetX: 0, OffsetY: -20},
		CategoryShoes:     {Scale: 0.35, OffsetX: 0, OffsetY: 280},
		CategoryAccessory: {Scale: 0.25, OffsetX: 0, OffsetY: -280},
	}
}

// Transform is the render-time placement state of a layer.
type Transform struct {
	OffsetX  float64 `json:"offset_x"` // surface pixels from surface center
	OffsetY  float64 `json:"offset_y"`
	Scale    float64 `json:"scale"`    // uniform, clamped by the store
	Rotation float64 `json:"rotation"` // degrees, clockwise
	FlipH    bool    `json:"flip_h"`
}

// TransformPatch carries only the transform fields a caller wants changed.
type TransformPatch struct {
	OffsetX  *float64 `json:"offset_x,omitempty"`
	OffsetY  *float64 `json:"offset_y,omitempty"`
	Scale    *float64 `json:"scale,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
	FlipH    *bool    `json:"flip_h,omitempty"`
}

// GarmentLayer is one article placed on the subject.
type GarmentLayer struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Placement Placement `json:"placement"`
	SourceRef string    `json:"source_ref"` // relative asset path of the garment image

	ZIndex     int `json:"z_index"`     // stacking order, higher paints on top
	LayerIndex int `json:"layer_index"` // paint-order position used for reordering

	Transform

	NaturalWidth  int `json:"natural_width"` // cached source pixel dimensions
	NaturalHeight int `json:"natural_height"`
}

// SubjectStatus tracks the background-removal lifecycle of the user photo.
type SubjectStatus string

const (
	SubjectPending   SubjectStatus = "pending"
	SubjectRemoving  SubjectStatus = "removing-background"
	SubjectCompleted SubjectStatus = "completed"
	SubjectFailed    SubjectStatus = "failed"
)

// SubjectImage is the normalized user photo. Replaced wholesale on re-upload.
type SubjectImage struct {
	ID             string        `json:"id"`
	Width          int           `json:"width"`
	Height         int           `json:"height"`
	OriginalWidth  int           `json:"original_width"`
	OriginalHeight int           `json:"original_height"`
	Status         SubjectStatus `json:"status"`
	Error          string        `json:"error,omitempty"`

	// ImagePath is the displayed image: the normalized original until a
	// removal completes, then the cutout.
	ImagePath    string `json:"image_path"`
	OriginalPath string `json:"original_path"`
}

// Outfit is a read-only projection of the store state, the unit that gets
// composited and persisted on capture.
type Outfit struct {
	Layers    []GarmentLayer `json:"layers"` // ascending layer index
	Subject   *SubjectImage  `json:"subject,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
