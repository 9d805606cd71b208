package tryon

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies what changed in the layer store.
type EventKind string

const (
	EventSubject   EventKind = "subject"   // subject attached, detached, or status change
	EventLayers    EventKind = "layers"    // layer added, removed, reordered, or cleared
	EventTransform EventKind = "transform" // a single layer's transform changed
)

// Event is delivered to subscribers after the store mutation that caused it
// has fully committed.
type Event struct {
	Kind    EventKind
	LayerID string
}

// Listener receives store change events. Listeners are invoked outside the
// store lock and must not call back into mutating store operations.
type Listener func(Event)

// StoreOptions carries configured limits and per-category defaults.
type StoreOptions struct {
	Defaults map[Category]LayerDefaults
	MinScale float64
	MaxScale float64
}

// LayerStore is the authoritative in-memory record of the current outfit. It
// exclusively owns GarmentLayer lifetimes; renderers and controllers only see
// snapshots.
type LayerStore struct {
	mu        sync.RWMutex
	layers    []*GarmentLayer
	subject   *SubjectImage
	createdAt time.Time
	opts      StoreOptions

	listenerMu sync.RWMutex
	listeners  []Listener
}

func NewLayerStore(opts StoreOptions) *LayerStore {
	if opts.Defaults == nil {
		opts.Defaults = DefaultLayerTable()
	}
	if opts.MinScale <= 0 {
		opts.MinScale = 0.1
	}
	if opts.MaxScale <= 0 {
		opts.MaxScale = 2.0
	}
	return &LayerStore{
		createdAt: time.Now(),
		opts:      opts,
	}
}

// Subscribe registers a listener for store change events.
func (s *LayerStore) Subscribe(l Listener) {
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenerMu.Unlock()
}

func (s *LayerStore) notify(ev Event) {
	s.listenerMu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenerMu.RUnlock()
	for _, l := range listeners {
		l(ev)
	}
}

// AddGarment creates a layer for the given source image. If another layer
// already occupies the same anatomical placement it is evicted first.
func (s *LayerStore) AddGarment(sourceRef string, category Category, naturalW, naturalH int) GarmentLayer {
	placement := category.DefaultPlacement()
	defaults := s.opts.Defaults[category]
	if defaults.Scale == 0 {
		defaults.Scale = 1.0
	}

	s.mu.Lock()
	for i, l := range s.layers {
		if l.Placement == placement {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			break
		}
	}
	s.renumberLocked()

	layer := &GarmentLayer{
		ID:         uuid.NewString(),
		Category:   category,
		Placement:  placement,
		SourceRef:  sourceRef,
		ZIndex:     len(s.layers) + 1,
		LayerIndex: len(s.layers),
		Transform: Transform{
			OffsetX: defaults.OffsetX,
			OffsetY: defaults.OffsetY,
			Scale:   s.clampScale(defaults.Scale),
		},
		NaturalWidth:  naturalW,
		NaturalHeight: naturalH,
	}
	s.layers = append(s.layers, layer)
	out := *layer
	s.mu.Unlock()

	s.notify(Event{Kind: EventLayers, LayerID: out.ID})
	return out
}

// RemoveGarment deletes a layer. Unknown ids are a no-op; deletion is
// idempotent.
func (s *LayerStore) RemoveGarment(id string) {
	s.mu.Lock()
	removed := false
	for i, l := range s.layers {
		if l.ID == id {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			removed = true
			break
		}
	}
	if removed {
		s.renumberLocked()
	}
	s.mu.Unlock()

	if removed {
		s.notify(Event{Kind: EventLayers, LayerID: id})
	}
}

// UpdateGarment merges the supplied transform fields into the layer.
// Unspecified fields are unchanged; scale is clamped to the configured range.
func (s *LayerStore) UpdateGarment(id string, patch TransformPatch) (GarmentLayer, bool) {
	s.mu.Lock()
	layer := s.findLocked(id)
	if layer == nil {
		s.mu.Unlock()
		return GarmentLayer{}, false
	}
	if patch.OffsetX != nil {
		layer.OffsetX = *patch.OffsetX
	}
	if patch.OffsetY != nil {
		layer.OffsetY = *patch.OffsetY
	}
	if patch.Scale != nil {
		layer.Scale = s.clampScale(*patch.Scale)
	}
	if patch.Rotation != nil {
		layer.Rotation = *patch.Rotation
	}
	if patch.FlipH != nil {
		layer.FlipH = *patch.FlipH
	}
	out := *layer
	s.mu.Unlock()

	s.notify(Event{Kind: EventTransform, LayerID: id})
	return out, true
}

// ReorderGarment moves a layer to newLayerIndex, shifting its neighbors.
// ZIndex values are re-derived from the resulting paint order.
func (s *LayerStore) ReorderGarment(id string, newLayerIndex int) bool {
	s.mu.Lock()
	from := -1
	for i, l := range s.layers {
		if l.ID == id {
			from = i
			break
		}
	}
	if from == -1 {
		s.mu.Unlock()
		return false
	}
	if newLayerIndex < 0 {
		newLayerIndex = 0
	}
	if newLayerIndex >= len(s.layers) {
		newLayerIndex = len(s.layers) - 1
	}
	layer := s.layers[from]
	s.layers = append(s.layers[:from], s.layers[from+1:]...)
	s.layers = append(s.layers[:newLayerIndex], append([]*GarmentLayer{layer}, s.layers[newLayerIndex:]...)...)
	s.renumberLocked()
	s.mu.Unlock()

	s.notify(Event{Kind: EventLayers, LayerID: id})
	return true
}

// SetSubject replaces the subject wholesale. Passing nil detaches the photo
// without touching garment layers.
func (s *LayerStore) SetSubject(subj *SubjectImage) {
	s.mu.Lock()
	if subj != nil {
		copied := *subj
		s.subject = &copied
	} else {
		s.subject = nil
	}
	s.mu.Unlock()
	s.notify(Event{Kind: EventSubject})
}

// MarkSubjectRemoving transitions the subject into the removing-background
// state. Issued before the pipeline call resolves.
func (s *LayerStore) MarkSubjectRemoving(subjectID string) bool {
	return s.updateSubject(subjectID, func(subj *SubjectImage) {
		subj.Status = SubjectRemoving
		subj.Error = ""
	})
}

// SetSubjectCompleted records a successful removal and swaps the displayed
// image to the cutout.
func (s *LayerStore) SetSubjectCompleted(subjectID, cutoutPath string) bool {
	return s.updateSubject(subjectID, func(subj *SubjectImage) {
		subj.Status = SubjectCompleted
		subj.Error = ""
		subj.ImagePath = cutoutPath
	})
}

// SetSubjectFailed records a removal failure. The original photo stays
// displayed and usable.
func (s *LayerStore) SetSubjectFailed(subjectID, errDetail string) bool {
	return s.updateSubject(subjectID, func(subj *SubjectImage) {
		subj.Status = SubjectFailed
		subj.Error = errDetail
	})
}

// updateSubject applies fn under lock and notifies only if the subject with
// the given id is still attached, so a stale worker result for a replaced
// photo is discarded.
func (s *LayerStore) updateSubject(subjectID string, fn func(*SubjectImage)) bool {
	s.mu.Lock()
	if s.subject == nil || s.subject.ID != subjectID {
		s.mu.Unlock()
		return false
	}
	fn(s.subject)
	s.mu.Unlock()
	s.notify(Event{Kind: EventSubject})
	return true
}

// Subject returns a copy of the current subject, or nil.
func (s *LayerStore) Subject() *SubjectImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.subject == nil {
		return nil
	}
	copied := *s.subject
	return &copied
}

// Layer returns a copy of a single layer.
func (s *LayerStore) Layer(id string) (GarmentLayer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l := s.findLocked(id); l != nil {
		return *l, true
	}
	return GarmentLayer{}, false
}

// Snapshot returns a deep copy of the outfit for rendering or persistence.
// Layers are ordered by layer index.
func (s *LayerStore) Snapshot() Outfit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Outfit{CreatedAt: s.createdAt}
	out.Layers = make([]GarmentLayer, len(s.layers))
	for i, l := range s.layers {
		out.Layers[i] = *l
	}
	if s.subject != nil {
		copied := *s.subject
		out.Subject = &copied
	}
	return out
}

// Clear removes all layers and the subject.
func (s *LayerStore) Clear() {
	s.mu.Lock()
	s.layers = nil
	s.subject = nil
	s.mu.Unlock()
	s.notify(Event{Kind: EventLayers})
}

func (s *LayerStore) findLocked(id string) *GarmentLayer {
	for _, l := range s.layers {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// renumberLocked re-derives layer index and z-index from slice order.
func (s *LayerStore) renumberLocked() {
	for i, l := range s.layers {
		l.LayerIndex = i
		l.ZIndex = i + 1
	}
}

func (s *LayerStore) clampScale(v float64) float64 {
	if v < s.opts.MinScale {
		return s.opts.MinScale
	}
	if v > s.opts.MaxScale {
		return s.opts.MaxScale
	}
	return v
}
