package tryon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *LayerStore {
	return NewLayerStore(StoreOptions{MinScale: 0.1, MaxScale: 2.0})
}

func mustStoreLayer(t *testing.T, store *LayerStore, id string) GarmentLayer {
	t.Helper()
	layer, ok := store.Layer(id)
	require.True(t, ok)
	return layer
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestAddGarmentEvictsSamePlacement(t *testing.T) {
	store := newTestStore()

	shirt := store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)
	pants := store.AddGarment("garments/pants.png", CategoryBottom, 400, 600)
	jacket := store.AddGarment("garments/jacket.png", CategoryOuterwear, 420, 520)

	outfit := store.Snapshot()
	require.Len(t, outfit.Layers, 2, "jacket should evict the shirt from upper-body")

	ids := []string{outfit.Layers[0].ID, outfit.Layers[1].ID}
	assert.Contains(t, ids, pants.ID)
	assert.Contains(t, ids, jacket.ID)
	assert.NotContains(t, ids, shirt.ID)
}

func TestAddGarmentAssignsContiguousOrder(t *testing.T) {
	store := newTestStore()

	store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)
	store.AddGarment("garments/pants.png", CategoryBottom, 400, 600)
	store.AddGarment("garments/hat.png", CategoryAccessory, 200, 150)

	outfit := store.Snapshot()
	require.Len(t, outfit.Layers, 3)
	for i, l := range outfit.Layers {
		assert.Equal(t, i, l.LayerIndex)
		assert.Equal(t, i+1, l.ZIndex)
	}
}

func TestAddGarmentAppliesCategoryDefaults(t *testing.T) {
	store := newTestStore()

	layer := store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)

	defaults := DefaultLayerTable()[CategoryTop]
	assert.Equal(t, defaults.Scale, layer.Scale)
	assert.Equal(t, defaults.OffsetX, layer.OffsetX)
	assert.Equal(t, defaults.OffsetY, layer.OffsetY)
	assert.Equal(t, PlacementUpperBody, layer.Placement)
	assert.Equal(t, 400, layer.NaturalWidth)
	assert.Equal(t, 500, layer.NaturalHeight)
}

func TestRemoveGarmentIsIdempotent(t *testing.T) {
	store := newTestStore()
	layer := store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)

	store.RemoveGarment(layer.ID)
	assert.Empty(t, store.Snapshot().Layers)

	// removing again, or removing an unknown id, must not panic or change state
	store.RemoveGarment(layer.ID)
	store.RemoveGarment("no-such-layer")
	assert.Empty(t, store.Snapshot().Layers)
}

func TestRemoveGarmentRenumbersRemaining(t *testing.T) {
	store := newTestStore()
	store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)
	pants := store.AddGarment("garments/pants.png", CategoryBottom, 400, 600)
	hat := store.AddGarment("garments/hat.png", CategoryAccessory, 200, 150)

	store.RemoveGarment(pants.ID)

	outfit := store.Snapshot()
	require.Len(t, outfit.Layers, 2)
	assert.Equal(t, 0, outfit.Layers[0].LayerIndex)
	assert.Equal(t, 1, outfit.Layers[0].ZIndex)
	assert.Equal(t, hat.ID, outfit.Layers[1].ID)
	assert.Equal(t, 1, outfit.Layers[1].LayerIndex)
	assert.Equal(t, 2, outfit.Layers[1].ZIndex)
}

func TestUpdateGarmentClampsScale(t *testing.T) {
	store := newTestStore()
	layer := store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)

	updated, ok := store.UpdateGarment(layer.ID, TransformPatch{Scale: floatPtr(9.5)})
	require.True(t, ok)
	assert.Equal(t, 2.0, updated.Scale)

	updated, ok = store.UpdateGarment(layer.ID, TransformPatch{Scale: floatPtr(0.01)})
	require.True(t, ok)
	assert.Equal(t, 0.1, updated.Scale)
}

func TestUpdateGarmentPartialMerge(t *testing.T) {
	store := newTestStore()
	layer := store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)

	_, ok := store.UpdateGarment(layer.ID, TransformPatch{OffsetX: floatPtr(42)})
	require.True(t, ok)
	updated, ok := store.UpdateGarment(layer.ID, TransformPatch{Rotation: floatPtr(15), FlipH: boolPtr(true)})
	require.True(t, ok)

	// untouched fields keep their previous values
	assert.Equal(t, 42.0, updated.OffsetX)
	assert.Equal(t, layer.OffsetY, updated.OffsetY)
	assert.Equal(t, layer.Scale, updated.Scale)
	assert.Equal(t, 15.0, updated.Rotation)
	assert.True(t, updated.FlipH)
}

func TestUpdateGarmentDisjointPatchesCommute(t *testing.T) {
	run := func(first, second TransformPatch) GarmentLayer {
		store := newTestStore()
		layer := store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)
		_, ok := store.UpdateGarment(layer.ID, first)
		require.True(t, ok)
		out, ok := store.UpdateGarment(layer.ID, second)
		require.True(t, ok)
		return out
	}

	move := TransformPatch{OffsetX: floatPtr(10), OffsetY: floatPtr(-5)}
	spin := TransformPatch{Rotation: floatPtr(30)}

	ab := run(move, spin)
	ba := run(spin, move)
	assert.Equal(t, ab.Transform, ba.Transform)
}

func TestUpdatesOnDistinctLayersCommute(t *testing.T) {
	run := func(firstTop bool) (GarmentLayer, GarmentLayer) {
		store := newTestStore()
		top := store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)
		bottom := store.AddGarment("garments/pants.png", CategoryBottom, 400, 600)

		moveTop := TransformPatch{OffsetX: floatPtr(12)}
		spinBottom := TransformPatch{Rotation: floatPtr(45)}
		if firstTop {
			store.UpdateGarment(top.ID, moveTop)
			store.UpdateGarment(bottom.ID, spinBottom)
		} else {
			store.UpdateGarment(bottom.ID, spinBottom)
			store.UpdateGarment(top.ID, moveTop)
		}
		return mustStoreLayer(t, store, top.ID), mustStoreLayer(t, store, bottom.ID)
	}

	topAB, bottomAB := run(true)
	topBA, bottomBA := run(false)

	// updates on disjoint layers land identically in either order
	assert.Equal(t, topAB.Transform, topBA.Transform)
	assert.Equal(t, bottomAB.Transform, bottomBA.Transform)
}

func TestCapturedOutfitUnaffectedByLaterEdits(t *testing.T) {
	store := newTestStore()
	layer := store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)
	_, ok := store.UpdateGarment(layer.ID, TransformPatch{OffsetX: floatPtr(15), Rotation: floatPtr(30)})
	require.True(t, ok)
	store.SetSubject(&SubjectImage{ID: "subj-1", Status: SubjectCompleted, ImagePath: "cutouts/a.png"})

	// serialize the snapshot the way a capture is persisted
	captured, err := json.Marshal(store.Snapshot())
	require.NoError(t, err)

	// keep editing after the capture
	_, ok = store.UpdateGarment(layer.ID, TransformPatch{OffsetY: floatPtr(50), Scale: floatPtr(1.3)})
	require.True(t, ok)
	store.AddGarment("garments/hat.png", CategoryAccessory, 200, 150)
	store.SetSubject(&SubjectImage{ID: "subj-2", Status: SubjectPending})

	var restored Outfit
	require.NoError(t, json.Unmarshal(captured, &restored))

	require.Len(t, restored.Layers, 1)
	got := restored.Layers[0]
	assert.Equal(t, layer.ID, got.ID)
	assert.Equal(t, 15.0, got.OffsetX)
	assert.Equal(t, 30.0, got.Rotation)
	assert.Equal(t, DefaultLayerTable()[CategoryTop].OffsetY, got.OffsetY)
	assert.Equal(t, DefaultLayerTable()[CategoryTop].Scale, got.Scale)

	require.NotNil(t, restored.Subject)
	assert.Equal(t, "subj-1", restored.Subject.ID)
	assert.Equal(t, "cutouts/a.png", restored.Subject.ImagePath)
}

func TestUpdateGarmentUnknownID(t *testing.T) {
	store := newTestStore()
	_, ok := store.UpdateGarment("missing", TransformPatch{Scale: floatPtr(1)})
	assert.False(t, ok)
}

func TestReorderGarment(t *testing.T) {
	store := newTestStore()
	shirt := store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)
	pants := store.AddGarment("garments/pants.png", CategoryBottom, 400, 600)
	hat := store.AddGarment("garments/hat.png", CategoryAccessory, 200, 150)

	require.True(t, store.ReorderGarment(hat.ID, 0))

	outfit := store.Snapshot()
	require.Len(t, outfit.Layers, 3)
	assert.Equal(t, hat.ID, outfit.Layers[0].ID)
	assert.Equal(t, shirt.ID, outfit.Layers[1].ID)
	assert.Equal(t, pants.ID, outfit.Layers[2].ID)
	for i, l := range outfit.Layers {
		assert.Equal(t, i, l.LayerIndex)
		assert.Equal(t, i+1, l.ZIndex)
	}
}

func TestReorderGarmentClampsTargetIndex(t *testing.T) {
	store := newTestStore()
	shirt := store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)
	pants := store.AddGarment("garments/pants.png", CategoryBottom, 400, 600)

	require.True(t, store.ReorderGarment(shirt.ID, 99))
	outfit := store.Snapshot()
	assert.Equal(t, pants.ID, outfit.Layers[0].ID)
	assert.Equal(t, shirt.ID, outfit.Layers[1].ID)

	assert.False(t, store.ReorderGarment("missing", 0))
}

func TestSetSubjectReplacesWholesale(t *testing.T) {
	store := newTestStore()
	store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)

	first := &SubjectImage{ID: "subj-1", Status: SubjectPending, ImagePath: "subjects/a.png"}
	store.SetSubject(first)
	second := &SubjectImage{ID: "subj-2", Status: SubjectPending, ImagePath: "subjects/b.png"}
	store.SetSubject(second)

	subj := store.Subject()
	require.NotNil(t, subj)
	assert.Equal(t, "subj-2", subj.ID)
	// garment layers survive a photo replacement
	assert.Len(t, store.Snapshot().Layers, 1)
}

func TestStaleRemovalResultIsDiscarded(t *testing.T) {
	store := newTestStore()
	store.SetSubject(&SubjectImage{ID: "subj-1", Status: SubjectPending})
	require.True(t, store.MarkSubjectRemoving("subj-1"))

	// user re-uploads while the worker is still running
	store.SetSubject(&SubjectImage{ID: "subj-2", Status: SubjectPending})

	assert.False(t, store.SetSubjectCompleted("subj-1", "cutouts/old.png"))
	subj := store.Subject()
	require.NotNil(t, subj)
	assert.Equal(t, "subj-2", subj.ID)
	assert.Equal(t, SubjectPending, subj.Status)
}

func TestSubjectStatusTransitions(t *testing.T) {
	store := newTestStore()
	store.SetSubject(&SubjectImage{ID: "subj-1", Status: SubjectPending, ImagePath: "subjects/a.png", OriginalPath: "subjects/a.png"})

	require.True(t, store.MarkSubjectRemoving("subj-1"))
	assert.Equal(t, SubjectRemoving, store.Subject().Status)

	require.True(t, store.SetSubjectCompleted("subj-1", "cutouts/a.png"))
	subj := store.Subject()
	assert.Equal(t, SubjectCompleted, subj.Status)
	assert.Equal(t, "cutouts/a.png", subj.ImagePath)
	assert.Equal(t, "subjects/a.png", subj.OriginalPath)
}

func TestSubjectFailureKeepsOriginal(t *testing.T) {
	store := newTestStore()
	store.SetSubject(&SubjectImage{ID: "subj-1", Status: SubjectPending, ImagePath: "subjects/a.png", OriginalPath: "subjects/a.png"})
	require.True(t, store.MarkSubjectRemoving("subj-1"))

	require.True(t, store.SetSubjectFailed("subj-1", "segmentation API unreachable"))
	subj := store.Subject()
	assert.Equal(t, SubjectFailed, subj.Status)
	assert.Equal(t, "segmentation API unreachable", subj.Error)
	assert.Equal(t, "subjects/a.png", subj.ImagePath)
}

func TestNotifyAfterCommit(t *testing.T) {
	store := newTestStore()

	var observed []GarmentLayer
	store.Subscribe(func(ev Event) {
		if ev.Kind == EventLayers {
			observed = store.Snapshot().Layers
		}
	})

	layer := store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)

	// the listener must see the committed mutation, not the prior state
	require.Len(t, observed, 1)
	assert.Equal(t, layer.ID, observed[0].ID)
}

func TestTransformEventCarriesLayerID(t *testing.T) {
	store := newTestStore()
	layer := store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)

	var events []Event
	store.Subscribe(func(ev Event) { events = append(events, ev) })

	_, ok := store.UpdateGarment(layer.ID, TransformPatch{OffsetX: floatPtr(5)})
	require.True(t, ok)

	require.Len(t, events, 1)
	assert.Equal(t, EventTransform, events[0].Kind)
	assert.Equal(t, layer.ID, events[0].LayerID)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	store := newTestStore()
	layer := store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)

	outfit := store.Snapshot()
	outfit.Layers[0].OffsetX = 999

	got, ok := store.Layer(layer.ID)
	require.True(t, ok)
	assert.NotEqual(t, 999.0, got.OffsetX)
}

func TestClear(t *testing.T) {
	store := newTestStore()
	store.AddGarment("garments/shirt.png", CategoryTop, 400, 500)
	store.SetSubject(&SubjectImage{ID: "subj-1"})

	store.Clear()
	outfit := store.Snapshot()
	assert.Empty(t, outfit.Layers)
	assert.Nil(t, outfit.Subject)
}
