package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/tryonbackend/realtime"
	"github.com/camden-git/tryonbackend/tryon"
)

type addGarmentRequest struct {
	SourceRef string `json:"source_ref"`
	Category  string `json:"category"`
}

type reorderRequest struct {
	LayerIndex int `json:"layer_index"`
}

// AddGarment places a garment image on the subject as a new layer, evicting
// any layer already occupying the same anatomical placement.
func (h *SessionHandler) AddGarment(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req addGarmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "could not decode request body")
		return
	}
	category := tryon.Category(strings.ToLower(req.Category))
	if !category.Valid() {
		WriteAPIError(w, http.StatusBadRequest, "invalid_category", "unknown garment category")
		return
	}
	if req.SourceRef == "" {
		WriteAPIError(w, http.StatusBadRequest, "missing_source", "source_ref is required")
		return
	}

	// decode once up front to cache natural dimensions on the layer; an
	// undecodable garment is rejected here instead of silently skipping later
	img, err := h.Source.Load(req.SourceRef)
	if err != nil {
		log.Printf("session %s: garment %s failed to load: %v", session.ID, req.SourceRef, err)
		WriteAPIError(w, http.StatusUnprocessableEntity, "garment_load_failed", "the garment image could not be loaded")
		return
	}

	layer := session.Store.AddGarment(req.SourceRef, category, img.Bounds().Dx(), img.Bounds().Dy())
	h.broadcastOutfit(session.ID)
	WriteJSON(w, http.StatusCreated, layer)
}

// ListGarments returns the ordered layer list for the garment panel.
func (h *SessionHandler) ListGarments(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	outfit := session.Store.Snapshot()
	WriteJSON(w, http.StatusOK, outfit.Layers)
}

// UpdateGarment merges the supplied transform fields into a layer.
func (h *SessionHandler) UpdateGarment(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var patch tryon.TransformPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "could not decode transform patch")
		return
	}
	layer, found := session.Store.UpdateGarment(chi.URLParam(r, "layer_id"), patch)
	if !found {
		WriteAPIError(w, http.StatusNotFound, "layer_not_found", "unknown layer id")
		return
	}
	WriteJSON(w, http.StatusOK, layer)
}

// ReorderGarment moves a layer to a new paint-order position.
func (h *SessionHandler) ReorderGarment(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "could not decode request body")
		return
	}
	if !session.Store.ReorderGarment(chi.URLParam(r, "layer_id"), req.LayerIndex) {
		WriteAPIError(w, http.StatusNotFound, "layer_not_found", "unknown layer id")
		return
	}
	h.broadcastOutfit(session.ID)
	outfit := session.Store.Snapshot()
	WriteJSON(w, http.StatusOK, outfit.Layers)
}

// RemoveGarment deletes a layer. Removal is idempotent, so unknown ids still
// return 204.
func (h *SessionHandler) RemoveGarment(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.Store.RemoveGarment(chi.URLParam(r, "layer_id"))
	h.broadcastOutfit(session.ID)
	w.WriteHeader(http.StatusNoContent)
}

// Pointer feeds one pointer event into the interaction controller and
// reports the resulting selection for the transform-adjustment panel.
func (h *SessionHandler) Pointer(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var ev tryon.PointerEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "could not decode pointer event")
		return
	}
	selected := session.Controller.Handle(ev)
	if ev.Kind == tryon.PointerDown && h.Hub != nil {
		h.Hub.Broadcast(realtime.Event{
			Type:      realtime.EventLayerSelected,
			SessionID: session.ID,
			LayerID:   selected,
		})
	}
	WriteJSON(w, http.StatusOK, map[string]string{"selected": selected})
}

func (h *SessionHandler) broadcastOutfit(sessionID string) {
	if h.Hub != nil {
		h.Hub.Broadcast(realtime.Event{Type: realtime.EventOutfitChanged, SessionID: sessionID})
	}
}
