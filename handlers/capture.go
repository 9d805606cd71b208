package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camden-git/tryonbackend/media"
	"github.com/camden-git/tryonbackend/models"
	"github.com/camden-git/tryonbackend/realtime"
	"github.com/camden-git/tryonbackend/repository"
	"github.com/camden-git/tryonbackend/tryon"
)

// CaptureHandler runs the countdown capture flow and serves saved results.
type CaptureHandler struct {
	Sessions *tryon.SessionManager
	Store    media.Store
	Repo     repository.CaptureRepositoryInterface
	Hub      *realtime.Hub
}

// StartCapture kicks off the countdown. Each tick is broadcast for the
// overlay; when the countdown expires the surface is re-rendered at full
// quality, encoded, and persisted together with the outfit state.
func (h *CaptureHandler) StartCapture(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	sessionID := session.ID
	onTick := func(remaining int) {
		if h.Hub != nil {
			h.Hub.Broadcast(realtime.Event{
				Type:      realtime.EventCountdownTick,
				SessionID: sessionID,
				Tick:      remaining,
			})
		}
	}

	snapshot := func() error {
		// force a fresh render so the capture reflects the latest transforms
		session.Loop.Flush()
		session.Loop.Wait()

		frame := session.Engine.Frame()
		if frame == nil {
			return tryon.ErrCapture
		}
		var encoded bytes.Buffer
		if err := imaging.Encode(&encoded, frame, imaging.PNG); err != nil {
			return fmt.Errorf("%w: %v", tryon.ErrCapture, err)
		}
		savedPath, err := h.Store.Save(media.AssetTypeCapture, "", bytes.NewReader(encoded.Bytes()))
		if err != nil {
			return fmt.Errorf("%w: %v", tryon.ErrCapture, err)
		}

		outfitJSON, err := json.Marshal(session.Store.Snapshot())
		if err != nil {
			return fmt.Errorf("%w: %v", tryon.ErrCapture, err)
		}

		result := &models.CapturedResult{
			ID:         uuid.NewString(),
			SessionID:  sessionID,
			ImagePath:  savedPath,
			OutfitJSON: string(outfitJSON),
			CreatedAt:  time.Now().Unix(),
		}
		if err := h.Repo.Create(result); err != nil {
			return fmt.Errorf("%w: %v", tryon.ErrCapture, err)
		}
		log.Printf("capture %s saved for session %s", result.ID, sessionID)
		if h.Hub != nil {
			h.Hub.Broadcast(realtime.Event{
				Type:      realtime.EventCaptureSaved,
				SessionID: sessionID,
				CaptureID: result.ID,
			})
		}
		return nil
	}

	onDone := func(err error) {
		if err != nil && h.Hub != nil {
			h.Hub.Broadcast(realtime.Event{
				Type:      realtime.EventCaptureFailed,
				SessionID: sessionID,
				Error:     err.Error(),
			})
		}
	}

	if err := session.Capturer.Start(onTick, snapshot, onDone); err != nil {
		if errors.Is(err, tryon.ErrCaptureInProgress) {
			WriteAPIError(w, http.StatusConflict, "capture_in_progress", "a countdown is already running")
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "capture_failed", "could not start capture")
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": string(tryon.CaptureCounting)})
}

// CancelCapture aborts a running countdown. Cancelling when idle is a no-op.
func (h *CaptureHandler) CancelCapture(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.Capturer.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

// ListAllCaptures returns every saved result, newest first.
func (h *CaptureHandler) ListAllCaptures(w http.ResponseWriter, r *http.Request) {
	captures, err := h.Repo.ListAll()
	if err != nil {
		log.Printf("failed to list captures: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "list_failed", "could not list captures")
		return
	}
	WriteJSON(w, http.StatusOK, captures)
}

// ListCaptures returns saved results for a session, newest first.
func (h *CaptureHandler) ListCaptures(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	captures, err := h.Repo.ListBySession(session.ID)
	if err != nil {
		log.Printf("failed to list captures for session %s: %v", session.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "list_failed", "could not list captures")
		return
	}
	WriteJSON(w, http.StatusOK, captures)
}

// GetCapture returns one saved result's metadata.
func (h *CaptureHandler) GetCapture(w http.ResponseWriter, r *http.Request) {
	capture, ok := h.capture(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, capture)
}

// GetCaptureImage streams the captured PNG.
func (h *CaptureHandler) GetCaptureImage(w http.ResponseWriter, r *http.Request) {
	capture, ok := h.capture(w, r)
	if !ok {
		return
	}
	file, _, err := h.Store.Get(capture.ImagePath)
	if err != nil {
		log.Printf("failed to read capture image %s: %v", capture.ImagePath, err)
		WriteAPIError(w, http.StatusNotFound, "image_not_found", "capture image is missing")
		return
	}
	defer file.Close()
	w.Header().Set("Content-Type", "image/png")
	_, _ = io.Copy(w, file)
}

// DeleteCapture removes the record and its stored image.
func (h *CaptureHandler) DeleteCapture(w http.ResponseWriter, r *http.Request) {
	capture, ok := h.capture(w, r)
	if !ok {
		return
	}
	if err := h.Repo.Delete(capture.ID); err != nil {
		log.Printf("failed to delete capture %s: %v", capture.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "delete_failed", "could not delete capture")
		return
	}
	if err := h.Store.Delete(capture.ImagePath); err != nil {
		log.Printf("failed to delete capture image %s: %v", capture.ImagePath, err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CaptureHandler) capture(w http.ResponseWriter, r *http.Request) (*models.CapturedResult, bool) {
	id := chi.URLParam(r, "capture_id")
	capture, err := h.Repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "capture_not_found", "unknown capture id")
			return nil, false
		}
		log.Printf("failed to load capture %s: %v", id, err)
		WriteAPIError(w, http.StatusInternalServerError, "lookup_failed", "could not load capture")
		return nil, false
	}
	return capture, true
}

func (h *CaptureHandler) session(w http.ResponseWriter, r *http.Request) (*tryon.Session, bool) {
	id := chi.URLParam(r, "session_id")
	session, ok := h.Sessions.Get(id)
	if !ok {
		WriteAPIError(w, http.StatusNotFound, "session_not_found", "unknown session id")
		return nil, false
	}
	return session, true
}
