package handlers

import (
	"bytes"
	"errors"
	"log"
	"net/http"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/camden-git/tryonbackend/config"
	"github.com/camden-git/tryonbackend/device"
	"github.com/camden-git/tryonbackend/media"
	"github.com/camden-git/tryonbackend/realtime"
	"github.com/camden-git/tryonbackend/tryon"
	"github.com/camden-git/tryonbackend/workers"
)

const maxUploadBytes = 20 << 20

// SessionHandler owns the try-on session lifecycle: creation, photo upload
// and normalization, and background-removal scheduling.
type SessionHandler struct {
	Cfg       config.Config
	Sessions  *tryon.SessionManager
	Store     media.Store
	Source    tryon.ImageSource
	Processor *workers.RemovalProcessor
	Hub       *realtime.Hub
	Caps      device.Capabilities
}

type sessionResponse struct {
	SessionID string              `json:"session_id"`
	Device    device.Capabilities `json:"device"`
}

// CreateSession starts a new try-on session wired to the detected device tier.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session := tryon.NewSession(tryon.SessionConfig{
		SurfaceWidth:  h.Cfg.CanvasWidth,
		SurfaceHeight: h.Cfg.CanvasHeight,
		Source:        h.Source,
		StoreOptions: tryon.StoreOptions{
			MinScale: h.Cfg.MinGarmentScale,
			MaxScale: h.Cfg.MaxGarmentScale,
		},
		HighQuality:     h.Caps.UseHighQuality,
		RealTimePreview: h.Caps.UseRealTimePreview,
		RenderDebounce:  h.Cfg.RenderDebounce,
		CountdownTicks:  h.Cfg.CountdownTicks,
		TickInterval:    h.Cfg.TickInterval,
	})
	h.Sessions.Add(session)
	log.Printf("session %s created", session.ID)
	WriteJSON(w, http.StatusCreated, sessionResponse{SessionID: session.ID, Device: h.Caps})
}

// UploadPhoto accepts the raw photo, normalizes it, replaces the session's
// subject wholesale, and queues background removal. Responds 202; removal
// completion is observable via the subject status and the event stream.
func (h *SessionHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_upload", "could not parse multipart upload")
		return
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "missing_photo", "expected a 'photo' form file")
		return
	}
	defer file.Close()

	normalized, err := media.Normalize(file, h.Cfg.MaxPhotoWidth, h.Cfg.MaxPhotoHeight)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedMedia) {
			WriteAPIError(w, http.StatusUnsupportedMediaType, "unsupported_media", "the uploaded file is not a decodable image")
			return
		}
		log.Printf("session %s: photo normalization failed: %v", session.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "normalize_failed", "failed to process the uploaded photo")
		return
	}

	var encoded bytes.Buffer
	if err := imaging.Encode(&encoded, normalized.Image, imaging.PNG); err != nil {
		log.Printf("session %s: failed to encode normalized photo: %v", session.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "encode_failed", "failed to store the uploaded photo")
		return
	}
	savedPath, err := h.Store.Save(media.AssetTypeSubject, "", bytes.NewReader(encoded.Bytes()))
	if err != nil {
		log.Printf("session %s: failed to save normalized photo: %v", session.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "store_failed", "failed to store the uploaded photo")
		return
	}

	// decodes of a replaced subject's images will never be drawn again
	if prev := session.Store.Subject(); prev != nil {
		session.Engine.InvalidateCache(prev.ImagePath)
		session.Engine.InvalidateCache(prev.OriginalPath)
	}

	subject := &tryon.SubjectImage{
		ID:             uuid.NewString(),
		Width:          normalized.Width,
		Height:         normalized.Height,
		OriginalWidth:  normalized.OriginalWidth,
		OriginalHeight: normalized.OriginalHeight,
		Status:         tryon.SubjectPending,
		ImagePath:      savedPath,
		OriginalPath:   savedPath,
	}
	session.Store.SetSubject(subject)

	h.Processor.QueueJob(workers.RemovalJob{
		SessionID: session.ID,
		SubjectID: subject.ID,
		ImagePath: savedPath,
	})

	WriteJSON(w, http.StatusAccepted, subject)
}

// GetSubject reports the subject's removal status, dimensions, and error
// detail for the loading/error UI.
func (h *SessionHandler) GetSubject(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	subj := session.Store.Subject()
	if subj == nil {
		WriteAPIError(w, http.StatusNotFound, "no_subject", "no photo uploaded for this session")
		return
	}
	WriteJSON(w, http.StatusOK, subj)
}

// RetryRemoval requeues background removal after a failure. The user may
// instead keep using the unprocessed photo.
func (h *SessionHandler) RetryRemoval(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	subj := session.Store.Subject()
	if subj == nil {
		WriteAPIError(w, http.StatusNotFound, "no_subject", "no photo uploaded for this session")
		return
	}
	if subj.Status == tryon.SubjectRemoving {
		WriteAPIError(w, http.StatusConflict, "removal_in_progress", "background removal is already running")
		return
	}

	h.Processor.QueueJob(workers.RemovalJob{
		SessionID: session.ID,
		SubjectID: subj.ID,
		ImagePath: subj.OriginalPath,
	})
	WriteJSON(w, http.StatusAccepted, subj)
}

// DeleteSession drops the session and its in-memory outfit.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	h.Sessions.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*tryon.Session, bool) {
	id := chi.URLParam(r, "session_id")
	session, ok := h.Sessions.Get(id)
	if !ok {
		WriteAPIError(w, http.StatusNotFound, "session_not_found", "unknown session id")
		return nil, false
	}
	return session, true
}
