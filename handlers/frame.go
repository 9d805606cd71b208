package handlers

import (
	"log"
	"net/http"

	"github.com/disintegration/imaging"
)

// GetFrame renders and serves the current composited frame as PNG. The
// render goes through the session's render loop so it coalesces with any
// in-flight render rather than running concurrently.
func (h *SessionHandler) GetFrame(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	session.Loop.Request()
	session.Loop.Wait()

	frame := session.Engine.Frame()
	if frame == nil {
		WriteAPIError(w, http.StatusServiceUnavailable, "no_frame", "no frame has been rendered yet")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := imaging.Encode(w, frame, imaging.PNG); err != nil {
		log.Printf("session %s: failed to stream frame: %v", session.ID, err)
	}
}
