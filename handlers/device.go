package handlers

import (
	"net/http"

	"github.com/camden-git/tryonbackend/device"
)

// DeviceHandler exposes the detected capability tier so embedders can align
// their own UI density with the backend's rendering strategy.
type DeviceHandler struct {
	Caps device.Capabilities
}

func (h *DeviceHandler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Caps)
}
