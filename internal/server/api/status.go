package api

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
)

// StatusHandler serves /api/status.
type StatusHandler struct {
	app *app.App
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(a *app.App) *StatusHandler {
	return &StatusHandler{app: a}
}

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// ServeHTTP returns the status on GET and toggles gesture control on PUT.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.app.Status(r.Context()))
	case http.MethodPut:
		var req toggleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "Enabled is required")
			return
		}
		h.app.SetEnabled(*req.Enabled)
		writeJSON(w, http.StatusOK, h.app.Status(r.Context()))
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// DispatchHandler serves POST /api/dispatch, which injects a classified
// gesture as if it came from the camera.
type DispatchHandler struct {
	app *app.App
}

// NewDispatchHandler creates a DispatchHandler.
func NewDispatchHandler(a *app.App) *DispatchHandler {
	return &DispatchHandler{app: a}
}

type dispatchRequest struct {
	Label      gesture.Label `json:"label"`
	Confidence float64       `json:"confidence"`
}

func (h *DispatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if math.IsNaN(req.Confidence) || req.Confidence < 0 || req.Confidence > 1 {
		writeError(w, http.StatusBadRequest, "Confidence must be within [0,1]")
		return
	}

	d := h.app.Process(r.Context(), gesture.Event{
		Label:      req.Label,
		Confidence: req.Confidence,
		Timestamp:  time.Now(),
	})
	writeJSON(w, http.StatusOK, d)
}
