package api

import (
	"encoding/json"
	"net/http"
)

// Controller exposes the recognition switch.
type Controller interface {
	IsEnabled() bool
	SetEnabled(enabled bool)
	Running() bool
}

// StatusHandler reports and toggles recognition.
type StatusHandler struct {
	ctl Controller
}

// NewStatusHandler creates a StatusHandler for ctl.
func NewStatusHandler(ctl Controller) *StatusHandler {
	return &StatusHandler{ctl: ctl}
}

type statusResponse struct {
	Enabled bool `json:"enabled"`
	Running bool `json:"running"`
}

type statusRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		h.ctl.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Enabled: h.ctl.IsEnabled(),
		Running: h.ctl.Running(),
	})
}
