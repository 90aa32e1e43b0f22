package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ayusman/mukha/internal/app"
	"github.com/ayusman/mukha/internal/gallery"
)

// Gallery is the view of the known faces the handler needs.
type Gallery interface {
	Labels() []string
	Skipped() []gallery.Diagnostic
	Reload() error
}

// Enroller captures and stores a new face.
type Enroller interface {
	EnrollFromCamera(label string) (string, error)
}

// FacesHandler handles HTTP requests for known faces.
type FacesHandler struct {
	gallery  Gallery
	enroller Enroller
}

// NewFacesHandler creates a FacesHandler. A nil enroller disables enrollment.
func NewFacesHandler(g Gallery, e Enroller) *FacesHandler {
	return &FacesHandler{gallery: g, enroller: e}
}

// ServeHTTP routes /api/faces and /api/faces/reload.
func (h *FacesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/faces")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.enroll(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "reload":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.reload(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type enrollRequest struct {
	Label string `json:"label"`
}

type enrollResponse struct {
	Label string `json:"label"`
	File  string `json:"file"`
}

type listFacesResponse struct {
	Labels  []string             `json:"labels"`
	Count   int                  `json:"count"`
	Skipped []gallery.Diagnostic `json:"skipped"`
}

func (h *FacesHandler) snapshot() listFacesResponse {
	labels := h.gallery.Labels()
	skipped := h.gallery.Skipped()
	if labels == nil {
		labels = []string{}
	}
	if skipped == nil {
		skipped = []gallery.Diagnostic{}
	}
	return listFacesResponse{Labels: labels, Count: len(labels), Skipped: skipped}
}

// list handles GET /api/faces.
func (h *FacesHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.snapshot())
}

// enroll handles POST /api/faces and saves the face currently in front of the camera.
func (h *FacesHandler) enroll(w http.ResponseWriter, r *http.Request) {
	if h.enroller == nil {
		writeError(w, http.StatusServiceUnavailable, "Camera not available")
		return
	}

	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	path, err := h.enroller.EnrollFromCamera(req.Label)
	if err != nil {
		status, message := enrollStatus(err)
		writeError(w, status, message)
		return
	}

	writeJSON(w, http.StatusCreated, enrollResponse{
		Label: req.Label,
		File:  filepath.Base(path),
	})
}

// enrollStatus maps an enrollment failure to an HTTP status and message.
func enrollStatus(err error) (int, string) {
	switch {
	case errors.Is(err, gallery.ErrInvalidLabel):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, app.ErrNoFace):
		return http.StatusUnprocessableEntity, "No face detected"
	case errors.Is(err, app.ErrNoFrame):
		return http.StatusServiceUnavailable, "No camera frame available"
	default:
		return http.StatusInternalServerError, "Failed to save face"
	}
}

// reload handles POST /api/faces/reload.
func (h *FacesHandler) reload(w http.ResponseWriter, r *http.Request) {
	if err := h.gallery.Reload(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload faces")
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot())
}
