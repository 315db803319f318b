package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/gallery/filestore"
)

// IdentitiesHandler handles identity enrollment and listing.
type IdentitiesHandler struct {
	gallery   *gallery.Gallery
	extractor extractor.Extractor
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(g *gallery.Gallery, e extractor.Extractor) *IdentitiesHandler {
	return &IdentitiesHandler{gallery: g, extractor: e}
}

// List returns the enrolled identity names.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"names":   h.gallery.Names(),
		"samples": h.gallery.Len(),
	})
}

// enrollResponse is the payload for a successful enrollment.
type enrollResponse struct {
	Name     string `json:"name"`
	Replaced bool   `json:"replaced"`
}

// Enroll registers a new identity from an uploaded face image. Form fields:
// "name" (required), "replace" ("true" drops existing samples for the name)
// and the image under "file".
func (h *IdentitiesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	frame, err := readUploadedImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := r.FormValue("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	replace := r.FormValue("replace") == "true"

	detection, err := extractor.DetectOne(r.Context(), h.extractor, frame)
	if errors.Is(err, extractor.ErrNoFaceDetected) {
		respondError(w, http.StatusUnprocessableEntity, "no face detected in the image")
		return
	}
	if err != nil {
		log.Printf("Enrollment extraction failed for %s: %v", sanitizeForLog(name), err)
		respondError(w, http.StatusBadGateway, "feature extraction failed")
		return
	}

	sample, err := filestore.CropSample(frame, detection.Region)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.gallery.Enroll(r.Context(), name, sample, detection.Embedding, replace); err != nil {
		switch {
		case errors.Is(err, gallery.ErrEmptyName), errors.Is(err, gallery.ErrInvalidEmbedding):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("Enrollment failed for %s: %v", sanitizeForLog(name), err)
			respondError(w, http.StatusInternalServerError, "failed to persist identity")
		}
		return
	}

	// Echo the stored key, not the raw form value, so clients can
	// correlate the response with /identities and the attendance table.
	respondJSON(w, http.StatusCreated, enrollResponse{Name: face.NormalizeName(name), Replaced: replace})
}
