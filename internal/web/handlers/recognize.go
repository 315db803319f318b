package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// RecognizeHandler runs the recognition pipeline over uploaded frames.
type RecognizeHandler struct {
	coordinator *recognizer.Coordinator
	extractor   extractor.Extractor
}

// NewRecognizeHandler creates a new recognize handler.
func NewRecognizeHandler(c *recognizer.Coordinator, e extractor.Extractor) *RecognizeHandler {
	return &RecognizeHandler{coordinator: c, extractor: e}
}

// outcomeResponse is one detection's result.
type outcomeResponse struct {
	Region     face.Region         `json:"region"`
	Decision   recognizer.Decision `json:"decision"`
	Name       string              `json:"name,omitempty"`
	Distance   float64             `json:"distance"`
	Confidence float64             `json:"confidence"`
	Marked     bool                `json:"marked"`
	Error      string              `json:"error,omitempty"`
}

// recognizeResponse is the payload for one processed frame.
type recognizeResponse struct {
	Faces    int               `json:"faces"`
	Outcomes []outcomeResponse `json:"outcomes"`
}

// Recognize accepts a frame under "file", detects faces, matches them
// against the gallery and marks attendance for accepted identities.
// A frame with no detectable face returns an empty outcome list.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	frame, err := readUploadedImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	detections, err := h.extractor.Detect(r.Context(), frame)
	if err != nil {
		log.Printf("Recognition extraction failed: %v", err)
		respondError(w, http.StatusBadGateway, "feature extraction failed")
		return
	}

	outcomes := h.coordinator.Process(r.Context(), detections)

	resp := recognizeResponse{
		Faces:    len(detections),
		Outcomes: make([]outcomeResponse, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		out := outcomeResponse{
			Region:     o.Region,
			Decision:   o.Decision,
			Name:       o.Name,
			Distance:   o.Distance,
			Confidence: o.Confidence(),
			Marked:     o.Marked,
		}
		if o.Err != nil {
			log.Printf("Ledger failure for %s: %v", sanitizeForLog(o.Name), o.Err)
			out.Error = "attendance could not be recorded"
		}
		resp.Outcomes = append(resp.Outcomes, out)
	}

	respondJSON(w, http.StatusOK, resp)
}
