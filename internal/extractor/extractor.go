// Package extractor defines the face feature extraction capability and its
// backends. The core recognition pipeline is backend-agnostic: anything that
// can turn an image into bounding regions plus fixed-dimension embeddings
// can be plugged in.
package extractor

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-attendance/internal/face"
)

// ErrNoFaceDetected is returned by helpers that require at least one face.
// A frame with no detectable face is a normal condition, not a pipeline
// failure; callers that can proceed should skip instead of aborting.
var ErrNoFaceDetected = errors.New("no face detected")

// Extractor detects faces in an image and computes their embeddings.
type Extractor interface {
	// Detect returns all faces found in the image data, with their
	// bounding regions and embedding vectors. An empty slice means no
	// face was found; it is not an error.
	Detect(ctx context.Context, imageData []byte) ([]face.Detection, error)

	// Dim returns the embedding dimension this backend produces.
	Dim() int
}

// DetectOne runs Detect and returns the first face, or ErrNoFaceDetected
// when the image contains none. Enrollment uses this: one sample, one face.
func DetectOne(ctx context.Context, e Extractor, imageData []byte) (face.Detection, error) {
	detections, err := e.Detect(ctx, imageData)
	if err != nil {
		return face.Detection{}, err
	}
	if len(detections) == 0 {
		return face.Detection{}, ErrNoFaceDetected
	}
	return detections[0], nil
}
