// Package recognizer couples the gallery and the ledger: per detected face
// it runs the nearest-neighbor query, applies the acceptance threshold, and
// marks attendance on a positive identification.
package recognizer

import (
	"context"
	"time"

	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// DefaultThreshold is the default maximum embedding distance for accepting
// a match. It is a Euclidean distance in embedding space, not a probability.
const DefaultThreshold = 0.6

// Decision classifies the outcome of one detection.
type Decision string

const (
	// Accepted means the nearest identity was within the threshold.
	Accepted Decision = "accepted"
	// Rejected means no enrolled identity was close enough ("Unknown").
	Rejected Decision = "rejected"
	// NoGallery means recognition ran with zero enrolled identities.
	// This is a distinct state, not an error.
	NoGallery Decision = "no_gallery"
)

// Outcome is the per-detection result reported to the caller for rendering.
type Outcome struct {
	Region   face.Region `json:"region"`
	Decision Decision    `json:"decision"`
	Name     string      `json:"name,omitempty"`
	Distance float64     `json:"distance,omitempty"`
	// Marked is true when this recognition wrote today's attendance record.
	// False with Decision == Accepted means the identity was recognized
	// but already marked today; render quietly, no duplicate celebration.
	Marked bool `json:"marked"`
	// Err carries a ledger storage failure. The recognition itself still
	// counts; the caller decides whether to surface the failure.
	Err error `json:"-"`
}

// Confidence returns the display percentage for the outcome's distance.
func (o Outcome) Confidence() float64 {
	return face.Confidence(o.Distance)
}

// Coordinator runs the per-frame decision pipeline. It is stateless beyond
// the injected threshold and clock.
type Coordinator struct {
	gallery   *gallery.Gallery
	ledger    ledger.Ledger
	threshold float64

	// Now is the clock used for attendance timestamps. Overridable in tests.
	Now func() time.Time
}

// New creates a coordinator. A threshold of 0 or less falls back to
// DefaultThreshold.
func New(g *gallery.Gallery, l ledger.Ledger, threshold float64) *Coordinator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Coordinator{
		gallery:   g,
		ledger:    l,
		threshold: threshold,
		Now:       time.Now,
	}
}

// Threshold returns the acceptance threshold in use.
func (c *Coordinator) Threshold() float64 {
	return c.threshold
}

// Process classifies every detection in a frame. Detections are handled
// sequentially; a ledger failure on one detection does not stop the rest.
func (c *Coordinator) Process(ctx context.Context, detections []face.Detection) []Outcome {
	outcomes := make([]Outcome, 0, len(detections))
	for _, d := range detections {
		outcomes = append(outcomes, c.processOne(ctx, d))
	}
	return outcomes
}

func (c *Coordinator) processOne(ctx context.Context, d face.Detection) Outcome {
	match, ok := c.gallery.Nearest(ctx, d.Embedding)
	if !ok {
		return Outcome{Region: d.Region, Decision: NoGallery}
	}

	// Strict comparison: a query at exactly the threshold is rejected.
	if match.Distance >= c.threshold {
		return Outcome{Region: d.Region, Decision: Rejected, Distance: match.Distance}
	}

	outcome := Outcome{
		Region:   d.Region,
		Decision: Accepted,
		Name:     match.Name,
		Distance: match.Distance,
	}

	marked, err := c.ledger.Mark(ctx, match.Name, c.Now())
	outcome.Marked = marked
	outcome.Err = err
	return outcome
}
