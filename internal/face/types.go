// Package face holds the shared domain types for face detection and
// recognition: bounding regions, detections, and embedding math.
package face

import "image"

// Region is a face bounding box [x1, y1, x2, y2] in pixel coordinates.
type Region struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width returns the region width in pixels.
func (r Region) Width() float64 {
	return r.X2 - r.X1
}

// Height returns the region height in pixels.
func (r Region) Height() float64 {
	return r.Y2 - r.Y1
}

// Pad grows the region by padding pixels on every side, clamped to the
// image bounds [0, width] x [0, height].
func (r Region) Pad(padding float64, width, height int) Region {
	out := Region{
		X1: r.X1 - padding,
		Y1: r.Y1 - padding,
		X2: r.X2 + padding,
		Y2: r.Y2 + padding,
	}
	if out.X1 < 0 {
		out.X1 = 0
	}
	if out.Y1 < 0 {
		out.Y1 = 0
	}
	if out.X2 > float64(width) {
		out.X2 = float64(width)
	}
	if out.Y2 > float64(height) {
		out.Y2 = float64(height)
	}
	return out
}

// Rect converts the region to an image.Rectangle, truncating coordinates.
func (r Region) Rect() image.Rectangle {
	return image.Rect(int(r.X1), int(r.Y1), int(r.X2), int(r.Y2))
}

// Detection is one detected face in a frame: where it is and what it
// looks like in embedding space.
type Detection struct {
	Region    Region    `json:"region"`
	Embedding []float32 `json:"embedding"`
}
