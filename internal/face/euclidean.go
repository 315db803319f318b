package face

import "math"

// EuclideanDistance computes the L2 distance between two embeddings.
// Returns +Inf for mismatched or empty vectors so that invalid input
// can never win a nearest-neighbor comparison.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}

	return math.Sqrt(sum)
}

// Confidence converts an embedding distance to a display percentage.
// This is a heuristic scaling, not a calibrated probability; it goes
// negative for distances above 1.
func Confidence(distance float64) float64 {
	return (1 - distance) * 100
}
