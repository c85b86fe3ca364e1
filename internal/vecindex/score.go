package vecindex

import "math"

// squaredL2 is the index's native distance. Square roots are monotone, so
// ranking never needs them.
func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// HeuristicScore maps a native distance onto (0, 1]: 1/(1+d). Identical
// vectors score 1.0; the scale is index-specific and not comparable with
// cosine similarity.
func HeuristicScore(distance float32) float64 {
	return 1.0 / (1.0 + float64(distance))
}

// CosineSimilarity computes the cosine of the angle between a and b.
// Returns 0 when either vector is zero or the dimensions disagree.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
