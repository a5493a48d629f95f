package knowledge

import "math"

// Distance is a cosine distance (1 - cosine similarity) in [0, 2].
// Smaller is more similar. Every score threshold in the engine is a Distance
// and acts as an upper bound.
type Distance float64

// NoDistance marks hits that were not produced by a vector comparison.
const NoDistance Distance = -1

// Within reports whether d passes the threshold.
func (d Distance) Within(threshold Distance) bool {
	return d <= threshold
}

// CosineDistance returns 1 - cos(a, b). Vectors of different length or zero
// norm are treated as orthogonal.
func CosineDistance(a, b []float32) Distance {
	if len(a) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return Distance(1 - cos)
}
