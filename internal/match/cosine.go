package match

import "math"

// CosineSimilarity computes the cosine similarity between two vectors,
// normalized from [-1, 1] to [0, 1] so scores are monotonically comparable
// across calls (1 = identical direction, 0 = opposite). Invalid input
// (length mismatch, empty, or zero vectors) yields 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return (similarity + 1) / 2
}
