// Package similarity holds the pure vector math of the engine: cosine
// similarity and threshold based clustering. Nothing here performs I/O.
package similarity

import "math"

// Cosine returns the cosine similarity of a and b in [-1, 1].
//
// Vectors of different length are not comparable and yield 0. All vectors are
// expected to come from one embedding model, so a mismatch means a mixed corpus;
// escalate to an error here if several models are ever used side by side.
// A zero vector also yields 0. Inputs are never modified.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
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
