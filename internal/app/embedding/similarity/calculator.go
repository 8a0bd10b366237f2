// Package similarity scores embedding vectors against each other
package similarity

import (
	"errors"
	"math"
)

// ErrDimensionMismatch is returned when two vectors have different lengths
var ErrDimensionMismatch = errors.New("vectors must have same dimension")

// Calculator scores a pair of vectors
type Calculator interface {
	Calculate(a, b []float32) (float32, error)
}

// Cosine computes cosine similarity in [-1, 1]
type Cosine struct{}

// NewCosine creates a cosine similarity calculator
func NewCosine() Cosine {
	return Cosine{}
}

// Calculate returns 0 for empty or zero vectors
func (Cosine) Calculate(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	if len(a) == 0 {
		return 0, nil
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}

// Euclidean computes the L2 distance between two vectors
type Euclidean struct{}

// NewEuclidean creates a Euclidean distance calculator
func NewEuclidean() Euclidean {
	return Euclidean{}
}

func (Euclidean) Calculate(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return float32(math.Sqrt(sum)), nil
}

// Clamp01 maps a cosine similarity onto the [0, 1] scale shared by every
// retrieval channel. Negative similarity counts as no match.
func Clamp01(sim float64) float64 {
	switch {
	case math.IsNaN(sim), sim <= 0:
		return 0
	case sim >= 1:
		return 1
	default:
		return sim
	}
}

// Normalize returns a unit-length copy of v; a zero vector is returned unchanged
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
