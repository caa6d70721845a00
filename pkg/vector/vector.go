// Package vector provides the fixed-width response vector type and the
// similarity primitives built on it (cosine similarity, L2 normalization).
package vector

import (
	"math"
)

// Dim is the dimensionality of every response vector.
const Dim = 25

// Vector is a fixed-width questionnaire response vector. The width is part of
// the type so a partially-built slice can never reach the similarity code.
type Vector [Dim]float32

// Slice returns the vector as a []float32 (e.g. for database drivers).
func (v Vector) Slice() []float32 {
	out := make([]float32, Dim)
	copy(out, v[:])
	return out
}

// FromSlice builds a Vector from a slice. Shorter inputs leave trailing zeros;
// longer inputs are truncated.
func FromSlice(values []float32) Vector {
	var v Vector
	copy(v[:], values)
	return v
}

// Magnitude returns the L2 norm of v. Accumulation is done in float64 to keep
// the result reproducible across call sites.
func (v Vector) Magnitude() float64 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	return math.Sqrt(sumSquares)
}

// Cosine returns the cosine similarity of a and b in [-1, 1]. A zero-magnitude
// operand yields 0 rather than a division by zero.
func Cosine(a, b Vector) float64 {
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

// NormalizeL2 scales v in place to unit length. A zero vector is left as is.
func NormalizeL2(v *Vector) {
	mag := v.Magnitude()
	if mag == 0 {
		return
	}

	for i := range v {
		v[i] = float32(float64(v[i]) / mag)
	}
}
