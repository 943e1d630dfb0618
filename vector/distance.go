package vector

import (
	"github.com/viant/vec/search"
)

// CosineSimilarity computes the cosine similarity between two vectors using
// float32 accumulation. Vectors of different length, and vectors where either
// side has zero magnitude, yield 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	ma := search.Float32s(a).Magnitude()
	mb := search.Float32s(b).Magnitude()
	if ma == 0 || mb == 0 {
		return 0
	}
	return Dot(a, b) / (ma * mb)
}

// Dot returns the float32 dot product of a and b over their common prefix.
func Dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float32
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}

// Normalize scales vec to unit length in place and returns it. A zero vector
// is returned unchanged.
func Normalize(vec []float32) []float32 {
	m := search.Float32s(vec).Magnitude()
	if m == 0 {
		return vec
	}
	for i := range vec {
		vec[i] /= m
	}
	return vec
}
