package dedup

import "math"

// Cosine returns dot(a,b) / (|a| * |b|).
//
// It is 0 when either vector is empty, when the lengths differ, or when either
// norm is exactly zero: a zero vector is maximally dissimilar and never matches.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
