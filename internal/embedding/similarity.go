package embedding

import "math"

// cosineEpsilon avoids division by zero for degenerate vectors.
const cosineEpsilon = 1e-9

// Cosine returns the cosine similarity dot(a,b) / (|a|*|b| + eps).
// When the vectors differ in length the comparison uses the shorter prefix;
// embeddings from one model share a dimensionality, so this is defensive only.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + cosineEpsilon)
}
