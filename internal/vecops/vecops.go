// Package vecops provides the small set of float64 vector utilities the
// encoder needs. The heavy lifting is gonum's; these wrappers add the
// zero-norm guards and length checks callers rely on.
package vecops

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Norm returns the Euclidean (L2) norm of v.
func Norm(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, 2)
}

// Normalize returns a copy of v scaled to unit L2 norm. A zero-norm
// input is returned as an unscaled copy rather than NaN.
func Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	NormalizeInPlace(out)
	return out
}

// NormalizeInPlace scales v to unit L2 norm in place. Zero-norm inputs
// are left untouched.
func NormalizeInPlace(v []float64) {
	n := Norm(v)
	if n == 0 {
		return
	}
	floats.Scale(1/n, v)
}

// Cosine returns the cosine similarity of a and b. If either vector has
// zero norm the similarity is 0.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vecops: length mismatch %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vecops: empty vectors")
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return floats.Dot(a, b) / (na * nb), nil
}
