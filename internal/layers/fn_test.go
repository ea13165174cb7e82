package layers

import (
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/tandemml/tandem/internal/vecops"
)

func TestNormalizeLayer(t *testing.T) {
	t.Parallel()

	x := mat.NewDense(3, 3, []float64{
		3, 4, 0,
		0, 0, 0,
		1, 1, 1,
	})
	out, err := Normalize().Forward(x)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}

	if n := vecops.Norm(out[0].RawRowView(0)); math.Abs(n-1) > 1e-12 {
		t.Fatalf("row 0 norm = %v, want 1", n)
	}
	if n := vecops.Norm(out[0].RawRowView(1)); n != 0 {
		t.Fatalf("zero row norm = %v, want 0", n)
	}
	if n := vecops.Norm(out[0].RawRowView(2)); math.Abs(n-1) > 1e-12 {
		t.Fatalf("row 2 norm = %v, want 1", n)
	}
}

func TestFnPropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := NewFn("Boom", func(x *mat.Dense) (*mat.Dense, error) {
		return nil, fmt.Errorf("no can do")
	})
	if _, err := boom.Forward(mat.NewDense(1, 1, nil)); err == nil {
		t.Fatal("expected wrapped function error")
	}
}

func TestFnDisplayName(t *testing.T) {
	t.Parallel()

	f := NewFn("Scale", func(x *mat.Dense) (*mat.Dense, error) { return x, nil })
	if f.Name() != "Scale" || f.String() != "Scale" {
		t.Fatalf("Name/String = %q/%q, want Scale/Scale", f.Name(), f.String())
	}
}
