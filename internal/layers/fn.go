package layers

import (
	"gonum.org/v1/gonum/mat"

	"github.com/tandemml/tandem/internal/vecops"
)

// Fn wraps an arbitrary matrix function as a layer under a display
// name, for pipeline stages that carry no weights.
type Fn struct {
	name string
	fn   func(*mat.Dense) (*mat.Dense, error)
}

// NewFn creates a function layer. It panics on an empty name or nil
// function.
func NewFn(name string, fn func(*mat.Dense) (*mat.Dense, error)) *Fn {
	if name == "" {
		panic("layers: function layer needs a name")
	}
	if fn == nil {
		panic("layers: nil function for layer " + name)
	}
	return &Fn{name: name, fn: fn}
}

func (f *Fn) Name() string { return f.name }

func (f *Fn) String() string { return f.name }

func (f *Fn) Forward(xs ...*mat.Dense) ([]*mat.Dense, error) {
	x, err := one(f.name, xs)
	if err != nil {
		return nil, err
	}
	out, err := f.fn(x)
	if err != nil {
		return nil, err
	}
	return []*mat.Dense{out}, nil
}

// Normalize returns the function layer that scales each row of its
// input to unit L2 norm. Zero rows pass through unchanged.
func Normalize() *Fn {
	return NewFn("Normalize", func(x *mat.Dense) (*mat.Dense, error) {
		rows, cols := x.Dims()
		out := mat.NewDense(rows, cols, nil)
		for i := 0; i < rows; i++ {
			out.SetRow(i, vecops.Normalize(x.RawRowView(i)))
		}
		return out, nil
	})
}
