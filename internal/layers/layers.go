// Package layers implements the building blocks of tandem's sequence
// encoders: an embedding lookup, an LSTM over timesteps, temporal mean
// pooling, function layers, and the serial/parallel combinators that
// compose them.
//
// Data flows between layers as *mat.Dense values with one row per
// timestep. Token ids enter a pipeline as a single-row (or single
// column) matrix of integral values; pooled outputs leave as a 1xD
// matrix. A layer may consume or produce more than one signal, so
// Forward is variadic; unary layers reject any other arity.
package layers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Layer is one stage of an encoder pipeline. Implementations validate
// their input shape and report mismatches as errors rather than
// panicking.
type Layer interface {
	fmt.Stringer

	// Name returns the layer kind without its parameters, e.g. "LSTM".
	Name() string

	// Forward runs the layer over its inputs.
	Forward(xs ...*mat.Dense) ([]*mat.Dense, error)
}

// Param is a named weight matrix exposed for persistence.
type Param struct {
	Name  string
	Value *mat.Dense
}

// Parametric is implemented by layers that carry weights.
type Parametric interface {
	Params() []Param
}

// IDMatrix lays out token ids as a 1xT matrix so they can enter a layer
// pipeline. It returns nil for an empty id list; callers that cannot
// tolerate empty input should check before building the matrix.
func IDMatrix(ids []int) *mat.Dense {
	if len(ids) == 0 {
		return nil
	}
	data := make([]float64, len(ids))
	for i, id := range ids {
		data[i] = float64(id)
	}
	return mat.NewDense(1, len(data), data)
}

// one extracts the single input of a unary layer.
func one(name string, xs []*mat.Dense) (*mat.Dense, error) {
	if len(xs) != 1 {
		return nil, fmt.Errorf("%s: got %d inputs, want 1", name, len(xs))
	}
	if xs[0] == nil {
		return nil, fmt.Errorf("%s: nil input", name)
	}
	return xs[0], nil
}
