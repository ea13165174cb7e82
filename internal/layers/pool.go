package layers

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Mean collapses a sequence to its average over time, turning a TxD
// input into a 1xD output.
type Mean struct{}

// NewMean creates a temporal mean-pooling layer.
func NewMean() *Mean { return &Mean{} }

func (m *Mean) Name() string { return "Mean" }

func (m *Mean) String() string { return "Mean" }

func (m *Mean) Forward(xs ...*mat.Dense) ([]*mat.Dense, error) {
	x, err := one("mean", xs)
	if err != nil {
		return nil, err
	}
	steps, width := x.Dims()
	if steps == 0 || width == 0 {
		return nil, fmt.Errorf("mean: empty sequence")
	}

	acc := make([]float64, width)
	for t := 0; t < steps; t++ {
		floats.Add(acc, x.RawRowView(t))
	}
	floats.Scale(1/float64(steps), acc)
	return []*mat.Dense{mat.NewDense(1, width, acc)}, nil
}
