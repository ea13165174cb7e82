package layers

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LSTM runs a single-layer LSTM over the input sequence and emits the
// hidden state at every timestep, so a TxD input becomes a TxH output.
//
// The four gates are stored fused as row blocks of the weight matrices
// in the order input, forget, cell, output: wx is 4HxD, wh is 4HxH and
// the bias is 4Hx1. Hidden and cell state start at zero on every
// Forward call; the layer keeps no state between calls.
type LSTM struct {
	in     int
	hidden int
	wx     *mat.Dense
	wh     *mat.Dense
	bias   *mat.Dense
}

// NewLSTM creates an LSTM over inputs of width inDim producing hidden
// states of width hiddenDim, with reproducible seeded weights and zero
// bias. It panics if either dimension is not positive.
func NewLSTM(inDim, hiddenDim int, seed int64) *LSTM {
	if inDim <= 0 || hiddenDim <= 0 {
		panic("layers: lstm dimensions must be positive")
	}
	l := &LSTM{
		in:     inDim,
		hidden: hiddenDim,
		wx:     mat.NewDense(4*hiddenDim, inDim, nil),
		wh:     mat.NewDense(4*hiddenDim, hiddenDim, nil),
		bias:   mat.NewDense(4*hiddenDim, 1, nil),
	}
	fillUniform(l.wx, seed+1, uniformScale(inDim, hiddenDim))
	fillUniform(l.wh, seed+2, uniformScale(hiddenDim, hiddenDim))
	return l
}

func (l *LSTM) Name() string { return "LSTM" }

func (l *LSTM) String() string { return fmt.Sprintf("LSTM(%d)", l.hidden) }

// InDim returns the expected input width.
func (l *LSTM) InDim() int { return l.in }

// HiddenDim returns the hidden state width.
func (l *LSTM) HiddenDim() int { return l.hidden }

func (l *LSTM) Forward(xs ...*mat.Dense) ([]*mat.Dense, error) {
	x, err := one("lstm", xs)
	if err != nil {
		return nil, err
	}
	steps, width := x.Dims()
	if width != l.in {
		return nil, fmt.Errorf("lstm: input width %d, layer expects %d", width, l.in)
	}
	if steps == 0 {
		return nil, fmt.Errorf("lstm: empty sequence")
	}

	h := l.hidden
	out := mat.NewDense(steps, h, nil)
	hidden := mat.NewVecDense(h, nil)
	cell := make([]float64, h)
	zx := mat.NewVecDense(4*h, nil)
	zh := mat.NewVecDense(4*h, nil)

	for t := 0; t < steps; t++ {
		zx.MulVec(l.wx, x.RowView(t))
		zh.MulVec(l.wh, hidden)
		for i := 0; i < h; i++ {
			in := sigmoid(l.gate(zx, zh, 0, i))
			forget := sigmoid(l.gate(zx, zh, 1, i))
			cand := math.Tanh(l.gate(zx, zh, 2, i))
			outg := sigmoid(l.gate(zx, zh, 3, i))

			cell[i] = forget*cell[i] + in*cand
			out.Set(t, i, outg*math.Tanh(cell[i]))
		}
		hidden.CopyVec(out.RowView(t))
	}
	return []*mat.Dense{out}, nil
}

// gate sums the input, recurrent and bias contributions for unit i of
// gate block g.
func (l *LSTM) gate(zx, zh *mat.VecDense, g, i int) float64 {
	row := g*l.hidden + i
	return zx.AtVec(row) + zh.AtVec(row) + l.bias.At(row, 0)
}

func (l *LSTM) Params() []Param {
	return []Param{
		{Name: "wx", Value: l.wx},
		{Name: "wh", Value: l.wh},
		{Name: "bias", Value: l.bias},
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
