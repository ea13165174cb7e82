package layers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Parallel applies branch i to input i and concatenates the branch
// outputs in order. Placing the same layer value in more than one slot
// shares its weights across those branches; that is how a Siamese
// model is assembled.
type Parallel struct {
	branches []Layer
}

// NewParallel creates a parallel composition. It panics when called
// with no branches.
func NewParallel(branches ...Layer) *Parallel {
	if len(branches) == 0 {
		panic("layers: parallel composition needs at least one branch")
	}
	return &Parallel{branches: branches}
}

func (p *Parallel) Name() string { return "Parallel" }

func (p *Parallel) String() string { return Render(p) }

// Branches returns the branch layers in slot order.
func (p *Parallel) Branches() []Layer { return p.branches }

func (p *Parallel) sublayers() []Layer { return p.branches }

func (p *Parallel) Forward(xs ...*mat.Dense) ([]*mat.Dense, error) {
	if len(xs) != len(p.branches) {
		return nil, fmt.Errorf("parallel: got %d inputs for %d branches", len(xs), len(p.branches))
	}
	var out []*mat.Dense
	for i, branch := range p.branches {
		ys, err := branch.Forward(xs[i])
		if err != nil {
			return nil, fmt.Errorf("parallel: branch %d (%s): %w", i, branch.Name(), err)
		}
		out = append(out, ys...)
	}
	return out, nil
}
