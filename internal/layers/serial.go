package layers

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Serial composes layers in order, feeding each layer's outputs to the
// next.
type Serial struct {
	layers []Layer
}

// NewSerial creates a sequential composition. It panics when called
// with no layers.
func NewSerial(layers ...Layer) *Serial {
	if len(layers) == 0 {
		panic("layers: serial composition needs at least one layer")
	}
	return &Serial{layers: layers}
}

func (s *Serial) Name() string { return "Serial" }

func (s *Serial) String() string { return Render(s) }

// Layers returns the composed layers in order.
func (s *Serial) Layers() []Layer { return s.layers }

func (s *Serial) sublayers() []Layer { return s.layers }

func (s *Serial) Forward(xs ...*mat.Dense) ([]*mat.Dense, error) {
	signals := xs
	for i, l := range s.layers {
		next, err := l.Forward(signals...)
		if err != nil {
			return nil, fmt.Errorf("serial: layer %d (%s): %w", i, l.Name(), err)
		}
		signals = next
	}
	return signals, nil
}

// Params enumerates the weights of every parametric sublayer. Names are
// prefixed with the lowercased layer kind, and with an ordinal when the
// same kind appears more than once, e.g. "embedding.weight", "lstm.wx".
func (s *Serial) Params() []Param {
	counts := map[string]int{}
	for _, l := range s.layers {
		if _, ok := l.(Parametric); ok {
			counts[strings.ToLower(l.Name())]++
		}
	}

	seen := map[string]int{}
	var out []Param
	for _, l := range s.layers {
		p, ok := l.(Parametric)
		if !ok {
			continue
		}
		prefix := strings.ToLower(l.Name())
		seen[prefix]++
		if counts[prefix] > 1 {
			prefix = fmt.Sprintf("%s%d", prefix, seen[prefix])
		}
		for _, param := range p.Params() {
			out = append(out, Param{Name: prefix + "." + param.Name, Value: param.Value})
		}
	}
	return out
}
