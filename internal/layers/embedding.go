package layers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Embedding maps token ids to rows of a learned vocab x dim table. The
// input is a 1xT or Tx1 matrix of integral token ids; the output is the
// TxD matrix of the corresponding table rows.
type Embedding struct {
	vocab  int
	dim    int
	weight *mat.Dense
}

// NewEmbedding creates an embedding table with reproducible seeded
// weights. It panics if either dimension is not positive.
func NewEmbedding(vocabSize, dim int, seed int64) *Embedding {
	if vocabSize <= 0 || dim <= 0 {
		panic("layers: embedding dimensions must be positive")
	}
	w := mat.NewDense(vocabSize, dim, nil)
	fillUniform(w, seed, uniformScale(vocabSize, dim))
	return &Embedding{vocab: vocabSize, dim: dim, weight: w}
}

func (e *Embedding) Name() string { return "Embedding" }

func (e *Embedding) String() string {
	return fmt.Sprintf("Embedding(%d, %d)", e.vocab, e.dim)
}

// VocabSize returns the number of rows in the table.
func (e *Embedding) VocabSize() int { return e.vocab }

// Dim returns the embedding width.
func (e *Embedding) Dim() int { return e.dim }

func (e *Embedding) Forward(xs ...*mat.Dense) ([]*mat.Dense, error) {
	x, err := one("embedding", xs)
	if err != nil {
		return nil, err
	}
	ids, err := tokenIDs(x)
	if err != nil {
		return nil, err
	}
	out, err := e.Lookup(ids)
	if err != nil {
		return nil, err
	}
	return []*mat.Dense{out}, nil
}

// Lookup gathers the table rows for ids into a len(ids) x dim matrix.
func (e *Embedding) Lookup(ids []int) (*mat.Dense, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("embedding: empty token sequence")
	}
	out := mat.NewDense(len(ids), e.dim, nil)
	for t, id := range ids {
		if id < 0 || id >= e.vocab {
			return nil, fmt.Errorf("embedding: token id %d outside vocabulary of size %d", id, e.vocab)
		}
		out.SetRow(t, e.weight.RawRowView(id))
	}
	return out, nil
}

func (e *Embedding) Params() []Param {
	return []Param{{Name: "weight", Value: e.weight}}
}

// tokenIDs flattens a 1xT or Tx1 matrix into integer ids, rejecting
// non-integral values.
func tokenIDs(x *mat.Dense) ([]int, error) {
	r, c := x.Dims()
	var vals []float64
	switch {
	case r == 1:
		vals = mat.Row(nil, 0, x)
	case c == 1:
		vals = mat.Col(nil, 0, x)
	default:
		return nil, fmt.Errorf("embedding: want a 1xT or Tx1 id matrix, got %dx%d", r, c)
	}
	ids := make([]int, len(vals))
	for i, v := range vals {
		id := int(v)
		if float64(id) != v {
			return nil, fmt.Errorf("embedding: non-integral token id %v at position %d", v, i)
		}
		ids[i] = id
	}
	return ids, nil
}
