package layers

import (
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestEmbeddingLookup(t *testing.T) {
	t.Parallel()

	emb := NewEmbedding(10, 4, 1)
	table := emb.Params()[0].Value

	out, err := emb.Lookup([]int{3, 0, 3})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	r, c := out.Dims()
	if r != 3 || c != 4 {
		t.Fatalf("Lookup dims = %dx%d, want 3x4", r, c)
	}
	for _, tc := range []struct{ row, id int }{{0, 3}, {1, 0}, {2, 3}} {
		want := table.RawRowView(tc.id)
		got := out.RawRowView(tc.row)
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("row %d col %d = %v, want table row %d value %v", tc.row, j, got[j], tc.id, want[j])
			}
		}
	}
}

func TestEmbeddingRejectsBadIDs(t *testing.T) {
	t.Parallel()

	emb := NewEmbedding(5, 2, 1)

	if _, err := emb.Lookup([]int{4, 5}); err == nil {
		t.Fatal("expected error for id == vocab size")
	} else if !strings.Contains(err.Error(), "5") {
		t.Fatalf("error should name the offending id: %v", err)
	}
	if _, err := emb.Lookup([]int{-1}); err == nil {
		t.Fatal("expected error for negative id")
	}
	if _, err := emb.Lookup(nil); err == nil {
		t.Fatal("expected error for empty sequence")
	}
}

func TestEmbeddingForwardShapes(t *testing.T) {
	t.Parallel()

	emb := NewEmbedding(6, 3, 1)

	row := mat.NewDense(1, 2, []float64{1, 4})
	col := mat.NewDense(2, 1, []float64{1, 4})

	fromRow, err := emb.Forward(row)
	if err != nil {
		t.Fatalf("Forward(1xT): %v", err)
	}
	fromCol, err := emb.Forward(col)
	if err != nil {
		t.Fatalf("Forward(Tx1): %v", err)
	}
	if !mat.Equal(fromRow[0], fromCol[0]) {
		t.Fatal("row and column id layouts should produce identical output")
	}

	if _, err := emb.Forward(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err == nil {
		t.Fatal("expected error for a 2x2 id matrix")
	}
	if _, err := emb.Forward(mat.NewDense(1, 1, []float64{1.5})); err == nil {
		t.Fatal("expected error for a non-integral id")
	}
	if _, err := emb.Forward(row, row); err == nil {
		t.Fatal("expected error for wrong input arity")
	}
}

func TestEmbeddingSeededInit(t *testing.T) {
	t.Parallel()

	a := NewEmbedding(8, 4, 7)
	b := NewEmbedding(8, 4, 7)
	c := NewEmbedding(8, 4, 8)

	if !mat.Equal(a.Params()[0].Value, b.Params()[0].Value) {
		t.Fatal("same seed should produce identical tables")
	}
	if mat.Equal(a.Params()[0].Value, c.Params()[0].Value) {
		t.Fatal("different seeds should produce different tables")
	}
}
