package layers

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestParallelWeightSharing verifies the Siamese property: the same
// encoder in both slots produces identical outputs for identical
// inputs, and a weight change is visible through both slots.
func TestParallelWeightSharing(t *testing.T) {
	t.Parallel()

	enc := testEncoder(20, 6, 4, 3)
	net := NewParallel(enc, enc)

	ids := IDMatrix([]int{4, 9, 2})
	out, err := net.Forward(ids, ids)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d outputs, want 2", len(out))
	}
	if !mat.Equal(out[0], out[1]) {
		t.Fatal("shared branches should agree on identical input")
	}

	// Mutating the single weight table must change both branches.
	enc.Params()[0].Value.Set(4, 0, 42)
	changed, err := net.Forward(ids, ids)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if mat.Equal(out[0], changed[0]) || mat.Equal(out[1], changed[1]) {
		t.Fatal("weight change should be visible in both branches")
	}
	if !mat.Equal(changed[0], changed[1]) {
		t.Fatal("branches should still agree after the shared change")
	}
}

func TestParallelIndependentBranches(t *testing.T) {
	t.Parallel()

	net := NewParallel(testEncoder(20, 6, 4, 1), testEncoder(20, 6, 4, 2))
	ids := IDMatrix([]int{4, 9, 2})

	out, err := net.Forward(ids, ids)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if mat.Equal(out[0], out[1]) {
		t.Fatal("independently seeded branches should disagree")
	}
}

func TestParallelArity(t *testing.T) {
	t.Parallel()

	enc := testEncoder(20, 6, 4, 1)
	net := NewParallel(enc, enc)

	if _, err := net.Forward(IDMatrix([]int{1})); err == nil {
		t.Fatal("expected arity error for one input into two branches")
	}
}

func TestParallelBranchErrorNamesBranch(t *testing.T) {
	t.Parallel()

	enc := testEncoder(5, 6, 4, 1)
	net := NewParallel(enc, enc)

	good := IDMatrix([]int{1, 2})
	bad := IDMatrix([]int{1, 99})
	_, err := net.Forward(good, bad)
	if err == nil {
		t.Fatal("expected out-of-vocabulary error")
	}
}
