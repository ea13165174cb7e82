// Package model assembles the layer combinators into a Siamese sentence
// encoder and handles its persistence in ECF containers.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/tandemml/tandem/internal/layers"
	"github.com/tandemml/tandem/internal/vecops"
)

// Arch identifies the only architecture this package builds. It is
// stamped into saved containers and checked again on load.
const Arch = "siamese_lstm"

// ErrEmptyInput is returned when a token sequence has no elements.
var ErrEmptyInput = errors.New("empty token sequence")

// Siamese wraps one sequence encoder applied through two parallel
// branches. Both branches hold the same encoder value, so there is a
// single set of weights; updating a parameter is visible on both sides.
type Siamese struct {
	cfg     Config
	encoder *layers.Serial
	net     *layers.Parallel
}

// New builds a Siamese encoder for the given config. Weights are
// initialised deterministically from cfg.Seed.
func New(cfg Config) (*Siamese, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("model config: %w", err)
	}
	encoder := layers.NewSerial(
		layers.NewEmbedding(cfg.VocabSize, cfg.EmbedDim, cfg.Seed),
		layers.NewLSTM(cfg.EmbedDim, cfg.HiddenDim, cfg.Seed),
		layers.NewMean(),
		layers.Normalize(),
	)
	return &Siamese{
		cfg:     cfg,
		encoder: encoder,
		net:     layers.NewParallel(encoder, encoder),
	}, nil
}

// Config returns the effective configuration, defaults applied.
func (s *Siamese) Config() Config { return s.cfg }

// Encode maps a token id sequence to a unit-length embedding vector.
func (s *Siamese) Encode(ids []int) ([]float64, error) {
	x := layers.IDMatrix(ids)
	if x == nil {
		return nil, fmt.Errorf("encode: %w", ErrEmptyInput)
	}
	outs, err := s.encoder.Forward(x)
	if err != nil {
		return nil, err
	}
	return rowVec(outs[0]), nil
}

// EncodePair runs both sequences through the two weight-sharing
// branches in one forward pass.
func (s *Siamese) EncodePair(a, b []int) ([]float64, []float64, error) {
	xa, xb := layers.IDMatrix(a), layers.IDMatrix(b)
	if xa == nil || xb == nil {
		return nil, nil, fmt.Errorf("encode pair: %w", ErrEmptyInput)
	}
	outs, err := s.net.Forward(xa, xb)
	if err != nil {
		return nil, nil, err
	}
	return rowVec(outs[0]), rowVec(outs[1]), nil
}

// Similarity returns the cosine similarity of the two encoded
// sequences. Encodings are unit vectors, so the result is their dot
// product and lies in [-1, 1].
func (s *Siamese) Similarity(a, b []int) (float64, error) {
	va, vb, err := s.EncodePair(a, b)
	if err != nil {
		return 0, err
	}
	return vecops.Cosine(va, vb)
}

// Describe renders the layer tree of the full two-branch network.
func (s *Siamese) Describe() string { return layers.Render(s.net) }

// Params returns the shared parameter set once, not per branch.
func (s *Siamese) Params() []layers.Param { return s.encoder.Params() }

// Fingerprint is a short stable digest of the architecture, dimensions
// and seed. Two models with equal fingerprints produce identical
// encodings. Used as the cache namespace key.
func (s *Siamese) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%d\x00%d\x00%d",
		Arch, s.cfg.VocabSize, s.cfg.EmbedDim, s.cfg.HiddenDim, s.cfg.Seed)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func rowVec(m *mat.Dense) []float64 {
	_, c := m.Dims()
	out := make([]float64, c)
	copy(out, m.RawRowView(0))
	return out
}
