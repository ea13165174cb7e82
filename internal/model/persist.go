package model

import (
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"gonum.org/v1/gonum/mat"

	"github.com/tandemml/tandem/internal/vocab"
	"github.com/tandemml/tandem/pkg/ecf"
)

const vocabSectionVersion = 1

// Save writes the model into an ECF container at path. The vocabulary
// is optional; when present it is stored alongside the weights so the
// file is self-contained.
func (s *Siamese) Save(path string, voc *vocab.Vocab) error {
	if voc != nil && voc.Size() != s.cfg.VocabSize {
		return fmt.Errorf("save: vocab size %d does not match model vocab size %d", voc.Size(), s.cfg.VocabSize)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	defer func() { _ = f.Close() }()

	w, err := ecf.NewWriter(f)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	info, err := ecf.EncodeModelInfo(&ecf.ModelInfo{
		Arch:        Arch,
		CreatedAt:   time.Now().UTC(),
		VocabSize:   s.cfg.VocabSize,
		EmbedDim:    s.cfg.EmbedDim,
		HiddenDim:   s.cfg.HiddenDim,
		Seed:        s.cfg.Seed,
		Fingerprint: s.Fingerprint(),
	})
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := w.WriteSection(ecf.SectionModelInfo, ecf.ModelInfoVersion, info); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	if voc != nil {
		data, err := voc.MarshalJSON()
		if err != nil {
			return fmt.Errorf("save: %w", err)
		}
		if err := w.WriteSection(ecf.SectionVocab, vocabSectionVersion, data); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}

	tensors := make([]ecf.Tensor, 0, len(s.Params()))
	for _, p := range s.Params() {
		r, c := p.Value.Dims()
		data := make([]float64, 0, r*c)
		for i := 0; i < r; i++ {
			data = append(data, p.Value.RawRowView(i)...)
		}
		tensors = append(tensors, ecf.Tensor{Name: p.Name, Rows: r, Cols: c, Data: data})
	}
	if err := w.WriteTensors(tensors); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	if err := w.Finalise(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Load reads an ECF container written by Save and reconstructs the
// model. The returned vocabulary is nil when the container carries
// none.
func Load(path string) (*Siamese, *vocab.Vocab, error) {
	ef, err := ecf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	defer func() { _ = ef.Close() }()

	mi, err := ef.ModelInfo()
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	if mi.Arch != Arch {
		return nil, nil, fmt.Errorf("load %s: unsupported arch %q", path, mi.Arch)
	}

	m, err := New(Config{
		VocabSize: mi.VocabSize,
		EmbedDim:  mi.EmbedDim,
		HiddenDim: mi.HiddenDim,
		Seed:      mi.Seed,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	if mi.Fingerprint != "" && mi.Fingerprint != m.Fingerprint() {
		return nil, nil, fmt.Errorf("load %s: fingerprint mismatch (file %s, computed %s)", path, mi.Fingerprint, m.Fingerprint())
	}

	for _, p := range m.Params() {
		ti, data, err := ef.TensorFloat64(p.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: tensor %s: %w", path, p.Name, err)
		}
		r, c := p.Value.Dims()
		if ti.Rows != r || ti.Cols != c {
			return nil, nil, fmt.Errorf("load %s: tensor %s: shape %dx%d, want %dx%d", path, p.Name, ti.Rows, ti.Cols, r, c)
		}
		p.Value.Copy(mat.NewDense(ti.Rows, ti.Cols, data))
	}

	var voc *vocab.Vocab
	if sec := ef.Section(ecf.SectionVocab); sec != nil {
		voc = new(vocab.Vocab)
		if err := json.Unmarshal(ef.SectionData(sec), voc); err != nil {
			return nil, nil, fmt.Errorf("load %s: vocab: %w", path, err)
		}
		if voc.Size() != mi.VocabSize {
			return nil, nil, fmt.Errorf("load %s: vocab size %d does not match model vocab size %d", path, voc.Size(), mi.VocabSize)
		}
	}
	return m, voc, nil
}
