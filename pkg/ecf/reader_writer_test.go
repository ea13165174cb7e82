package ecf

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestContainer(t *testing.T, path string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	w, err := NewWriter(f)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	info, err := EncodeModelInfo(&ModelInfo{
		Arch:      "siamese_lstm",
		CreatedAt: time.Unix(1700000000, 0).UTC(),
		VocabSize: 4,
		EmbedDim:  3,
		HiddenDim: 2,
		Seed:      7,
	})
	if err != nil {
		t.Fatalf("encode model info: %v", err)
	}
	if err := w.WriteSection(SectionModelInfo, ModelInfoVersion, info); err != nil {
		t.Fatalf("write model info: %v", err)
	}
	if err := w.WriteSection(SectionVocab, 1, []byte(`{"tokens":["<pad>","<unk>","a","b"]}`)); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	if err := w.WriteTensors([]Tensor{
		{Name: "embedding.weight", Rows: 4, Cols: 3, Data: []float64{
			0, 1, 2,
			3, 4, 5,
			6, 7, 8,
			9, 10, 11,
		}},
		{Name: "lstm.bias", Rows: 8, Cols: 1, Data: []float64{1, 2, 3, 4, 5, 6, 7, 8}},
	}); err != nil {
		t.Fatalf("write tensors: %v", err)
	}
	if err := w.Finalise(); err != nil {
		t.Fatalf("finalise: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

// TestRoundTrip writes a full container and reads it back through the
// mmap path, checking header, sections, and tensor payloads.
func TestRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model.ecf")
	writeTestContainer(t, path)

	ef, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		if cerr := ef.Close(); cerr != nil {
			t.Fatalf("close: %v", cerr)
		}
	}()

	if ef.Header == nil || ef.Header.SectionCount != 4 {
		t.Fatalf("expected 4 sections, header = %+v", ef.Header)
	}

	mi, err := ef.ModelInfo()
	if err != nil {
		t.Fatalf("model info: %v", err)
	}
	if mi.Arch != "siamese_lstm" || mi.VocabSize != 4 || mi.Seed != 7 {
		t.Fatalf("model info mismatch: %+v", mi)
	}

	vocabSec := ef.Section(SectionVocab)
	if vocabSec == nil {
		t.Fatal("missing vocab section")
	}
	if !bytes.Contains(ef.SectionData(vocabSec), []byte("<unk>")) {
		t.Fatalf("vocab payload mismatch: %q", ef.SectionData(vocabSec))
	}

	if len(ef.Tensors()) != 2 {
		t.Fatalf("tensor count = %d, want 2", len(ef.Tensors()))
	}
	for _, ti := range ef.Tensors() {
		if ti.DataOff%tensorAlign != 0 {
			t.Fatalf("tensor %q offset %d not %d-byte aligned", ti.Name, ti.DataOff, tensorAlign)
		}
	}

	ti, data, err := ef.TensorFloat64("embedding.weight")
	if err != nil {
		t.Fatalf("tensor: %v", err)
	}
	if ti.Rows != 4 || ti.Cols != 3 {
		t.Fatalf("tensor dims = %dx%d, want 4x3", ti.Rows, ti.Cols)
	}
	for i, want := range []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11} {
		if data[i] != want {
			t.Fatalf("data[%d] = %v, want %v", i, data[i], want)
		}
	}

	if _, _, err := ef.TensorFloat64("nope"); !errors.Is(err, ErrTensorNotFound) {
		t.Fatalf("lookup of missing tensor = %v, want ErrTensorNotFound", err)
	}
}

func TestOpenReaderAt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model.ecf")
	writeTestContainer(t, path)

	rf, err := os.Open(path)
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	defer func() { _ = rf.Close() }()
	st, err := rf.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	ef, err := OpenReaderAt(rf, st.Size())
	if err != nil {
		t.Fatalf("open readerat: %v", err)
	}
	defer func() { _ = ef.Close() }()

	if ef.mmapped {
		t.Fatal("OpenReaderAt should not mmap")
	}
	if _, _, err := ef.TensorFloat64("lstm.bias"); err != nil {
		t.Fatalf("tensor: %v", err)
	}
}

func TestOpenRejectsCorruptFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "model.ecf")
	writeTestContainer(t, path)
	good, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	badMagic := append([]byte(nil), good...)
	copy(badMagic[0:4], "NOPE")
	p := filepath.Join(dir, "magic.ecf")
	if err := os.WriteFile(p, badMagic, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(p); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("bad magic = %v, want ErrBadMagic", err)
	}

	badMajor := append([]byte(nil), good...)
	badMajor[4] = 0xff
	p = filepath.Join(dir, "major.ecf")
	if err := os.WriteFile(p, badMajor, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(p); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("bad major = %v, want ErrUnsupportedVersion", err)
	}

	p = filepath.Join(dir, "short.ecf")
	if err := os.WriteFile(p, good[:len(good)/2], 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(p); err == nil {
		t.Fatal("expected error for truncated file")
	}
}

func TestWriterRejectsMisuse(t *testing.T) {
	t.Parallel()

	f, err := os.Create(filepath.Join(t.TempDir(), "model.ecf"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer func() { _ = f.Close() }()

	w, err := NewWriter(f)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.WriteSection(SectionVocab, 1, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.WriteSection(SectionVocab, 1, []byte("y")); err == nil {
		t.Fatal("expected duplicate section error")
	}
	if err := w.WriteTensors(nil); err == nil {
		t.Fatal("expected error for no tensors")
	}
	if err := w.WriteTensors([]Tensor{{Name: "t", Rows: 2, Cols: 2, Data: []float64{1}}}); err == nil {
		t.Fatal("expected error for mismatched data length")
	}
	if err := w.WriteTensors([]Tensor{
		{Name: "t", Rows: 1, Cols: 1, Data: []float64{1}},
		{Name: "t", Rows: 1, Cols: 1, Data: []float64{2}},
	}); err == nil {
		t.Fatal("expected error for duplicate tensor name")
	}
}

func TestHeaderSectionEncoding(t *testing.T) {
	t.Parallel()

	h := Header{
		Major:            0x1122,
		Minor:            0x3344,
		HeaderSize:       headerSize,
		SectionCount:     3,
		SectionDirOffset: 0x0102030405060708,
		FileSize:         0x1112131415161718,
		Flags:            0x2122232425262728,
	}
	copy(h.Magic[:], Magic)

	var raw [headerSize]byte
	if !encodeHeader(raw[:], h) {
		t.Fatal("encode header failed")
	}
	if raw[4] != 0x22 || raw[5] != 0x11 {
		t.Fatalf("major is not little-endian: %x", raw[4:6])
	}
	back, ok := decodeHeader(raw[:])
	if !ok || back != h {
		t.Fatalf("header round trip mismatch: %+v vs %+v", back, h)
	}

	s := Section{Type: 0x11223344, Version: 5, Offset: 0x0102030405060708, Size: 64}
	var secRaw [sectionSize]byte
	if !encodeSection(secRaw[:], s) {
		t.Fatal("encode section failed")
	}
	if secRaw[0] != 0x44 || secRaw[3] != 0x11 {
		t.Fatalf("section type is not little-endian: %x", secRaw[0:4])
	}
	backSec, ok := decodeSection(secRaw[:])
	if !ok || backSec != s {
		t.Fatalf("section round trip mismatch: %+v vs %+v", backSec, s)
	}
}

func TestModelInfoValidation(t *testing.T) {
	t.Parallel()

	if _, err := EncodeModelInfo(nil); err == nil {
		t.Fatal("expected error for nil model info")
	}
	if _, err := EncodeModelInfo(&ModelInfo{}); err == nil {
		t.Fatal("expected error for missing arch")
	}
	if _, err := ParseModelInfo([]byte(`{"format":"other","format_version":1}`)); err == nil {
		t.Fatal("expected error for foreign format")
	}
	if _, err := ParseModelInfo([]byte(`{"format":"ecf","format_version":99}`)); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatal("expected unsupported version error")
	}
	if _, err := ParseModelInfo([]byte(`{`)); err == nil {
		t.Fatal("expected decode error")
	}
}
