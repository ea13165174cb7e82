package ecf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"
)

// Tensor is one weight matrix handed to WriteTensors, row-major.
type Tensor struct {
	Name string
	Rows int
	Cols int
	Data []float64
}

// Writer builds an ECF file in a streaming fashion. It reserves space
// for the header up front and patches it during Finalise.
type Writer struct {
	f        *os.File
	sections []Section
	seen     map[SectionType]struct{}
	closed   bool
	flags    uint64

	padBuf []byte

	mu sync.Mutex
}

// NewWriter creates an ECF writer targeting f. The file is truncated;
// the header is written during Finalise.
func NewWriter(f *os.File) (*Writer, error) {
	if f == nil {
		return nil, errors.New("ecf: nil file")
	}
	if err := f.Truncate(0); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	w := &Writer{
		f:      f,
		seen:   make(map[SectionType]struct{}),
		padBuf: make([]byte, 4096),
	}
	if err := w.writeZeros(headerSize); err != nil {
		return nil, err
	}
	if err := w.alignTo(sectionAlign); err != nil {
		return nil, err
	}
	return w, nil
}

// WriteSection writes a section payload and records it in the section
// directory. A section type may only be written once.
func (w *Writer) WriteSection(typ SectionType, version uint32, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeSectionLocked(typ, version, data)
}

func (w *Writer) writeSectionLocked(typ SectionType, version uint32, data []byte) error {
	if w.closed {
		return errors.New("ecf: writer already finalised")
	}
	if _, ok := w.seen[typ]; ok {
		return fmt.Errorf("ecf: duplicate section type 0x%04x", uint32(typ))
	}
	if err := w.alignTo(sectionAlign); err != nil {
		return err
	}
	offset, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		if err := writeFull(w.f, data); err != nil {
			return err
		}
	}
	w.sections = append(w.sections, Section{
		Type:    uint32(typ),
		Version: version,
		Offset:  uint64(offset),
		Size:    uint64(len(data)),
	})
	w.seen[typ] = struct{}{}
	return nil
}

// WriteTensors streams the tensor data section, one 64-byte aligned
// float64 payload per tensor, then writes the matching tensor index
// section. It must be called at most once.
func (w *Writer) WriteTensors(tensors []Tensor) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("ecf: writer already finalised")
	}
	if len(tensors) == 0 {
		return errors.New("ecf: no tensors to write")
	}
	if _, ok := w.seen[SectionTensorData]; ok {
		return errors.New("ecf: tensors already written")
	}

	names := make(map[string]struct{}, len(tensors))
	for i := range tensors {
		t := &tensors[i]
		if t.Name == "" {
			return fmt.Errorf("ecf: tensor %d has no name", i)
		}
		if _, dup := names[t.Name]; dup {
			return fmt.Errorf("ecf: duplicate tensor name %q", t.Name)
		}
		names[t.Name] = struct{}{}
		if t.Rows <= 0 || t.Cols <= 0 {
			return fmt.Errorf("ecf: tensor %q has dims %dx%d", t.Name, t.Rows, t.Cols)
		}
		if len(t.Data) != t.Rows*t.Cols {
			return fmt.Errorf("ecf: tensor %q has %d values for dims %dx%d", t.Name, len(t.Data), t.Rows, t.Cols)
		}
	}

	if err := w.alignTo(sectionAlign); err != nil {
		return err
	}
	sectionStart, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	const chunkElems = 8192

	infos := make([]TensorInfo, 0, len(tensors))
	buf := make([]byte, 0, chunkElems*8)
	for i := range tensors {
		t := &tensors[i]
		if err := w.alignTo(tensorAlign); err != nil {
			return err
		}
		off, err := w.f.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}

		for start := 0; start < len(t.Data); start += chunkElems {
			stop := min(start+chunkElems, len(t.Data))
			buf = buf[:0]
			for _, v := range t.Data[start:stop] {
				buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
			}
			if err := writeFull(w.f, buf); err != nil {
				return err
			}
		}

		infos = append(infos, TensorInfo{
			Name:     t.Name,
			Rows:     t.Rows,
			Cols:     t.Cols,
			DataOff:  uint64(off),
			DataSize: uint64(len(t.Data)) * 8,
		})
	}

	end, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	w.sections = append(w.sections, Section{
		Type:    uint32(SectionTensorData),
		Version: 1,
		Offset:  uint64(sectionStart),
		Size:    uint64(end - sectionStart),
	})
	w.seen[SectionTensorData] = struct{}{}

	indexBytes, err := encodeTensorIndex(infos)
	if err != nil {
		return err
	}
	return w.writeSectionLocked(SectionTensorIndex, TensorIndexVersion, indexBytes)
}

// AddFlags sets format-level header flags.
func (w *Writer) AddFlags(flags uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("ecf: writer already finalised")
	}
	w.flags |= flags
	return nil
}

// Finalise writes the section directory and patches the header. After
// Finalise, the writer must not be used again.
func (w *Writer) Finalise() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("ecf: writer already finalised")
	}
	if len(w.sections) == 0 {
		return errors.New("ecf: no sections written")
	}
	w.closed = true

	sort.Slice(w.sections, func(i, j int) bool {
		return w.sections[i].Type < w.sections[j].Type
	})

	if err := w.alignTo(sectionAlign); err != nil {
		return err
	}
	dirOffset, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	var secBuf [sectionSize]byte
	for i := range w.sections {
		if !encodeSection(secBuf[:], w.sections[i]) {
			return errors.New("ecf: encode section failed")
		}
		if err := writeFull(w.f, secBuf[:]); err != nil {
			return err
		}
	}

	fileSize, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := w.f.Truncate(fileSize); err != nil {
		return err
	}

	header := Header{
		Major:            CurrentMajor,
		Minor:            CurrentMinor,
		HeaderSize:       headerSize,
		SectionCount:     uint32(len(w.sections)),
		SectionDirOffset: uint64(dirOffset),
		FileSize:         uint64(fileSize),
		Flags:            w.flags,
	}
	copy(header.Magic[:], Magic)

	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	var hdrBuf [headerSize]byte
	if !encodeHeader(hdrBuf[:], header) {
		return errors.New("ecf: encode header failed")
	}
	if err := writeFull(w.f, hdrBuf[:]); err != nil {
		return err
	}
	return w.f.Sync()
}

func (w *Writer) alignTo(n int64) error {
	if n <= 1 {
		return nil
	}
	pos, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	mod := pos % n
	if mod == 0 {
		return nil
	}
	return w.writeZeros(int(n - mod))
}

func (w *Writer) writeZeros(n int) error {
	for n > 0 {
		chunk := min(n, len(w.padBuf))
		if err := writeFull(w.f, w.padBuf[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

func writeFull(f *os.File, p []byte) error {
	for len(p) > 0 {
		n, err := f.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
