package ecf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// File is an open container. Data is the whole file, either mmapped or
// read into memory; section payloads are zero-copy slices of it.
type File struct {
	Data     []byte
	Header   *Header
	Sections []Section

	tensors []TensorInfo
	mmapped bool
}

// Open maps an ECF file read-only and validates its structure. If mmap
// is unavailable it falls back to ReadAt-based loading. The returned
// file must be closed to release any mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 < headerSize {
		return nil, ErrCorruptFile
	}
	if size64 > int64(int(^uint(0)>>1)) {
		// Cannot index this file as []byte on this architecture.
		return nil, ErrCorruptFile
	}
	size := int(size64)

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		ef, parseErr := parseFileData(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return ef, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

// OpenReaderAt loads and validates a container from a random-access
// reader without mmap.
func OpenReaderAt(r io.ReaderAt, size int64) (*File, error) {
	if size < headerSize || size > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func parseFileData(data []byte, mmapped bool) (*File, error) {
	if len(data) < headerSize {
		return nil, ErrCorruptFile
	}
	hdr, ok := decodeHeader(data[:headerSize])
	if !ok {
		return nil, ErrCorruptFile
	}
	if string(hdr.Magic[:]) != Magic {
		return nil, ErrBadMagic
	}
	if !hdr.Compatible() {
		return nil, ErrUnsupportedVersion
	}
	if !hdr.Valid() || hdr.FileSize != uint64(len(data)) {
		return nil, ErrCorruptFile
	}
	if uint64(hdr.HeaderSize) > uint64(len(data)) {
		return nil, ErrCorruptFile
	}

	dirStart := hdr.SectionDirOffset
	dirEnd := dirStart + uint64(hdr.SectionCount)*sectionSize
	if dirStart < uint64(hdr.HeaderSize) || dirEnd < dirStart || dirEnd > uint64(len(data)) {
		return nil, fmt.Errorf("%w: section directory out of bounds", ErrCorruptFile)
	}

	sections := make([]Section, hdr.SectionCount)
	for i := range sections {
		start := int(dirStart) + i*sectionSize
		sec, ok := decodeSection(data[start : start+sectionSize])
		if !ok {
			return nil, ErrCorruptFile
		}
		sections[i] = sec
	}

	for i := range sections {
		s := &sections[i]
		end := s.Offset + s.Size
		if end < s.Offset || end > uint64(len(data)) {
			return nil, fmt.Errorf("%w: section %d out of bounds", ErrCorruptFile, i)
		}
		if s.Offset < uint64(hdr.HeaderSize) {
			return nil, fmt.Errorf("%w: section %d overlaps header", ErrCorruptFile, i)
		}
		if rangesOverlap(s.Offset, end, dirStart, dirEnd) {
			return nil, fmt.Errorf("%w: section %d overlaps section directory", ErrCorruptFile, i)
		}
		if s.Offset%sectionAlign != 0 {
			return nil, fmt.Errorf("%w: section %d offset not %d-byte aligned", ErrCorruptFile, i, sectionAlign)
		}
	}

	ef := &File{
		Data:     data,
		Header:   &hdr,
		Sections: sections,
		mmapped:  mmapped,
	}

	if idx := ef.Section(SectionTensorIndex); idx != nil {
		infos, err := parseTensorIndex(ef.SectionData(idx))
		if err != nil {
			return nil, err
		}
		for i := range infos {
			end := infos[i].DataOff + infos[i].DataSize
			if end < infos[i].DataOff || end > uint64(len(data)) {
				return nil, fmt.Errorf("%w: tensor %q data out of bounds", ErrCorruptFile, infos[i].Name)
			}
		}
		ef.tensors = infos
	}
	return ef, nil
}

// Close releases file resources and any mmap backing. It is safe to
// call more than once.
func (f *File) Close() error {
	if f == nil || f.Data == nil {
		return nil
	}
	var err error
	if f.mmapped {
		err = unix.Munmap(f.Data)
	}
	f.Data = nil
	f.Header = nil
	f.Sections = nil
	f.tensors = nil
	f.mmapped = false
	return err
}

// Section returns the first section of the given type, or nil.
func (f *File) Section(t SectionType) *Section {
	for i := range f.Sections {
		if SectionType(f.Sections[i].Type) == t {
			return &f.Sections[i]
		}
	}
	return nil
}

// SectionData returns a zero-copy slice covering the section payload.
// The caller must not retain it after Close.
func (f *File) SectionData(s *Section) []byte {
	if f == nil || s == nil || f.Data == nil {
		return nil
	}
	end := s.Offset + s.Size
	if end < s.Offset || end > uint64(len(f.Data)) {
		return nil
	}
	return f.Data[int(s.Offset):int(end)]
}

// ModelInfo decodes the model info section.
func (f *File) ModelInfo() (*ModelInfo, error) {
	s := f.Section(SectionModelInfo)
	if s == nil {
		return nil, fmt.Errorf("%w: missing model info section", ErrCorruptFile)
	}
	return ParseModelInfo(f.SectionData(s))
}

// Tensors returns the decoded tensor index in file order.
func (f *File) Tensors() []TensorInfo { return f.tensors }

// Tensor locates a tensor by name.
func (f *File) Tensor(name string) (TensorInfo, bool) {
	for i := range f.tensors {
		if f.tensors[i].Name == name {
			return f.tensors[i], true
		}
	}
	return TensorInfo{}, false
}

// TensorFloat64 decodes the named tensor's payload into a freshly
// allocated row-major float64 slice.
func (f *File) TensorFloat64(name string) (TensorInfo, []float64, error) {
	ti, ok := f.Tensor(name)
	if !ok {
		return TensorInfo{}, nil, fmt.Errorf("%w: %q", ErrTensorNotFound, name)
	}
	end := ti.DataOff + ti.DataSize
	if f.Data == nil || end < ti.DataOff || end > uint64(len(f.Data)) {
		return TensorInfo{}, nil, fmt.Errorf("%w: tensor %q data out of bounds", ErrCorruptFile, name)
	}
	raw := f.Data[ti.DataOff:end]
	out := make([]float64, ti.Elems())
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return ti, out, nil
}
