package ecf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// TensorIndexVersion is the on-disk version of the tensor index
// section payload.
const TensorIndexVersion uint32 = 1

// TensorInfo locates one weight matrix inside the container. DataOff
// is an absolute file offset, so payloads slice directly out of the
// mapped file.
type TensorInfo struct {
	Name     string
	Rows     int
	Cols     int
	DataOff  uint64
	DataSize uint64
}

// Elems returns the element count implied by the dims.
func (t *TensorInfo) Elems() int { return t.Rows * t.Cols }

// Index payload layout, little-endian:
//
//	u32 count
//	per tensor: u16 name_len | name bytes | u32 rows | u32 cols |
//	            u64 data_off | u64 data_size
func encodeTensorIndex(infos []TensorInfo) ([]byte, error) {
	if len(infos) == 0 {
		return nil, fmt.Errorf("%w: tensor index requires at least one tensor", ErrCorruptFile)
	}
	size := 4
	for i := range infos {
		if infos[i].Name == "" {
			return nil, fmt.Errorf("ecf: tensor %d has no name", i)
		}
		if len(infos[i].Name) > math.MaxUint16 {
			return nil, fmt.Errorf("ecf: tensor name %q too long", infos[i].Name[:32])
		}
		size += 2 + len(infos[i].Name) + 4 + 4 + 8 + 8
	}

	out := make([]byte, size)
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(infos)))
	p := 4
	for i := range infos {
		ti := &infos[i]
		binary.LittleEndian.PutUint16(out[p:], uint16(len(ti.Name)))
		p += 2
		p += copy(out[p:], ti.Name)
		binary.LittleEndian.PutUint32(out[p:], uint32(ti.Rows))
		p += 4
		binary.LittleEndian.PutUint32(out[p:], uint32(ti.Cols))
		p += 4
		binary.LittleEndian.PutUint64(out[p:], ti.DataOff)
		p += 8
		binary.LittleEndian.PutUint64(out[p:], ti.DataSize)
		p += 8
	}
	return out, nil
}

func parseTensorIndex(sec []byte) ([]TensorInfo, error) {
	if len(sec) < 4 {
		return nil, fmt.Errorf("%w: tensor index too small", ErrCorruptFile)
	}
	count := binary.LittleEndian.Uint32(sec[0:4])
	if count == 0 {
		return nil, fmt.Errorf("%w: empty tensor index", ErrCorruptFile)
	}

	infos := make([]TensorInfo, 0, count)
	p := 4
	for i := uint32(0); i < count; i++ {
		if p+2 > len(sec) {
			return nil, fmt.Errorf("%w: tensor index truncated at entry %d", ErrCorruptFile, i)
		}
		nameLen := int(binary.LittleEndian.Uint16(sec[p:]))
		p += 2
		if nameLen == 0 || p+nameLen+24 > len(sec) {
			return nil, fmt.Errorf("%w: tensor index truncated at entry %d", ErrCorruptFile, i)
		}
		ti := TensorInfo{Name: string(sec[p : p+nameLen])}
		p += nameLen
		ti.Rows = int(binary.LittleEndian.Uint32(sec[p:]))
		p += 4
		ti.Cols = int(binary.LittleEndian.Uint32(sec[p:]))
		p += 4
		ti.DataOff = binary.LittleEndian.Uint64(sec[p:])
		p += 8
		ti.DataSize = binary.LittleEndian.Uint64(sec[p:])
		p += 8

		if ti.Rows <= 0 || ti.Cols <= 0 {
			return nil, fmt.Errorf("%w: tensor %q has dims %dx%d", ErrCorruptFile, ti.Name, ti.Rows, ti.Cols)
		}
		if want := uint64(ti.Rows) * uint64(ti.Cols) * 8; want != ti.DataSize {
			return nil, fmt.Errorf("%w: tensor %q dims imply %d bytes, index says %d", ErrCorruptFile, ti.Name, want, ti.DataSize)
		}
		infos = append(infos, ti)
	}
	if p != len(sec) {
		return nil, fmt.Errorf("%w: %d trailing bytes after tensor index", ErrCorruptFile, len(sec)-p)
	}
	return infos, nil
}
