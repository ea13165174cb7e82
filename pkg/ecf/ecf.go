// Package ecf implements the Encoder Container File format.
//
// ECF is a single-file, memory-mappable container for tandem encoder
// checkpoints. Model metadata and the vocabulary are stored as JSON
// sections; weight matrices are raw little-endian float64 payloads
// located through a binary tensor index. The format describes data
// only and never implies runtime behaviour.
package ecf

import "encoding/binary"

const (
	// Magic is the file magic for all ECF containers, encoded "ECF\0".
	Magic = "ECF\x00"

	// CurrentMajor changes only on breaking format changes.
	CurrentMajor uint16 = 1

	// CurrentMinor may add new optional sections or fields.
	CurrentMinor uint16 = 0
)

type SectionType uint32

const (
	SectionModelInfo   SectionType = 0x0001
	SectionVocab       SectionType = 0x0002
	SectionTensorIndex SectionType = 0x0003
	SectionTensorData  SectionType = 0x0004
)

const (
	headerSize  = 40
	sectionSize = 24

	// Sections start 8-byte aligned; tensor payloads inside the data
	// section are 64-byte aligned.
	sectionAlign = 8
	tensorAlign  = 64
)

// Header is the fixed block at the start of every container.
type Header struct {
	Magic            [4]byte
	Major            uint16
	Minor            uint16
	HeaderSize       uint32
	SectionCount     uint32
	SectionDirOffset uint64
	FileSize         uint64
	Flags            uint64
}

// Valid reports whether the header carries the ECF magic and a sane
// fixed-block size.
func (h *Header) Valid() bool {
	if string(h.Magic[:]) != Magic {
		return false
	}
	if h.HeaderSize < headerSize {
		return false
	}
	return h.SectionCount > 0
}

// Compatible reports whether this reader understands the file's major
// version.
func (h *Header) Compatible() bool {
	return h.Major == CurrentMajor
}

// Section is one entry of the section directory.
type Section struct {
	Type    uint32
	Version uint32
	Offset  uint64
	Size    uint64
}

func encodeHeader(dst []byte, h Header) bool {
	if len(dst) < headerSize {
		return false
	}
	copy(dst[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(dst[4:6], h.Major)
	binary.LittleEndian.PutUint16(dst[6:8], h.Minor)
	binary.LittleEndian.PutUint32(dst[8:12], h.HeaderSize)
	binary.LittleEndian.PutUint32(dst[12:16], h.SectionCount)
	binary.LittleEndian.PutUint64(dst[16:24], h.SectionDirOffset)
	binary.LittleEndian.PutUint64(dst[24:32], h.FileSize)
	binary.LittleEndian.PutUint64(dst[32:40], h.Flags)
	return true
}

func decodeHeader(src []byte) (Header, bool) {
	if len(src) < headerSize {
		return Header{}, false
	}
	var h Header
	copy(h.Magic[:], src[0:4])
	h.Major = binary.LittleEndian.Uint16(src[4:6])
	h.Minor = binary.LittleEndian.Uint16(src[6:8])
	h.HeaderSize = binary.LittleEndian.Uint32(src[8:12])
	h.SectionCount = binary.LittleEndian.Uint32(src[12:16])
	h.SectionDirOffset = binary.LittleEndian.Uint64(src[16:24])
	h.FileSize = binary.LittleEndian.Uint64(src[24:32])
	h.Flags = binary.LittleEndian.Uint64(src[32:40])
	return h, true
}

func encodeSection(dst []byte, s Section) bool {
	if len(dst) < sectionSize {
		return false
	}
	binary.LittleEndian.PutUint32(dst[0:4], s.Type)
	binary.LittleEndian.PutUint32(dst[4:8], s.Version)
	binary.LittleEndian.PutUint64(dst[8:16], s.Offset)
	binary.LittleEndian.PutUint64(dst[16:24], s.Size)
	return true
}

func decodeSection(src []byte) (Section, bool) {
	if len(src) < sectionSize {
		return Section{}, false
	}
	return Section{
		Type:    binary.LittleEndian.Uint32(src[0:4]),
		Version: binary.LittleEndian.Uint32(src[4:8]),
		Offset:  binary.LittleEndian.Uint64(src[8:16]),
		Size:    binary.LittleEndian.Uint64(src[16:24]),
	}, true
}

// rangesOverlap reports whether the half-open ranges [a0,a1) and
// [b0,b1) intersect.
func rangesOverlap(a0, a1, b0, b1 uint64) bool {
	return a0 < b1 && b0 < a1
}
