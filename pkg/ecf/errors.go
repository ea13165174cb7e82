package ecf

import "errors"

var (
	ErrBadMagic           = errors.New("ecf: invalid magic")
	ErrUnsupportedVersion = errors.New("ecf: unsupported format version")
	ErrCorruptFile        = errors.New("ecf: corrupt file")
	ErrTensorNotFound     = errors.New("ecf: tensor not found")
)
