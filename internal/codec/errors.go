package codec

import "errors"

var (
	ErrInvalidDimensions  = errors.New("codec: invalid frame dimensions")
	ErrBufferTooSmall     = errors.New("codec: frame buffer too small")
	ErrOutputSizeMismatch = errors.New("codec: output buffer size mismatch")
	ErrOutOfBounds        = errors.New("codec: sample point out of bounds")
	ErrUnsupportedFormat  = errors.New("codec: unsupported pixel format")
)
