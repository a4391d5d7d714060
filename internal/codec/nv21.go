// Package codec converts YUV420 semi-planar camera frames (NV21, NV12) into
// packed ARGB8888 pixels and samples colors from the result.
package codec

import (
	"fmt"
	"math"
	"strings"
)

// Format identifies a semi-planar YUV420 layout.
type Format int

const (
	// FormatNV21 stores the chroma plane as interleaved V,U pairs.
	FormatNV21 Format = iota
	// FormatNV12 stores the chroma plane as interleaved U,V pairs.
	FormatNV12
)

func (f Format) String() string {
	switch f {
	case FormatNV21:
		return "nv21"
	case FormatNV12:
		return "nv12"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat resolves a format name such as "nv21" (case-insensitive).
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "nv21":
		return FormatNV21, nil
	case "nv12":
		return FormatNV12, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// Decoder converts one frame into ARGB pixels.
type Decoder interface {
	Decode(frame []byte, width, height int) ([]uint32, error)
	DecodeInto(dst []uint32, frame []byte, width, height int) error
}

type semiPlanarDecoder struct {
	vFirst bool
}

func (d semiPlanarDecoder) Decode(frame []byte, width, height int) ([]uint32, error) {
	return decode(frame, width, height, d.vFirst)
}

func (d semiPlanarDecoder) DecodeInto(dst []uint32, frame []byte, width, height int) error {
	return decodeInto(dst, frame, width, height, d.vFirst)
}

// NewDecoder returns the decoder for f.
func NewDecoder(f Format) (Decoder, error) {
	switch f {
	case FormatNV21:
		return semiPlanarDecoder{vFirst: true}, nil
	case FormatNV12:
		return semiPlanarDecoder{vFirst: false}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

// FrameSize returns the number of bytes a semi-planar YUV420 frame of the
// given dimensions occupies: a full luma plane plus a half-size chroma plane.
func FrameSize(width, height int) (int, error) {
	if err := ValidateDimensions(width, height); err != nil {
		return 0, err
	}
	size := width * height
	return size + size/2, nil
}

// ValidateDimensions checks that width and height are positive, even, and
// that width*height fits the platform int with room for the chroma plane.
func ValidateDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d must be positive", ErrInvalidDimensions, width, height)
	}
	if width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("%w: %dx%d must be even", ErrInvalidDimensions, width, height)
	}
	if width > (math.MaxInt/3*2)/height {
		return fmt.Errorf("%w: %dx%d overflows", ErrInvalidDimensions, width, height)
	}
	return nil
}

// DecodeNV21 converts an NV21 frame into a freshly allocated ARGB buffer of
// width*height pixels.
func DecodeNV21(frame []byte, width, height int) ([]uint32, error) {
	return decode(frame, width, height, true)
}

// DecodeNV21Into converts an NV21 frame into dst, which must hold exactly
// width*height pixels. dst is untouched when an error is returned.
func DecodeNV21Into(dst []uint32, frame []byte, width, height int) error {
	return decodeInto(dst, frame, width, height, true)
}

// DecodeNV12 is DecodeNV21 for frames with U,V chroma ordering.
func DecodeNV12(frame []byte, width, height int) ([]uint32, error) {
	return decode(frame, width, height, false)
}

func decode(frame []byte, width, height int, vFirst bool) ([]uint32, error) {
	if err := validateFrame(frame, width, height); err != nil {
		return nil, err
	}

	pixels := make([]uint32, width*height)
	convertSemiPlanar(pixels, frame, width, height, vFirst)

	return pixels, nil
}

func decodeInto(dst []uint32, frame []byte, width, height int, vFirst bool) error {
	if err := ValidateDimensions(width, height); err != nil {
		return err
	}
	if len(dst) != width*height {
		return fmt.Errorf("%w: have %d, need %d", ErrOutputSizeMismatch, len(dst), width*height)
	}
	if err := validateFrame(frame, width, height); err != nil {
		return err
	}

	convertSemiPlanar(dst, frame, width, height, vFirst)

	return nil
}

func validateFrame(frame []byte, width, height int) error {
	need, err := FrameSize(width, height)
	if err != nil {
		return err
	}
	if len(frame) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrBufferTooSmall, len(frame), need)
	}
	return nil
}

// convertSemiPlanar walks the luma plane in 2x2 blocks. Block (br, bc) owns
// luma rows 2*br and 2*br+1, columns 2*bc and 2*bc+1, and the chroma pair at
// row br, column 2*bc of the half-height chroma plane.
// Dimensions and buffer sizes must already be validated.
func convertSemiPlanar(dst []uint32, frame []byte, width, height int, vFirst bool) {
	offset := width * height

	for br := 0; br < height/2; br++ {
		lumaRow := 2 * br * width
		chromaRow := offset + br*width

		for bc := 0; bc < width/2; bc++ {
			i := lumaRow + 2*bc
			c := chromaRow + 2*bc

			v := int(frame[c]) - 128
			u := int(frame[c+1]) - 128
			if !vFirst {
				u, v = v, u
			}

			dst[i] = YUVToARGB(int(frame[i]), u, v)
			dst[i+1] = YUVToARGB(int(frame[i+1]), u, v)
			dst[i+width] = YUVToARGB(int(frame[i+width]), u, v)
			dst[i+width+1] = YUVToARGB(int(frame[i+width+1]), u, v)
		}
	}
}
