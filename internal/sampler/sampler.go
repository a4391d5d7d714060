// Package sampler decodes camera frames within configured limits and answers
// point color queries against the decoded pixels.
package sampler

import (
	"errors"
	"fmt"

	"github.com/rcarmo/colorpick/internal/codec"
	"github.com/rcarmo/colorpick/internal/config"
	"github.com/rcarmo/colorpick/internal/logging"
)

var ErrFrameTooLarge = errors.New("sampler: frame exceeds configured maximum")

// Color is the sampled color at one frame coordinate.
type Color struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	ARGB uint32 `json:"argb"`
	R    uint8  `json:"r"`
	G    uint8  `json:"g"`
	B    uint8  `json:"b"`
	Hex  string `json:"hex"`
}

// NewColor expands a packed pixel sampled at (x, y).
func NewColor(x, y int, p uint32) Color {
	_, r, g, b := codec.Channels(p)
	return Color{X: x, Y: y, ARGB: p, R: r, G: g, B: b, Hex: codec.Hex(p)}
}

// Frame is one decoded frame.
type Frame struct {
	Width  int
	Height int
	Pixels []uint32
}

// At samples the frame at (x, y).
func (f *Frame) At(x, y int) (Color, error) {
	p, err := codec.Sample(f.Pixels, f.Width, f.Height, x, y)
	if err != nil {
		return Color{}, err
	}
	return NewColor(x, y, p), nil
}

// Sampler decodes frames of a single configured format.
type Sampler struct {
	format    codec.Format
	decoder   codec.Decoder
	maxWidth  int
	maxHeight int
	log       *logging.Logger
}

// New builds a Sampler from the frame configuration.
func New(cfg config.FrameConfig, log *logging.Logger) (*Sampler, error) {
	format, err := codec.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	decoder, err := codec.NewDecoder(format)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logging.Default()
	}

	return &Sampler{
		format:    format,
		decoder:   decoder,
		maxWidth:  cfg.MaxWidth,
		maxHeight: cfg.MaxHeight,
		log:       log.With("sampler"),
	}, nil
}

// Format returns the pixel format the sampler decodes.
func (s *Sampler) Format() codec.Format {
	return s.format
}

// CheckLimits rejects dimensions larger than the configured maximum before
// any frame bytes are read.
func (s *Sampler) CheckLimits(width, height int) error {
	if s.maxWidth > 0 && width > s.maxWidth || s.maxHeight > 0 && height > s.maxHeight {
		return fmt.Errorf("%w: %dx%d > %dx%d", ErrFrameTooLarge, width, height, s.maxWidth, s.maxHeight)
	}
	return nil
}

// Decode converts a raw frame into a Frame.
func (s *Sampler) Decode(frame []byte, width, height int) (*Frame, error) {
	if err := s.CheckLimits(width, height); err != nil {
		return nil, err
	}

	pixels, err := s.decoder.Decode(frame, width, height)
	if err != nil {
		s.log.Debug("decode %s %dx%d (%d bytes): %v", s.format, width, height, len(frame), err)
		return nil, err
	}

	return &Frame{Width: width, Height: height, Pixels: pixels}, nil
}

// NewFrame allocates an empty frame of the given dimensions for DecodeInto.
func (s *Sampler) NewFrame(width, height int) (*Frame, error) {
	if err := s.CheckLimits(width, height); err != nil {
		return nil, err
	}
	if err := codec.ValidateDimensions(width, height); err != nil {
		return nil, err
	}
	return &Frame{Width: width, Height: height, Pixels: make([]uint32, width*height)}, nil
}

// DecodeInto decodes data into dst, reusing its pixel buffer. dst keeps its
// previous contents when an error is returned.
func (s *Sampler) DecodeInto(dst *Frame, data []byte) error {
	if err := s.CheckLimits(dst.Width, dst.Height); err != nil {
		return err
	}

	if err := s.decoder.DecodeInto(dst.Pixels, data, dst.Width, dst.Height); err != nil {
		s.log.Debug("decode %s %dx%d (%d bytes): %v", s.format, dst.Width, dst.Height, len(data), err)
		return err
	}

	return nil
}

// Sample decodes frame and returns the color at (x, y).
func (s *Sampler) Sample(frame []byte, width, height, x, y int) (Color, error) {
	f, err := s.Decode(frame, width, height)
	if err != nil {
		return Color{}, err
	}
	return f.At(x, y)
}
