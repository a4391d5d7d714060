package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample(t *testing.T) {
	// 4x2 buffer where each pixel encodes its own index.
	pixels := []uint32{0, 1, 2, 3, 4, 5, 6, 7}

	tests := []struct {
		name     string
		x, y     int
		expected uint32
	}{
		{"origin", 0, 0, 0},
		{"end of first row", 3, 0, 3},
		{"start of second row", 0, 1, 4},
		{"last pixel", 3, 1, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Sample(pixels, 4, 2, tt.x, tt.y)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
		})
	}
}

func TestSample_Errors(t *testing.T) {
	pixels := make([]uint32, 8)

	for _, pt := range [][2]int{{-1, 0}, {0, -1}, {4, 0}, {0, 2}, {100, 100}} {
		_, err := Sample(pixels, 4, 2, pt[0], pt[1])
		assert.ErrorIs(t, err, ErrOutOfBounds, "point %v", pt)
	}

	_, err := Sample(pixels, 2, 2, 0, 0)
	assert.ErrorIs(t, err, ErrOutputSizeMismatch)

	_, err = Sample(nil, 0, 0, 0, 0)
	assert.ErrorIs(t, err, ErrOutputSizeMismatch)
}

func TestToImage(t *testing.T) {
	img, err := ToImage([]uint32{0xFF102030, 0xFFA0B0C0}, 2, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 1, img.Bounds().Dy())
	assert.Equal(t, []byte{0x10, 0x20, 0x30, 0xFF, 0xA0, 0xB0, 0xC0, 0xFF}, img.Pix)

	_, err = ToImage([]uint32{1, 2, 3}, 2, 2)
	assert.ErrorIs(t, err, ErrOutputSizeMismatch)
}

func TestARGBToRGBA_ShortDestination(t *testing.T) {
	dst := make([]byte, 6)
	ARGBToRGBA([]uint32{0xFF010203, 0xFF040506}, dst)
	assert.Equal(t, []byte{1, 2, 3, 0xFF, 0, 0}, dst)
}
