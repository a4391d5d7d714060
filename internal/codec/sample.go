package codec

import (
	"fmt"
	"image"
)

// Sample returns the pixel at (x, y) of a decoded width*height buffer.
func Sample(pixels []uint32, width, height, x, y int) (uint32, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height {
		return 0, fmt.Errorf("%w: have %d pixels for %dx%d", ErrOutputSizeMismatch, len(pixels), width, height)
	}
	if x < 0 || x >= width || y < 0 || y >= height {
		return 0, fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrOutOfBounds, x, y, width, height)
	}

	return pixels[y*width+x], nil
}

// ToImage copies a decoded ARGB buffer into a new RGBA image.
func ToImage(pixels []uint32, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height {
		return nil, fmt.Errorf("%w: have %d pixels for %dx%d", ErrOutputSizeMismatch, len(pixels), width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	ARGBToRGBA(pixels, img.Pix)

	return img, nil
}

// ARGBToRGBA unpacks 0xAARRGGBB pixels into R,G,B,A byte quadruples.
// Conversion stops at whichever of src or dst runs out first.
func ARGBToRGBA(src []uint32, dst []byte) {
	dstIdx := 0

	for _, p := range src {
		if dstIdx+3 >= len(dst) {
			return
		}

		a, r, g, b := Channels(p)
		dst[dstIdx] = r
		dst[dstIdx+1] = g
		dst[dstIdx+2] = b
		dst[dstIdx+3] = a

		dstIdx += 4
	}
}
