package codec

import "fmt"

// YUV to RGB coefficients applied to the rebiased chroma samples.
// Products are computed in float32 and truncated toward zero.
const (
	vToR float32 = 1.772
	vToG float32 = 0.344
	uToG float32 = 0.714
	uToB float32 = 1.402
)

// OpaqueAlpha is the alpha bits of every decoded pixel.
const OpaqueAlpha uint32 = 0xFF000000

// YUVToARGB converts one luma sample and a signed chroma pair into a packed
// 0xAARRGGBB pixel. y is nominally 0..255, u and v are nominally -128..127.
// Inputs are not clamped; each channel is clamped after the transform.
func YUVToARGB(y, u, v int) uint32 {
	r := y + int(vToR*float32(v))
	// explicit conversions keep the products from being fused
	g := y - int(float32(vToG*float32(v))+float32(uToG*float32(u)))
	b := y + int(uToB*float32(u))

	return OpaqueAlpha | uint32(clamp(r))<<16 | uint32(clamp(g))<<8 | uint32(clamp(b))
}

// Channels splits a packed ARGB pixel into its components.
func Channels(p uint32) (a, r, g, b uint8) {
	return uint8(p >> 24), uint8(p >> 16), uint8(p >> 8), uint8(p)
}

// Hex formats a pixel as eight lowercase hex digits, e.g. "ff008700".
func Hex(p uint32) string {
	return fmt.Sprintf("%08x", p)
}

// clamp clamps a value to 0-255 range
func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
