package psd

import (
	"image"
)

// sampleAt extracts the i-th sample of a byte-aligned plane (depth 8, 16,
// or 32) as the plane's most significant byte, with no rescale. Depth 16
// and 32 planes are stored big-endian (16-bit integer, 32-bit float
// respectively); truncating to the MSB keeps this in byte-for-byte parity
// with the reference renderer rather than inventing a float-aware or
// linearly-rescaled conversion.
func sampleAt(raw []byte, i int, depth uint16) uint8 {
	switch depth {
	case 16:
		return raw[i*2]
	case 32:
		return raw[i*4]
	default:
		return raw[i]
	}
}

func clamp8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// bitAt returns a Bitmap-mode (1 bit/pixel, MSB first) sample, expanded
// to 0 (black) or 255 (white): bit value 0 is black, 1 is white.
func bitAt(raw []byte, rowWidth, x, y int) uint8 {
	byteOff := y*rowWidth + x/8
	bit := 7 - uint(x%8)
	if raw[byteOff]&(1<<bit) != 0 {
		return 255
	}
	return 0
}

// renderPlanes assembles an *image.NRGBA from a document or layer's
// decoded channel planes, dispatching to the color-mode-specific
// conversion. color holds the mode's base (non-alpha) channels in
// channel order (R,G,B / C,M,Y,K / L,a,b / one gray or index plane);
// alpha is optional and defaults to fully opaque.
func renderPlanes(mode ColorMode, depth uint16, width, height int, color [][]byte, alpha []byte, palette []byte) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	switch mode {
	case ColorModeBitmap:
		return renderBitmap(img, width, height, color, alpha)
	case ColorModeGrayscale, ColorModeDuotone:
		return renderGray(img, depth, width, height, color, alpha)
	case ColorModeIndexed:
		return renderIndexed(img, width, height, color, alpha, palette)
	case ColorModeRGB:
		return renderRGB(img, depth, width, height, color, alpha)
	case ColorModeCMYK:
		return renderCMYK(img, depth, width, height, color, alpha)
	case ColorModeLab:
		return renderLab(img, depth, width, height, color, alpha)
	default:
		return nil, UnsupportedError("rendering for this color mode")
	}
}

// alphaAt returns the alpha sample at pixel i, or 255 if there is no
// alpha plane.
func alphaAt(alpha []byte, depth uint16, i int) uint8 {
	if alpha == nil {
		return 255
	}
	return sampleAt(alpha, i, depth)
}
