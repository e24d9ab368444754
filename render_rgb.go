package psd

import "image"

// renderRGB composes three already-decoded R/G/B planes (plus an
// optional alpha plane) into an NRGBA image.
func renderRGB(img *image.NRGBA, depth uint16, width, height int, color [][]byte, alpha []byte) (*image.NRGBA, error) {
	if len(color) != 3 {
		return nil, CorruptDataError("RGB image did not have 3 color channels")
	}
	r, g, b := color[0], color[1], color[2]

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			off := img.PixOffset(x, y)
			img.Pix[off+0] = sampleAt(r, i, depth)
			img.Pix[off+1] = sampleAt(g, i, depth)
			img.Pix[off+2] = sampleAt(b, i, depth)
			img.Pix[off+3] = alphaAt(alpha, depth, i)
		}
	}
	return img, nil
}

// renderGray composes a single gray plane (Grayscale or Duotone mode,
// both single-channel as far as rendering is concerned) into an NRGBA
// image with equal R, G, B.
func renderGray(img *image.NRGBA, depth uint16, width, height int, color [][]byte, alpha []byte) (*image.NRGBA, error) {
	if len(color) != 1 {
		return nil, CorruptDataError("grayscale image did not have exactly 1 color channel")
	}
	gray := color[0]

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			v := sampleAt(gray, i, depth)
			off := img.PixOffset(x, y)
			img.Pix[off+0] = v
			img.Pix[off+1] = v
			img.Pix[off+2] = v
			img.Pix[off+3] = alphaAt(alpha, depth, i)
		}
	}
	return img, nil
}

// renderBitmap expands a 1-bit-per-pixel plane into black/white NRGBA.
func renderBitmap(img *image.NRGBA, width, height int, color [][]byte, alpha []byte) (*image.NRGBA, error) {
	if len(color) != 1 {
		return nil, CorruptDataError("bitmap image did not have exactly 1 color channel")
	}
	plane := color[0]
	rowWidth := rowWidthForDepth(1, width)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := bitAt(plane, rowWidth, x, y)
			off := img.PixOffset(x, y)
			img.Pix[off+0] = v
			img.Pix[off+1] = v
			img.Pix[off+2] = v
			img.Pix[off+3] = alphaAt(alpha, 8, y*width+x)
		}
	}
	return img, nil
}
