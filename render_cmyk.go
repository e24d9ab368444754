package psd

import "image"

// renderCMYK composes four already-decoded C/M/Y/K planes into an NRGBA
// image via the clamped-subtractive formula R = 255 - min(255, C+K), and
// likewise for G (M+K) and B (Y+K).
func renderCMYK(img *image.NRGBA, depth uint16, width, height int, color [][]byte, alpha []byte) (*image.NRGBA, error) {
	if len(color) != 4 {
		return nil, CorruptDataError("CMYK image did not have 4 color channels")
	}
	c, m, y, k := color[0], color[1], color[2], color[3]

	for py := 0; py < height; py++ {
		for px := 0; px < width; px++ {
			i := py*width + px
			cv := int(sampleAt(c, i, depth))
			mv := int(sampleAt(m, i, depth))
			yv := int(sampleAt(y, i, depth))
			kv := int(sampleAt(k, i, depth))

			off := img.PixOffset(px, py)
			img.Pix[off+0] = uint8(255 - minInt(255, cv+kv))
			img.Pix[off+1] = uint8(255 - minInt(255, mv+kv))
			img.Pix[off+2] = uint8(255 - minInt(255, yv+kv))
			img.Pix[off+3] = alphaAt(alpha, depth, i)
		}
	}
	return img, nil
}
