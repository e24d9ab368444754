package psd

import "image"

// renderIndexed maps a single index plane through the document's 256
// color-mode-data palette (768 bytes: 256 R values, then 256 G, then
// 256 B) into an NRGBA image. A missing or short palette falls back to
// treating the index sample as a greyscale value.
func renderIndexed(img *image.NRGBA, width, height int, color [][]byte, alpha []byte, palette []byte) (*image.NRGBA, error) {
	if len(color) != 1 {
		return nil, CorruptDataError("indexed image did not have exactly 1 color channel")
	}
	idx := color[0]
	havePalette := len(palette) >= paletteSize

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			p := int(idx[i])
			off := img.PixOffset(x, y)
			if havePalette {
				img.Pix[off+0] = palette[p]
				img.Pix[off+1] = palette[256+p]
				img.Pix[off+2] = palette[512+p]
			} else {
				img.Pix[off+0] = idx[i]
				img.Pix[off+1] = idx[i]
				img.Pix[off+2] = idx[i]
			}
			img.Pix[off+3] = alphaAt(alpha, 8, i)
		}
	}
	return img, nil
}
