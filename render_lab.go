package psd

import (
	"image"
	"math"
)

// CIE Lab conversion constants (CIE 1976, via the kappa/epsilon form that
// avoids a singularity at L=0).
const (
	labEpsilon = 216.0 / 24389.0
	labKappa   = 24389.0 / 27.0
)

// D50 reference white, the illuminant Lab values in a PSD document are
// defined against.
var d50White = [3]float64{0.96422, 1.0, 0.82521}

// bradfordD50toD65 is the Bradford chromatic adaptation matrix from D50
// to D65, applied in XYZ space before the sRGB conversion (whose matrix
// assumes a D65 white point).
var bradfordD50toD65 = [3][3]float64{
	{0.9555766, -0.0230393, 0.0631636},
	{-0.0282895, 1.0099416, 0.0210077},
	{0.0122982, -0.0204830, 1.3299098},
}

// xyzD65toLinearSRGB is the standard XYZ(D65) -> linear sRGB matrix.
var xyzD65toLinearSRGB = [3][3]float64{
	{3.2406, -1.5372, -0.4986},
	{-0.9689, 1.8758, 0.0415},
	{0.0557, -0.2040, 1.0570},
}

// renderLab composes L/a/b planes into an NRGBA image via full D50->D65
// Bradford-adapted Lab-to-sRGB conversion.
func renderLab(img *image.NRGBA, depth uint16, width, height int, color [][]byte, alpha []byte) (*image.NRGBA, error) {
	if len(color) != 3 {
		return nil, CorruptDataError("Lab image did not have 3 color channels")
	}
	lp, ap, bp := color[0], color[1], color[2]

	for py := 0; py < height; py++ {
		for px := 0; px < width; px++ {
			i := py*width + px
			var L, a, b float64
			if depth == 16 {
				L = float64(uint16(lp[2*i])<<8|uint16(lp[2*i+1])) * 100 / 65535
				a = (float64(uint16(ap[2*i])<<8|uint16(ap[2*i+1])) - 32768) / 256
				b = (float64(uint16(bp[2*i])<<8|uint16(bp[2*i+1])) - 32768) / 256
			} else {
				L = float64(sampleAt(lp, i, depth)) / 255 * 100
				a = float64(sampleAt(ap, i, depth)) - 128
				b = float64(sampleAt(bp, i, depth)) - 128
			}

			r, g, bl := labToSRGB(L, a, b)

			off := img.PixOffset(px, py)
			img.Pix[off+0] = clamp8(float32(r * 255))
			img.Pix[off+1] = clamp8(float32(g * 255))
			img.Pix[off+2] = clamp8(float32(bl * 255))
			img.Pix[off+3] = alphaAt(alpha, depth, i)
		}
	}
	return img, nil
}

func labToSRGB(L, a, b float64) (r, g, bl float64) {
	fy := (L + 16) / 116
	fx := fy + a/500
	fz := fy - b/200

	xr := labInverse(fx)
	var yr float64
	if L > labKappa*labEpsilon {
		yr = math.Pow((L+16)/116, 3)
	} else {
		yr = L / labKappa
	}
	zr := labInverse(fz)

	x50 := xr * d50White[0]
	y50 := yr * d50White[1]
	z50 := zr * d50White[2]

	x65 := bradfordD50toD65[0][0]*x50 + bradfordD50toD65[0][1]*y50 + bradfordD50toD65[0][2]*z50
	y65 := bradfordD50toD65[1][0]*x50 + bradfordD50toD65[1][1]*y50 + bradfordD50toD65[1][2]*z50
	z65 := bradfordD50toD65[2][0]*x50 + bradfordD50toD65[2][1]*y50 + bradfordD50toD65[2][2]*z50

	lr := xyzD65toLinearSRGB[0][0]*x65 + xyzD65toLinearSRGB[0][1]*y65 + xyzD65toLinearSRGB[0][2]*z65
	lg := xyzD65toLinearSRGB[1][0]*x65 + xyzD65toLinearSRGB[1][1]*y65 + xyzD65toLinearSRGB[1][2]*z65
	lb := xyzD65toLinearSRGB[2][0]*x65 + xyzD65toLinearSRGB[2][1]*y65 + xyzD65toLinearSRGB[2][2]*z65

	return srgbGammaEncode(lr), srgbGammaEncode(lg), srgbGammaEncode(lb)
}

func labInverse(t float64) float64 {
	cube := t * t * t
	if cube > labEpsilon {
		return cube
	}
	return (116*t - 16) / labKappa
}

func srgbGammaEncode(v float64) float64 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*math.Pow(v, 1/2.4) - 0.055
}
