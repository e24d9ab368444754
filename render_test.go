package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRGBDirectPassthroughWithDefaultAlpha(t *testing.T) {
	img, err := renderPlanes(ColorModeRGB, 8, 2, 1,
		[][]byte{{10, 20}, {30, 40}, {50, 60}}, nil, nil)
	require.NoError(t, err)

	off := img.PixOffset(1, 0)
	assert.Equal(t, []byte{20, 40, 60, 255}, img.Pix[off:off+4])
}

func TestRenderGrayReplicatesAcrossChannels(t *testing.T) {
	img, err := renderPlanes(ColorModeGrayscale, 8, 1, 1, [][]byte{{128}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{128, 128, 128, 255}, img.Pix[0:4])
}

func TestRenderBitmapBlackAndWhiteConvention(t *testing.T) {
	// A single byte covers 8 pixels; MSB first. 0b10110000 -> W B W W B B B B
	plane := []byte{0xB0}
	img, err := renderPlanes(ColorModeBitmap, 1, 8, 1, [][]byte{plane}, nil, nil)
	require.NoError(t, err)

	want := []uint8{255, 0, 255, 255, 0, 0, 0, 0}
	for x, w := range want {
		off := img.PixOffset(x, 0)
		assert.Equal(t, w, img.Pix[off], "pixel %d", x)
	}
}

func TestRenderIndexedLooksUpPalette(t *testing.T) {
	palette := make([]byte, 768)
	palette[5] = 0x11   // R for index 5
	palette[256+5] = 0x22 // G
	palette[512+5] = 0x33 // B

	img, err := renderPlanes(ColorModeIndexed, 8, 1, 1, [][]byte{{5}}, nil, palette)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 255}, img.Pix[0:4])
}

func TestRenderIndexedFallsBackToGreyscaleWithoutPalette(t *testing.T) {
	img, err := renderPlanes(ColorModeIndexed, 8, 1, 1, [][]byte{{77}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{77, 77, 77, 255}, img.Pix[0:4])
}

func TestRenderCMYKClampedSubtractiveFormula(t *testing.T) {
	// C=200, M=0, Y=0, K=100 -> C+K=300 clamps to 255, so R=0; M+K=100
	// so G=155; Y+K=100 so B=155.
	img, err := renderPlanes(ColorModeCMYK, 8, 1, 1,
		[][]byte{{200}, {0}, {0}, {100}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 155, 155, 255}, img.Pix[0:4])
}

func TestRenderCMYKFullInkOnAllChannelsIsBlack(t *testing.T) {
	img, err := renderPlanes(ColorModeCMYK, 8, 1, 1,
		[][]byte{{255}, {255}, {255}, {255}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 255}, img.Pix[0:4])
}

func TestRenderCMYKNoInkIsWhite(t *testing.T) {
	img, err := renderPlanes(ColorModeCMYK, 8, 1, 1,
		[][]byte{{0}, {0}, {0}, {0}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 255, 255, 255}, img.Pix[0:4])
}

func TestRenderCMYKRejectsWrongChannelCount(t *testing.T) {
	_, err := renderPlanes(ColorModeCMYK, 8, 1, 1, [][]byte{{1}, {2}, {3}}, nil, nil)
	assert.Error(t, err)
}

func TestRenderLabBlackAtZeroLuminance(t *testing.T) {
	img, err := renderPlanes(ColorModeLab, 8, 1, 1, [][]byte{{0}, {128}, {128}}, nil, nil)
	require.NoError(t, err)

	for _, v := range img.Pix[0:3] {
		assert.LessOrEqual(t, v, uint8(2))
	}
}

func TestRenderLabWhiteAtFullLuminanceNeutral(t *testing.T) {
	img, err := renderPlanes(ColorModeLab, 8, 1, 1, [][]byte{{255}, {128}, {128}}, nil, nil)
	require.NoError(t, err)

	for _, v := range img.Pix[0:3] {
		assert.GreaterOrEqual(t, v, uint8(250))
	}
}

func TestSampleAt16BitReturnsMostSignificantByte(t *testing.T) {
	raw := []byte{0x01, 0xFF} // big-endian 16-bit 0x01FF
	assert.Equal(t, uint8(0x01), sampleAt(raw, 0, 16))
}

func TestSampleAt32BitReturnsMostSignificantByte(t *testing.T) {
	// float32 1.5 packed big-endian: MSB is still read directly, no
	// float interpretation.
	raw := []byte{0x3F, 0xC0, 0x00, 0x00}
	assert.Equal(t, uint8(0x3F), sampleAt(raw, 0, 32))
}

func TestAlphaAtDefaultsToOpaqueWithoutPlane(t *testing.T) {
	assert.Equal(t, uint8(255), alphaAt(nil, 8, 0))
}
