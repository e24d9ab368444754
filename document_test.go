package psd_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdouchement/psd"
)

// buildMinimalRGB assembles a tiny, spec-valid 2x2 8-bit RGB document with
// raw (uncompressed) channel data, no color mode data, no image
// resources, and no layers - just a header and a composite image. It is
// built by hand rather than loaded from a fixture file so tests have no
// external dependency.
func buildMinimalRGB(t *testing.T, r, g, b [4]byte) []byte {
	t.Helper()
	var buf bytes.Buffer

	buf.WriteString("8BPS")
	buf.Write([]byte{0, 1})             // version 1 (PSD)
	buf.Write(make([]byte, 6))          // reserved
	buf.Write([]byte{0, 3})             // channels
	buf.Write([]byte{0, 0, 0, 2})       // height
	buf.Write([]byte{0, 0, 0, 2})       // width
	buf.Write([]byte{0, 8})             // depth
	buf.Write([]byte{0, 3})             // mode: RGB

	buf.Write([]byte{0, 0, 0, 0}) // color mode data length
	buf.Write([]byte{0, 0, 0, 0}) // image resources length
	buf.Write([]byte{0, 0, 0, 0}) // layer and mask info length

	buf.Write([]byte{0, 0}) // composite compression: raw
	buf.Write(r[:])
	buf.Write(g[:])
	buf.Write(b[:])

	return buf.Bytes()
}

func TestParseMinimalRGBDocument(t *testing.T) {
	data := buildMinimalRGB(t, [4]byte{10, 20, 30, 40}, [4]byte{50, 60, 70, 80}, [4]byte{90, 100, 110, 120})

	doc, err := psd.ParseReader(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 2, doc.Width())
	assert.Equal(t, 2, doc.Height())
	assert.Equal(t, psd.ColorModeRGB, doc.ColorMode())
	assert.Equal(t, uint16(8), doc.Depth())
	assert.False(t, doc.IsLargeDocument())
	assert.Empty(t, doc.Layers)
	assert.False(t, doc.HasTransparency)

	img, err := doc.RenderComposite()
	require.NoError(t, err)
	require.Equal(t, 2, img.Bounds().Dx())
	require.Equal(t, 2, img.Bounds().Dy())

	r, g, b, a := img.NRGBAAt(0, 0).R, img.NRGBAAt(0, 0).G, img.NRGBAAt(0, 0).B, img.NRGBAAt(0, 0).A
	assert.Equal(t, uint8(10), r)
	assert.Equal(t, uint8(50), g)
	assert.Equal(t, uint8(90), b)
	assert.Equal(t, uint8(255), a)
}

func TestParseRejectsBadSignature(t *testing.T) {
	data := buildMinimalRGB(t, [4]byte{}, [4]byte{}, [4]byte{})
	data[0] = 'X'

	_, err := psd.ParseReader(bytes.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestDecodeConfigReportsDimensions(t *testing.T) {
	data := buildMinimalRGB(t, [4]byte{}, [4]byte{}, [4]byte{})

	cfg, err := psd.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Width)
	assert.Equal(t, 2, cfg.Height)
}
