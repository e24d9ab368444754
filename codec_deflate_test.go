package psd

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDeflateDecodeZlibWrapped(t *testing.T) {
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	compressed := zlibCompress(t, want)

	out, err := deflateDecode(compressed, len(want))
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestDeflateDecodeWrongLengthIsAnError(t *testing.T) {
	compressed := zlibCompress(t, []byte{1, 2, 3, 4})

	_, err := deflateDecode(compressed, 10)
	assert.Error(t, err)
}

func TestReversePredictionScanlineSub(t *testing.T) {
	// filter byte 1 (Sub), bytesPerPixel 1: each byte adds its predecessor.
	scanline := []byte{1, 10, 5, 5}
	err := reversePredictionScanline(scanline, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 10, 15, 20}, scanline)
}

func TestReversePredictionScanlineNone(t *testing.T) {
	scanline := []byte{0, 9, 8, 7}
	err := reversePredictionScanline(scanline, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 9, 8, 7}, scanline)
}

func TestDeflateDecodeWithPredictionNonOverlappingStride(t *testing.T) {
	// Two 3-byte scanlines, each prefixed with its own filter byte. Using
	// the non-overlapping stride (scanlineWidth+1 per row) each row must
	// decode independently of the other.
	row0 := []byte{1, 10, 5, 5} // Sub filter: 10, 15, 20
	row1 := []byte{0, 1, 2, 3}  // None filter: 1, 2, 3
	compressed := zlibCompress(t, append(append([]byte{}, row0...), row1...))

	out, err := deflateDecodeWithPrediction(compressed, 3, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 15, 20, 1, 2, 3}, out)
}
