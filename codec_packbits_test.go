package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackbitsDecodeRowLiteralRun(t *testing.T) {
	// n=3 means copy the next 4 bytes literally.
	src := []byte{3, 1, 2, 3, 4}
	out, err := packbitsDecodeRow(src, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, out)
}

func TestPackbitsDecodeRowRepeatRun(t *testing.T) {
	// n=-3 (0xFD) means repeat the following byte 4 times.
	src := []byte{0xFD, 7}
	out, err := packbitsDecodeRow(src, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 7, 7, 7}, out)
}

func TestPackbitsDecodeRowNoOp(t *testing.T) {
	src := []byte{0x80, 1, 9, 9} // no-op, then a 2-byte literal run
	out, err := packbitsDecodeRow(src, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9}, out)
}

func TestPackbitsDecodeRowWrongLengthIsAnError(t *testing.T) {
	src := []byte{1, 1, 2} // produces 2 bytes
	_, err := packbitsDecodeRow(src, 3)
	assert.Error(t, err)
}

func TestPackbitsDecodeRowTruncatedLiteralIsAnError(t *testing.T) {
	src := []byte{5, 1, 2} // claims a 6-byte literal run but only 2 bytes follow
	_, err := packbitsDecodeRow(src, 6)
	assert.Error(t, err)
}

func TestPackbitsDecodeChannelPrefersTwoByteCountWidth(t *testing.T) {
	rowWidth := 4
	rows := 2
	row := []byte{3, 1, 2, 3, 4} // 5-byte compressed row producing 4 bytes

	var compressed []byte
	// 2-byte count table: two rows, each 5 bytes compressed.
	compressed = append(compressed, 0, 5, 0, 5)
	compressed = append(compressed, row...)
	compressed = append(compressed, row...)

	out, err := packbitsDecodeChannel(compressed, rows, rowWidth)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 1, 2, 3, 4}, out)
}

func TestPackbitsDecodeChannelFallsBackToFourByteCountWidth(t *testing.T) {
	rowWidth := 4
	rows := 1
	row := []byte{3, 1, 2, 3, 4}

	// A 2-byte-wide table interpretation of this buffer does not account
	// for every byte, but a 4-byte-wide one does.
	var compressed []byte
	compressed = append(compressed, 0, 0, 0, 5) // 4-byte count = 5
	compressed = append(compressed, row...)

	out, err := packbitsDecodeChannel(compressed, rows, rowWidth)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, out)
}

func TestRLERowCountsOverrunIsAnError(t *testing.T) {
	_, _, _, err := rleRowCounts([]byte{0, 1}, 2, 2)
	assert.Error(t, err)
}
