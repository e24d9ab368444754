package psd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawHeader(sig string, version uint16, channels uint16, height, width uint32, depth uint16, mode uint16) []byte {
	var buf bytes.Buffer
	buf.WriteString(sig)
	buf.Write([]byte{byte(version >> 8), byte(version)})
	buf.Write(make([]byte, 6))
	buf.Write([]byte{byte(channels >> 8), byte(channels)})
	buf.Write([]byte{byte(height >> 24), byte(height >> 16), byte(height >> 8), byte(height)})
	buf.Write([]byte{byte(width >> 24), byte(width >> 16), byte(width >> 8), byte(width)})
	buf.Write([]byte{byte(depth >> 8), byte(depth)})
	buf.Write([]byte{byte(mode >> 8), byte(mode)})
	return buf.Bytes()
}

func TestParseHeaderValid(t *testing.T) {
	data := rawHeader("8BPS", 1, 3, 100, 200, 8, 3)
	s := newSource(bytes.NewReader(data), int64(len(data)))

	h, err := parseHeader(s)
	require.NoError(t, err)
	assert.False(t, h.isLarge)
	assert.Equal(t, uint16(3), h.channels)
	assert.Equal(t, uint32(100), h.height)
	assert.Equal(t, uint32(200), h.width)
	assert.Equal(t, uint16(8), h.depth)
	assert.Equal(t, ColorModeRGB, h.mode)
}

func TestParseHeaderBadSignature(t *testing.T) {
	data := rawHeader("BADS", 1, 3, 10, 10, 8, 3)
	s := newSource(bytes.NewReader(data), int64(len(data)))

	_, err := parseHeader(s)
	require.Error(t, err)
	var fe FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestParseHeaderLargeDocument(t *testing.T) {
	data := rawHeader("8BPS", 2, 4, 50000, 50000, 16, 4)
	s := newSource(bytes.NewReader(data), int64(len(data)))

	h, err := parseHeader(s)
	require.NoError(t, err)
	assert.True(t, h.isLarge)
	assert.Equal(t, ColorModeCMYK, h.mode)
}

func TestParseHeaderRejectsOutOfRangeChannels(t *testing.T) {
	data := rawHeader("8BPS", 1, 57, 10, 10, 8, 3)
	s := newSource(bytes.NewReader(data), int64(len(data)))

	_, err := parseHeader(s)
	require.Error(t, err)
}

func TestParseHeaderRejectsStandardDimensionOverflow(t *testing.T) {
	data := rawHeader("8BPS", 1, 3, 30001, 10, 8, 3)
	s := newSource(bytes.NewReader(data), int64(len(data)))

	_, err := parseHeader(s)
	require.Error(t, err)
}

func TestParseHeaderPreservesUnknownColorMode(t *testing.T) {
	data := rawHeader("8BPS", 1, 1, 10, 10, 8, 99)
	s := newSource(bytes.NewReader(data), int64(len(data)))

	h, err := parseHeader(s)
	require.NoError(t, err)
	assert.Equal(t, ColorMode(99), h.mode)
	assert.Equal(t, "Unknown", h.mode.String())
}

func TestParseColorModeDataEmpty(t *testing.T) {
	data := []byte{0, 0, 0, 0}
	s := newSource(bytes.NewReader(data), int64(len(data)))

	cm, err := parseColorModeData(s)
	require.NoError(t, err)
	assert.Nil(t, cm)
}

func TestParseResourcesSkipsUnknownSignatureAndKeepsWhatItSaw(t *testing.T) {
	var buf bytes.Buffer
	// one well-formed 8BIM block, then garbage that terminates the loop early.
	block := func(id uint16, name string, payload []byte) []byte {
		var b bytes.Buffer
		b.WriteString("8BIM")
		b.Write([]byte{byte(id >> 8), byte(id)})
		b.WriteByte(byte(len(name)))
		b.WriteString(name)
		if (len(name)+1)%2 != 0 {
			b.WriteByte(0)
		}
		n := uint32(len(payload))
		b.Write([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
		b.Write(payload)
		if n%2 != 0 {
			b.WriteByte(0)
		}
		return b.Bytes()
	}
	good := block(1005, "", []byte{1, 2, 3, 4})
	section := append(append([]byte{}, good...), []byte("GARB")...)

	n := uint32(len(section))
	buf.Write([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	buf.Write(section)

	s := newSource(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	resources, err := parseResources(s)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, uint16(1005), resources[0].ID)
	assert.Equal(t, []byte{1, 2, 3, 4}, resources[0].Data)
}
