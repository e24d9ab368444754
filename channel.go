package psd

import "github.com/pkg/errors"

// bytesPerSample returns how many bytes one sample of this depth occupies
// in the raw (uncompressed) channel plane, for depths where a sample is
// byte-aligned (8/16/32). Depth 1 (Bitmap mode) packs 8 samples per byte
// and is handled separately by rowWidthForDepth.
func bytesPerSample(depth uint16) int {
	switch depth {
	case 1, 8:
		return 1
	case 16:
		return 2
	case 32:
		return 4
	default:
		return 1
	}
}

// rowWidthForDepth returns the byte width of one scanline of width
// samples at the given bit depth: bit-packed (8 samples/byte, rounded up)
// for depth 1, byte-aligned otherwise.
func rowWidthForDepth(depth uint16, width int) int {
	if depth == 1 {
		return (width + 7) / 8
	}
	return width * bytesPerSample(depth)
}

// Decode lazily decompresses this channel's pixel plane and returns it as
// raw samples in document byte order (big-endian for 16/32-bit depths).
// The result is cached; repeated calls are free.
func (c *ChannelRecord) Decode() ([]byte, error) {
	if c.isDecoded {
		return c.decoded, nil
	}

	depth := c.depth
	if c.ID == -2 || c.ID == -3 {
		depth = 8 // mask channels are 8-bit whatever the document depth
	}
	rowWidth := rowWidthForDepth(depth, c.width)
	wantLen := rowWidth * c.height

	var out []byte
	var err error

	switch c.Compression {
	case CompressionRaw:
		if len(c.compressed) < wantLen {
			return nil, CorruptDataError("raw channel plane is shorter than its expected size")
		}
		// Raw planes may be over-padded; keep only the expected prefix, in
		// a fresh buffer independent of the compressed bytes.
		out = make([]byte, wantLen)
		copy(out, c.compressed)
	case CompressionRLE:
		out, err = packbitsDecodeChannel(c.compressed, c.height, rowWidth)
	case CompressionZIP:
		out, err = deflateDecode(c.compressed, wantLen)
	case CompressionZIPWithPrediction:
		out, err = deflateDecodeWithPrediction(c.compressed, rowWidth, bytesPerSample(depth), c.height)
	default:
		return nil, UnsupportedError("channel compression type")
	}
	if err != nil {
		return nil, errors.Wrap(err, "psd: decoding channel")
	}

	c.decoded = out
	c.isDecoded = true
	return out, nil
}

// Channel returns the first channel record with the given id, or nil.
func (l *Layer) Channel(id int16) *ChannelRecord {
	for _, ch := range l.Channels {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

// HasAlpha reports whether this layer carries a dedicated alpha channel
// (channel id -1).
func (l *Layer) HasAlpha() bool {
	return l.Channel(-1) != nil
}
