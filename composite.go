package psd

import (
	"io"
	"io/ioutil"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"

	"github.com/pkg/errors"
)

// Composite is the flattened preview image stored after the layer and
// mask information: one interleaved-by-plane channel per header channel
// count, in the document's native color mode and depth.
type Composite struct {
	Compression Compression
	Channels    [][]byte // one decoded plane per channel, document byte order
	width       int
	height      int
	depth       uint16
}

// parseComposite reads the composite image data section, which runs from
// the current offset to the end of the file (or the next section, for
// callers that bound it externally). Unlike layer channel planes, the
// composite stores one compression code for the whole image and then all
// channel planes back to back.
func parseComposite(s *source, h header) (*Composite, error) {
	if s.tell()+2 > s.size {
		// No compression code: the file ends before the image data
		// section, so the document simply has no composite.
		return nil, nil
	}
	code, err := s.u16()
	if err != nil {
		return nil, err
	}
	if code > 3 {
		return nil, UnsupportedError("composite compression code")
	}
	compression := Compression(code)

	width, height := int(h.width), int(h.height)
	bps := bytesPerSample(h.depth)
	rowWidth := rowWidthForDepth(h.depth, width)
	wantLen := rowWidth * height

	c := &Composite{Compression: compression, width: width, height: height, depth: h.depth}
	c.Channels = make([][]byte, h.channels)

	switch compression {
	case CompressionRaw:
		for ch := 0; ch < int(h.channels); ch++ {
			buf, err := s.read(wantLen)
			if err != nil {
				return nil, errors.Wrapf(err, "psd: composite channel %d", ch)
			}
			c.Channels[ch] = buf
		}
	case CompressionRLE:
		// Each channel has its own per-row count table immediately
		// preceding its compressed rows, the same layout as a layer
		// channel plane, but all of it must be consumed sequentially
		// without the outer length bookkeeping a layer channel carries.
		for ch := 0; ch < int(h.channels); ch++ {
			plane, consumed, err := decodeRLEChannelFromStream(s, height, rowWidth)
			if err != nil {
				return nil, errors.Wrapf(err, "psd: composite channel %d", ch)
			}
			_ = consumed
			c.Channels[ch] = plane
		}
	case CompressionZIP:
		for ch := 0; ch < int(h.channels); ch++ {
			out, err := readDeflateChannelFromStream(s, wantLen)
			if err != nil {
				return nil, errors.Wrapf(err, "psd: composite channel %d", ch)
			}
			c.Channels[ch] = out
		}
	case CompressionZIPWithPrediction:
		scanlineLen := rowWidth + 1
		for ch := 0; ch < int(h.channels); ch++ {
			raw, err := readDeflateChannelFromStream(s, scanlineLen*height)
			if err != nil {
				return nil, errors.Wrapf(err, "psd: composite channel %d", ch)
			}
			out := make([]byte, 0, rowWidth*height)
			for off := 0; off+scanlineLen <= len(raw); off += scanlineLen {
				scanline := raw[off : off+scanlineLen]
				if err := reversePredictionScanline(scanline, bps); err != nil {
					return nil, err
				}
				out = append(out, scanline[1:]...)
			}
			c.Channels[ch] = out
		}
	}

	return c, nil
}

// decodeRLEChannelFromStream reads one channel's row-count table and
// compressed rows directly off the stream (the composite section has no
// outer per-channel length to bound the read, unlike layer channels).
func decodeRLEChannelFromStream(s *source, rows, rowWidth int) (plane []byte, consumed int, err error) {
	countWidth := 2
	start := s.tell()
	countTable, err := s.read(rows * countWidth)
	if err != nil {
		return nil, 0, err
	}
	counts := make([]int, rows)
	total := 0
	for r := 0; r < rows; r++ {
		c := int(uint16(countTable[2*r])<<8 | uint16(countTable[2*r+1]))
		counts[r] = c
		total += c
	}

	compressed, err := s.read(total)
	if err != nil {
		return nil, 0, err
	}

	out := make([]byte, 0, rows*rowWidth)
	off := 0
	for r := 0; r < rows; r++ {
		row, err := packbitsDecodeRow(compressed[off:off+counts[r]], rowWidth)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, row...)
		off += counts[r]
	}
	return out, int(s.tell() - start), nil
}

// sourceReader adapts a source into a plain io.Reader starting at its
// current offset, tracking how many bytes were pulled through it so the
// caller can advance the source by exactly that much afterward.
type sourceReader struct {
	s    *source
	read int
}

func (r *sourceReader) Read(p []byte) (int, error) {
	avail := r.s.size - (r.s.offset + int64(r.read))
	if avail <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > avail {
		p = p[:avail]
	}
	buf := make([]byte, len(p))
	n, err := r.s.r.ReadAt(buf, r.s.offset+int64(r.read))
	copy(p, buf[:n])
	r.read += n
	if err != nil {
		return n, err
	}
	return n, nil
}

// ReadByte makes sourceReader an io.ByteReader, so the flate and zlib
// readers use it directly instead of wrapping it in a read-ahead buffer
// that would pull bytes past the end of the compressed stream.
func (r *sourceReader) ReadByte() (byte, error) {
	var b [1]byte
	n, err := r.Read(b[:])
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	return b[0], nil
}

// readDeflateChannelFromStream decodes one deflate-compressed channel
// plane directly off the stream, without a separately recorded compressed
// length, then advances the source by exactly the bytes the decoder
// consumed (the deflate/zlib end-of-stream marker, not a guessed length).
func readDeflateChannelFromStream(s *source, wantLen int) ([]byte, error) {
	sr := &sourceReader{s: s}
	zr, err := zlib.NewReader(sr)
	if err != nil {
		sr = &sourceReader{s: s}
		fr := flate.NewReader(sr)
		out, ferr := ioutil.ReadAll(fr)
		fr.Close()
		if ferr != nil || len(out) != wantLen {
			return nil, CorruptDataError("composite deflate channel did not decode to the expected size")
		}
		if err := s.skip(int64(sr.read)); err != nil {
			return nil, err
		}
		return out, nil
	}
	out, err := ioutil.ReadAll(zr)
	zr.Close()
	if err != nil || len(out) != wantLen {
		return nil, CorruptDataError("composite deflate channel did not decode to the expected size")
	}
	if err := s.skip(int64(sr.read)); err != nil {
		return nil, err
	}
	return out, nil
}
