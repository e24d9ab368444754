package psd

import (
	"bytes"
	"io/ioutil"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"

	"github.com/pkg/errors"
)

// deflateDecode decompresses a channel or composite plane. PSD/PSB "ZIP"
// compression is DEFLATE, but real-world writers vary between raw
// DEFLATE streams and zlib-wrapped ones; both are tried, and the result
// must be exactly wantLen bytes.
func deflateDecode(compressed []byte, wantLen int) ([]byte, error) {
	if out, ok := tryRawDeflate(compressed, wantLen); ok {
		return out, nil
	}
	if out, ok := tryZlibDeflate(compressed, wantLen); ok {
		return out, nil
	}
	return nil, CorruptDataError("deflate stream did not decode to the expected size")
}

func tryRawDeflate(compressed []byte, wantLen int) ([]byte, bool) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	out, err := ioutil.ReadAll(r)
	if err != nil || len(out) != wantLen {
		return nil, false
	}
	return out, true
}

func tryZlibDeflate(compressed []byte, wantLen int) ([]byte, bool) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, false
	}
	defer r.Close()
	out, err := ioutil.ReadAll(r)
	if err != nil || len(out) != wantLen {
		return nil, false
	}
	return out, true
}

// paethPredictor is the PNG Paeth predictor.
func paethPredictor(a, b, c uint8) uint8 {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// reversePredictionScanline reverses a single PNG-style prediction
// filter applied to one scanline (filter byte at data[0], filtered bytes
// following). PSD applies the filter per scanline independently, so the
// "scanline above" and "diagonal" samples are always treated as zero -
// this is a deliberate simplification confirmed in the reference
// implementation, not a bug to be "fixed" toward true 2D prediction.
func reversePredictionScanline(scanline []byte, bytesPerPixel int) error {
	if len(scanline) == 0 {
		return ArgumentError("empty scanline")
	}
	filter := scanline[0]
	data := scanline[1:]

	switch filter {
	case 0: // None
	case 1: // Sub
		for i := bytesPerPixel; i < len(data); i++ {
			data[i] = data[i] + data[i-bytesPerPixel]
		}
	case 2: // Up - always a no-op since "above" is zero
	case 3: // Average
		// The first bytesPerPixel bytes have a zero left and a zero above
		// neighbour, so their predictor is zero and they stay as stored.
		for i := bytesPerPixel; i < len(data); i++ {
			left := int(data[i-bytesPerPixel])
			data[i] = data[i] + uint8(left/2)
		}
	case 4: // Paeth
		for i := 0; i < bytesPerPixel && i < len(data); i++ {
			data[i] = data[i] + paethPredictor(0, 0, 0)
		}
		for i := bytesPerPixel; i < len(data); i++ {
			data[i] = data[i] + paethPredictor(data[i-bytesPerPixel], 0, 0)
		}
	default:
		return CorruptDataError("unknown prediction filter byte")
	}
	return nil
}

// deflateDecodeWithPrediction decompresses then reverses the PNG
// prediction filter scanline by scanline. Each decompressed scanline is
// scanlineWidth data bytes prefixed by one filter byte, laid out
// back-to-back with no overlap - unlike the reference C implementation's
// loop, whose stride advances by scanlineWidth instead of
// scanlineWidth+1 and so reads each scanline's filter byte out of the
// tail of the previous (already-reversed) scanline. That is a stride bug
// in the reference code, not an intentional format detail; this port
// uses the non-overlapping stride the format (and the rest of the
// reference implementation's own comments) describes. See DESIGN.md.
func deflateDecodeWithPrediction(compressed []byte, scanlineWidth, bytesPerPixel, rows int) ([]byte, error) {
	if scanlineWidth <= 0 {
		return nil, ArgumentError("zero scanline width")
	}
	scanlineLen := scanlineWidth + 1
	wantLen := scanlineLen * rows

	decompressed, err := deflateDecode(compressed, wantLen)
	if err != nil {
		return nil, errors.Wrap(err, "psd: deflate+prediction")
	}

	out := make([]byte, 0, scanlineWidth*rows)
	for offset := 0; offset+scanlineLen <= len(decompressed); offset += scanlineLen {
		scanline := decompressed[offset : offset+scanlineLen]
		if err := reversePredictionScanline(scanline, bytesPerPixel); err != nil {
			return nil, err
		}
		out = append(out, scanline[1:]...)
	}
	return out, nil
}
