package psd

// Resources:
// https://www.adobe.com/devnet-apps/photoshop/fileformatashtml/
// the original_source/ OpenPSD C implementation this package's parsing
// heuristics are grounded on.

import (
	"bytes"
	"image"
	"image/color"
	"io"

	"github.com/pkg/errors"
)

// Parse parses a PSD/PSB document from r, which must support random
// access (ReaderAt) sized to size.
func Parse(r io.ReaderAt, size int64) (*Document, error) {
	s := newSource(r, size)
	return parseDocument(s)
}

// ParseReader parses a PSD/PSB document from a plain io.Reader, draining
// it into memory first if it doesn't already support random access.
func ParseReader(r io.Reader) (*Document, error) {
	s, err := newReaderAtSource(r)
	if err != nil {
		return nil, err
	}
	return parseDocument(s)
}

// DecodeConfig returns the color model and dimensions of a PSD/PSB
// document without decoding layers or the composite image.
func DecodeConfig(r io.Reader) (image.Config, error) {
	s, err := newReaderAtSource(r)
	if err != nil {
		return image.Config{}, err
	}
	h, err := parseHeader(s)
	if err != nil {
		return image.Config{}, errors.Wrap(err, "psd: header")
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      int(h.width),
		Height:     int(h.height),
	}, nil
}

// Decode reads a PSD/PSB document from r and returns its flattened
// composite image, rendered to RGBA. Callers that need the layer tree,
// text content, or image resources should use Parse/ParseReader instead.
func Decode(r io.Reader) (image.Image, error) {
	doc, err := ParseReader(r)
	if err != nil {
		return nil, err
	}
	return doc.RenderComposite()
}

func init() {
	image.RegisterFormat("psd", sigPSD, Decode, DecodeConfig)
}

// RenderComposite renders the document's flattened preview image to
// interleaved 8-bit RGBA.
func (d *Document) RenderComposite() (*image.NRGBA, error) {
	if d.composite == nil {
		return nil, ArgumentError("document has no composite image data")
	}
	base := d.header.mode.baseChannelCount()
	if base == 0 || len(d.composite.Channels) < base {
		return nil, UnsupportedError("rendering this color mode")
	}

	color := d.composite.Channels[:base]
	var alpha []byte
	if len(d.composite.Channels) > base {
		alpha = d.composite.Channels[base]
	}

	return renderPlanes(d.header.mode, d.header.depth, d.Width(), d.Height(), color, alpha, d.ColorModeData)
}

// RenderLayer renders a single layer's pixel channels to interleaved
// 8-bit RGBA, sized to the layer's own bounding box.
func (d *Document) RenderLayer(l *Layer) (*image.NRGBA, error) {
	if l.Bounds.empty() {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0)), nil
	}

	base := d.header.mode.baseChannelCount()
	if base == 0 {
		return nil, UnsupportedError("rendering this color mode")
	}

	color := make([][]byte, base)
	for id := 0; id < base; id++ {
		ch := l.Channel(int16(id))
		if ch == nil {
			return nil, CorruptDataError("layer is missing an expected color channel")
		}
		plane, err := ch.Decode()
		if err != nil {
			return nil, errors.Wrap(err, "psd: rendering layer")
		}
		color[id] = plane
	}

	var alpha []byte
	if ach := l.Channel(-1); ach != nil {
		plane, err := ach.Decode()
		if err != nil {
			return nil, errors.Wrap(err, "psd: rendering layer alpha")
		}
		alpha = plane
	}

	return renderPlanes(d.header.mode, d.header.depth, l.Bounds.Width(), l.Bounds.Height(), color, alpha, d.ColorModeData)
}

// magicLooksLikePSD is a defensive helper for callers that want to sniff
// a buffer before handing it to Parse.
func magicLooksLikePSD(b []byte) bool {
	return bytes.HasPrefix(b, []byte(sigPSD))
}
