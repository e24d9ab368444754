package psd

import (
	"bytes"
	"strconv"

	"golang.org/x/image/math/f64"

	"github.com/pkg/errors"
)

// TextLayerEntry is the parsed content of a text layer's "TySh" tagged
// block: the text-to-document transform, the descriptor carrying the
// actual string and styling, and the layer's text bounding box.
//
// The warp descriptor that follows the text descriptor on disk is not
// parsed field by field - it is variable-length and this package has no
// use for warp geometry. Instead the fixed-size bounds quad that follows
// it is located by its known offset from the end of the block, which is
// far more robust than tracking the warp descriptor's shape across
// Photoshop versions.
type TextLayerEntry struct {
	Transform  f64.Aff3 // xx xy yx yy tx ty
	Descriptor *Descriptor
	Bounds     [4]float64 // left, top, right, bottom

	textVersion uint16
}

// TextEntry lazily parses and returns this layer's text content. ok is
// false for layers with no "TySh"/"tySh" tagged block.
func (l *Layer) TextEntry() (entry *TextLayerEntry, ok bool, err error) {
	if l.textEntryParsed {
		return l.textEntry, l.textEntry != nil, nil
	}
	l.textEntryParsed = true

	payload, found := findTaggedBlock(l.rawExtra, keyTySh)
	if !found {
		payload, found = findTaggedBlock(l.rawExtra, keytySh)
	}
	if !found {
		return nil, false, nil
	}

	entry, err = parseTextLayerEntry(payload)
	if err != nil {
		return nil, false, errors.Wrap(err, "psd: parsing text layer")
	}
	l.textEntry = entry
	return entry, true, nil
}

func parseTextLayerEntry(payload []byte) (*TextLayerEntry, error) {
	s := newSource(bytes.NewReader(payload), int64(len(payload)))

	if _, err := s.u16(); err != nil { // block version, always 1
		return nil, err
	}

	var transform f64.Aff3
	for i := range transform {
		v, err := s.f64()
		if err != nil {
			return nil, err
		}
		transform[i] = v
	}

	textVersion, err := s.u16()
	if err != nil {
		return nil, err
	}
	if _, err := s.u32(); err != nil { // descriptor version, always 16
		return nil, err
	}
	desc, err := parseDescriptor(s)
	if err != nil {
		return nil, errors.Wrap(err, "psd: text descriptor")
	}

	entry := &TextLayerEntry{Transform: transform, Descriptor: desc, textVersion: textVersion}

	const boundsSize = 4 * 8
	if len(payload) >= boundsSize {
		bs := newSource(bytes.NewReader(payload), int64(len(payload)))
		if err := bs.seek(int64(len(payload) - boundsSize)); err != nil {
			return nil, err
		}
		for i := range entry.Bounds {
			v, err := bs.f64()
			if err != nil {
				return nil, err
			}
			entry.Bounds[i] = v
		}
	}

	return entry, nil
}

// Text returns the text layer's string content, the first "Txt "
// property found in its descriptor or in any nested object or list.
func (e *TextLayerEntry) Text() string {
	if v, ok := e.Descriptor.Find("Txt "); ok && v.Kind == KindString {
		return v.String
	}
	return ""
}

// DefaultStyle is a best-effort extraction of the dominant run's styling
// out of EngineData, Photoshop's own PostScript-plist-like text format
// that this package does not otherwise parse. Fields are zero-valued
// when not found.
type DefaultStyle struct {
	Font          string
	FontSize      float64
	Tracking      float64
	Leading       float64
	AutoLeading   bool
	Justification string
	FillColorRGB  [3]float64
}

// DefaultStyle scans the text layer's raw EngineData for the handful of
// style properties most callers want, without parsing the format fully.
func (e *TextLayerEntry) DefaultStyle() (DefaultStyle, bool) {
	v, ok := e.Descriptor.Find("EngineData")
	if !ok || v.Kind != KindRawBytes {
		return DefaultStyle{}, false
	}
	data := v.RawBytes
	var style DefaultStyle

	if i := bytes.Index(data, []byte("/FontSet")); i >= 0 {
		if name, ok := scanNameAfter(data, i, "Name"); ok {
			style.Font = name
		}
	}
	if i := bytes.Index(data, []byte("/Font")); i >= 0 && style.Font == "" {
		if name, ok := scanTokenAfter(data, i+len("/Font")); ok {
			style.Font = name
		}
	}
	if i := bytes.Index(data, []byte("/FontSize")); i >= 0 {
		if n, ok := scanNumberAfter(data, i+len("/FontSize")); ok {
			style.FontSize = n
		}
	}
	if i := bytes.Index(data, []byte("/Tracking")); i >= 0 {
		if n, ok := scanNumberAfter(data, i+len("/Tracking")); ok {
			style.Tracking = n
		}
	}
	if i := bytes.Index(data, []byte("/AutoLeading")); i >= 0 {
		if tok, ok := scanTokenAfter(data, i+len("/AutoLeading")); ok {
			style.AutoLeading = tok == "true"
		}
	} else if i := bytes.Index(data, []byte("/Leading")); i >= 0 {
		if n, ok := scanNumberAfter(data, i+len("/Leading")); ok {
			style.Leading = n
		}
	}
	if i := bytes.Index(data, []byte("/Justification")); i >= 0 {
		if tok, ok := scanTokenAfter(data, i+len("/Justification")); ok {
			style.Justification = tok
		}
	}
	if i := bytes.Index(data, []byte("/FillColor")); i >= 0 {
		if j := bytes.Index(data[i:], []byte("/Values")); j >= 0 {
			pos := i + j + len("/Values")
			for k := 0; k < 3; k++ {
				n, next, ok := scanNumberAt(data, pos)
				if !ok {
					break
				}
				style.FillColorRGB[k] = n
				pos = next
			}
		}
	}

	return style, true
}

// scanTokenAfter returns the next whitespace/paren-delimited token
// starting at or after from.
func scanTokenAfter(data []byte, from int) (string, bool) {
	i := from
	for i < len(data) && isPlistSpace(data[i]) {
		i++
	}
	start := i
	for i < len(data) && !isPlistSpace(data[i]) && data[i] != '/' && data[i] != '(' && data[i] != ')' {
		i++
	}
	if i == start {
		return "", false
	}
	return string(data[start:i]), true
}

// scanNameAfter finds the first "/<nameKey> (<value>)" pair at or after
// from and returns <value>.
func scanNameAfter(data []byte, from int, nameKey string) (string, bool) {
	i := bytes.Index(data[from:], []byte("/"+nameKey))
	if i < 0 {
		return "", false
	}
	start := from + i + len("/"+nameKey)
	open := bytes.IndexByte(data[start:], '(')
	if open < 0 {
		return "", false
	}
	closeParen := bytes.IndexByte(data[start+open:], ')')
	if closeParen < 0 {
		return "", false
	}
	return string(data[start+open+1 : start+open+closeParen]), true
}

func scanNumberAfter(data []byte, from int) (float64, bool) {
	n, _, ok := scanNumberAt(data, from)
	return n, ok
}

func scanNumberAt(data []byte, from int) (value float64, next int, ok bool) {
	i := from
	for i < len(data) && isPlistSpace(data[i]) {
		i++
	}
	start := i
	if i < len(data) && (data[i] == '-' || data[i] == '+') {
		i++
	}
	for i < len(data) && (data[i] >= '0' && data[i] <= '9' || data[i] == '.') {
		i++
	}
	if i == start {
		return 0, from, false
	}
	v, err := strconv.ParseFloat(string(data[start:i]), 64)
	if err != nil {
		return 0, from, false
	}
	return v, i, true
}

func isPlistSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
