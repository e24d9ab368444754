package psd

import "github.com/pkg/errors"

// Rect is a layer's pixel bounding box, top-left inclusive /
// bottom-right exclusive, matching image.Rectangle's convention.
type Rect struct {
	Top, Left, Bottom, Right int32
}

func (r Rect) Width() int  { return int(r.Right - r.Left) }
func (r Rect) Height() int { return int(r.Bottom - r.Top) }
func (r Rect) empty() bool { return r.Bottom <= r.Top || r.Right <= r.Left }

// ChannelRecord is one planar component of a layer: a color channel
// (id 0..n), the alpha channel (id -1), or a layer/vector mask (id -2 /
// -3). Pixel bytes are decoded lazily; see ChannelRecord.Decode.
type ChannelRecord struct {
	ID          int16
	Compression Compression

	compressed []byte
	decoded    []byte
	isDecoded  bool

	width, height int
	depth         uint16
	compressedLen int64
}

// FeatureBitset records which kinds of additional layer information a
// layer carries. Multiple flags may coexist on the same layer.
type FeatureBitset struct {
	GroupStart    bool
	GroupEnd      bool
	HasText       bool
	HasVectorMask bool
	SmartObject   bool
	Adjustment    bool
	Fill          bool
	Effects       bool
	ThreeD        bool
	Video         bool
}

// Layer is one entry of the layer tree, stored bottom-to-top as on disk.
type Layer struct {
	Bounds         Rect
	Channels       []*ChannelRecord
	BlendSignature string
	BlendKey       string
	Opacity        uint8
	Clipping       uint8
	Flags          uint8
	Name           string
	Features       FeatureBitset

	boundsImplausible bool
	rawExtra          []byte // retained for the text-layer subsystem's own pass
	textEntry         *TextLayerEntry
	textEntryParsed   bool
}

// findTaggedBlock rescans a layer's raw extra-data bytes for the first
// tagged block matching key, independent of the classification scan that
// ran when the layer was parsed. Kept as its own pass (rather than
// caching every block's payload up front) because most layers never need
// it - only text layers re-scan for "TySh".
func findTaggedBlock(data []byte, key uint32) ([]byte, bool) {
	pos := 0
	for pos+12 <= len(data) {
		sig := be32frombytes(data[pos : pos+4])
		blockKey := be32frombytes(data[pos+4 : pos+8])
		blockLen := be32frombytes(data[pos+8 : pos+12])
		blockTotal := 12 + int(blockLen)
		if blockLen%2 != 0 {
			blockTotal++
		}
		if blockTotal > len(data)-pos {
			return nil, false
		}
		if (sig == sig8BIM || sig == sig8B64) && blockKey == key {
			return data[pos+12 : pos+12+int(blockLen)], true
		}
		pos += blockTotal
	}
	return nil, false
}

// Type derives this layer's classification from its feature bitset, in
// the priority order the parser applies: group markers first, then
// content-defining features, finally plain pixel content or empty.
func (l *Layer) Type() LayerType {
	switch {
	case l.Features.GroupStart:
		return LayerTypeGroupStart
	case l.Features.GroupEnd:
		return LayerTypeGroupEnd
	case l.Features.HasText:
		return LayerTypeText
	case l.Features.SmartObject:
		return LayerTypeSmartObject
	case l.Features.Adjustment:
		return LayerTypeAdjustment
	case l.Features.Fill:
		return LayerTypeFill
	case l.Features.Effects:
		return LayerTypeEffects
	case l.Features.ThreeD:
		return LayerType3D
	case l.Features.Video:
		return LayerTypeVideo
	case len(l.Channels) > 0:
		return LayerTypePixel
	default:
		return LayerTypeEmpty
	}
}

// isBackgroundLayer reports whether layers[index] satisfies the
// background-layer predicate: bottom-most (index 0, since layers are
// stored bottom-to-top), flags bit 2 set, no alpha channel, no mask
// data, no vector mask, and a channel count matching the document's base
// channel count for its color mode.
func isBackgroundLayer(layers []*Layer, index int, mode ColorMode) bool {
	if index != 0 {
		return false
	}
	l := layers[index]
	if l.Flags&0x04 == 0 {
		return false
	}
	if l.Features.HasVectorMask {
		return false
	}
	base := mode.baseChannelCount()
	if base == 0 || len(l.Channels) != base {
		return false
	}
	for _, ch := range l.Channels {
		if ch.ID < 0 {
			return false
		}
	}
	return true
}

// layerAndMaskInfo is the result of parsing the layer and mask
// information section: the layer tree plus whether the document carries
// a dedicated transparency plane.
type layerAndMaskInfo struct {
	layers             []*Layer
	hasTransparencePlane bool
}

// parseLayerAndMaskInfo parses the layer-and-mask-info section that
// follows image resources. This is the hardest section in the format
// because of writer disagreement on 32-bit vs 64-bit length fields at
// three separate points (outer section, inner subsection, per-channel
// length) plus a battery of plausibility heuristics real files need.
func parseLayerAndMaskInfo(s *source, h header, fileSize int64) (layerAndMaskInfo, error) {
	var result layerAndMaskInfo

	outerLen, err := probeLengthField(s, h.isLarge, func(length uint64, end int64) bool {
		return end <= fileSize
	})
	if err != nil {
		return result, err
	}
	if outerLen == 0 {
		return result, nil
	}
	outerEnd := s.tell() + int64(outerLen)
	if outerEnd > fileSize {
		outerEnd = fileSize
	}

	innerLen, err := probeLengthField(s, h.isLarge, func(length uint64, end int64) bool {
		return end <= outerEnd
	})
	if err != nil {
		return result, err
	}
	if innerLen == 0 {
		if err := s.seek(outerEnd); err != nil {
			return result, err
		}
		return result, nil
	}
	innerEnd := s.tell() + int64(innerLen)
	if innerEnd > outerEnd {
		innerEnd = outerEnd
	}

	count, err := s.i16()
	if err != nil {
		return result, err
	}
	if count < 0 {
		result.hasTransparencePlane = true
		count = -count
	}

	layers := make([]*Layer, 0, count)
	for i := 0; i < int(count); i++ {
		layer, stop, err := parseOneLayer(s, h, innerEnd, i, layers)
		if err != nil {
			return result, err
		}
		if layer != nil {
			layers = append(layers, layer)
		}
		if stop {
			result.layers = layers
			if err := s.seek(outerEnd); err != nil {
				return result, err
			}
			return result, nil
		}
	}

	if err := parseChannelImageData(s, layers, innerEnd); err != nil {
		return result, err
	}

	// Global layer mask info: plain 4-byte length, no dual-width probe here.
	if s.tell()+4 <= innerEnd {
		maskLen, err := s.u32()
		if err != nil {
			return result, err
		}
		if err := s.skip(int64(maskLen)); err != nil {
			return result, err
		}
	}

	if s.tell() < outerEnd {
		if err := s.seek(outerEnd); err != nil {
			return result, err
		}
	} else if s.tell() > outerEnd {
		return result, CorruptDataError("layer and mask info overran its section")
	}

	result.layers = layers
	return result, nil
}

// parseOneLayer parses a single layer record (bounds, channels, blend
// mode, flags, and additional layer information). stop is true when the
// record's extra-data length is implausible and skipping it would
// overrun the section - at that point the caller must abandon the rest
// of the layer loop.
func parseOneLayer(s *source, h header, innerEnd int64, index int, priorLayers []*Layer) (layer *Layer, stop bool, err error) {
	l := &Layer{}

	top, err := s.i32()
	if err != nil {
		return nil, false, err
	}
	left, err := s.i32()
	if err != nil {
		return nil, false, err
	}
	bottom, err := s.i32()
	if err != nil {
		return nil, false, err
	}
	right, err := s.i32()
	if err != nil {
		return nil, false, err
	}
	l.Bounds = Rect{Top: top, Left: left, Bottom: bottom, Right: right}
	l.boundsImplausible = classifyBoundsImplausible(l.Bounds, index, int32(h.width), int32(h.height))

	channelCount, err := s.u16()
	if err != nil {
		return nil, false, err
	}
	if channelCount > maxChannels {
		channelCount = 0 // clamp: treat as an empty layer rather than failing
	}

	l.Channels = make([]*ChannelRecord, 0, channelCount)
	for c := uint16(0); c < channelCount; c++ {
		id, err := s.i16()
		if err != nil {
			return nil, false, err
		}
		remaining := innerEnd - s.tell()
		length, err := readChannelLength(s, h.isLarge, remaining)
		if err != nil {
			return nil, false, err
		}
		l.Channels = append(l.Channels, &ChannelRecord{
			ID:     id,
			width:  l.Bounds.Width(),
			height: l.Bounds.Height(),
			depth:  h.depth,
		})
		_ = length // actual per-channel compressed length consumed in parseChannelImageData
		l.Channels[len(l.Channels)-1].compressedLen = int64(length)
	}

	sigBytes, err := s.read(4)
	if err != nil {
		return nil, false, err
	}
	keyBytes, err := s.read(4)
	if err != nil {
		return nil, false, err
	}
	sig, key := string(sigBytes), string(keyBytes)
	validSig := sig == "8BIM" || sig == "8B64"
	if !validSig && l.boundsImplausible {
		sig, key = "8BIM", "norm"
	}
	l.BlendSignature, l.BlendKey = sig, key

	opacity, err := s.u8()
	if err != nil {
		return nil, false, err
	}
	clipping, err := s.u8()
	if err != nil {
		return nil, false, err
	}
	flags, err := s.u8()
	if err != nil {
		return nil, false, err
	}
	if _, err := s.u8(); err != nil { // filler byte
		return nil, false, err
	}
	l.Opacity, l.Clipping, l.Flags = opacity, clipping, flags

	extraLen, err := s.u32()
	if err != nil {
		return nil, false, err
	}

	if extraLen > maxLayerExtraBytes {
		if s.tell()+int64(extraLen) > innerEnd {
			return l, true, nil
		}
		if err := s.skip(int64(extraLen)); err != nil {
			return nil, false, err
		}
		return l, false, nil
	}

	if extraLen == 0 {
		return l, false, nil
	}

	extra, err := s.read(int(extraLen))
	if err != nil {
		return nil, false, errors.Wrapf(err, "psd: layer %d extra data", index)
	}
	l.rawExtra = extra
	parseLayerExtra(l, extra)

	return l, false, nil
}

// classifyBoundsImplausible flags bounds that are outright corrupt while
// recognizing two legitimate shapes the reference reader special-cases:
// a full-image layer, and a known layer-0 misalignment signature that is
// always rejected even though it would otherwise pass the generic checks.
func classifyBoundsImplausible(b Rect, index int, width, height int32) bool {
	fullImage := b.Top == 0 && b.Left == 0 && b.Bottom == height && b.Right == width
	if fullImage {
		return false
	}
	if index == 0 && b.Right == height && b.Top > boundsMagnitudeLimit && b.Left == 0 && b.Bottom == 0 {
		return true
	}
	abs := func(v int32) int32 {
		if v < 0 {
			return -v
		}
		return v
	}
	if abs(b.Top) > boundsMagnitudeLimit || abs(b.Left) > boundsMagnitudeLimit ||
		abs(b.Bottom) > boundsMagnitudeLimit || abs(b.Right) > boundsMagnitudeLimit {
		return true
	}
	if b.Bottom < b.Top || b.Right < b.Left {
		return true
	}
	return false
}

// readChannelLength reads a channel's data length with the same
// dual-width fallback idea as the section-level probes: in large format
// the 8-byte reading is tried first, but if the resulting value couldn't
// possibly fit in what remains of the inner subsection it is re-read as
// 4 bytes at the same offset.
func readChannelLength(s *source, large bool, remaining int64) (uint64, error) {
	start := s.tell()
	n, err := s.lengthField(large)
	if err != nil {
		return 0, err
	}
	if large && int64(n) > remaining {
		if err := s.seek(start); err != nil {
			return 0, err
		}
		n2, err := s.u32()
		if err != nil {
			return 0, err
		}
		return uint64(n2), nil
	}
	return n, nil
}

// parseLayerExtra parses the inner layout of a layer's additional
// information: mask data, blending ranges, the legacy Pascal-string
// name, then a scan over tagged blocks that sets feature flags and may
// override the name via a "luni" block.
func parseLayerExtra(l *Layer, data []byte) {
	pos := 0
	readU32 := func() (uint32, bool) {
		if pos+4 > len(data) {
			return 0, false
		}
		v := uint32(data[pos])<<24 | uint32(data[pos+1])<<16 | uint32(data[pos+2])<<8 | uint32(data[pos+3])
		pos += 4
		return v, true
	}

	// A length that claims more bytes than remain ends the scan for this
	// layer; whatever was extracted before it is kept.
	maskLen, ok := readU32()
	if !ok || int(maskLen) > len(data)-pos {
		return
	}
	pos += int(maskLen)
	blendLen, ok := readU32()
	if !ok || int(blendLen) > len(data)-pos {
		return
	}
	pos += int(blendLen)

	if pos < len(data) {
		nameLen := int(data[pos])
		nameTotal := 1 + nameLen
		if nameTotal%4 != 0 {
			nameTotal += 4 - nameTotal%4
		}
		if pos+nameTotal > len(data) {
			return
		}
		name := data[pos+1 : pos+1+nameLen]
		if l.Name == "" {
			l.Name = macRomanToUTF8(name)
		}
		pos += nameTotal
	}

	for pos+12 <= len(data) {
		sig := be32frombytes(data[pos : pos+4])
		key := be32frombytes(data[pos+4 : pos+8])
		blockLen := be32frombytes(data[pos+8 : pos+12])
		blockTotal := 12 + int(blockLen)
		if blockLen%2 != 0 {
			blockTotal++
		}
		if blockTotal > len(data)-pos {
			break
		}
		payload := data[pos+12 : pos+12+int(blockLen)]

		if sig == sig8BIM || sig == sig8B64 {
			applyTaggedBlock(l, key, payload)
		}
		pos += blockTotal
	}
}

func be32frombytes(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func applyTaggedBlock(l *Layer, key uint32, payload []byte) {
	switch {
	case key == keyTySh || key == keytySh:
		l.Features.HasText = true
	case key == keySoLd || key == keySoLE:
		l.Features.SmartObject = true
	case key == keylfx2:
		l.Features.Effects = true
	case key == keyvmsk || key == keyvmns:
		l.Features.HasVectorMask = true
	case key == keyvtrk:
		l.Features.Video = true
	case key == keySoCo || key == keyGdFl || key == keyPtFl:
		l.Features.Fill = true
	case key == keylsct:
		l.Features.GroupStart = false
		if len(payload) >= 4 {
			sectionType := be32frombytes(payload[0:4])
			switch sectionType {
			case 1, 2:
				l.Features.GroupStart = true
			case 3:
				l.Features.GroupEnd = true
			}
		}
	case key == keyluni:
		if len(payload) >= 4 {
			n := be32frombytes(payload[0:4])
			end := 4 + int(n)*2
			if end <= len(payload) {
				l.Name = utf16beToUTF8(payload[4:end])
			}
		}
	case isAdjustmentKey(key):
		l.Features.Adjustment = true
	case is3DKey(key):
		l.Features.ThreeD = true
	}
}

func isAdjustmentKey(key uint32) bool {
	if adjustmentKeys[key] {
		return true
	}
	b := []byte{byte(key >> 24), byte(key >> 16), byte(key >> 8), byte(key)}
	return b[0] == 'a' && b[1] == 'd' && b[2] == 'j'
}

func is3DKey(key uint32) bool {
	b := []byte{byte(key >> 24), byte(key >> 16), byte(key >> 8), byte(key)}
	return b[0] == '3' && b[1] == 'd' && b[2] == 'L'
}

// parseChannelImageData reads the per-channel compressed pixel bytes
// that follow all layer records. Writers disagree on whether a
// channel's declared length includes its own 2-byte compression code;
// the variant that exactly consumes the remaining bytes of the inner
// subsection is selected, defaulting to "length includes the
// compression field" on a tie or when neither matches.
func parseChannelImageData(s *source, layers []*Layer, innerEnd int64) error {
	var totalChannels int
	var sumLengths int64
	for _, l := range layers {
		for _, ch := range l.Channels {
			totalChannels++
			sumLengths += ch.compressedLen
		}
	}
	remaining := innerEnd - s.tell()
	lengthsExcludeCompression := sumLengths+2*int64(totalChannels) == remaining

	for _, l := range layers {
		for _, ch := range l.Channels {
			declared := ch.compressedLen
			if !lengthsExcludeCompression {
				declared -= 2
			}
			if declared < 0 {
				declared = 0
			}
			code, err := s.u16()
			if err != nil {
				return err
			}
			if code > 3 {
				return CorruptDataError("unsupported channel compression code")
			}
			ch.Compression = Compression(code)
			buf, err := s.read(int(declared))
			if err != nil {
				return err
			}
			ch.compressed = buf
		}
	}
	return nil
}
