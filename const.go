package psd

// A PSD/PSB file contains a header, color mode data, image resources,
// layer and mask information, and finally composite image data.
// Multi-byte integers are big-endian throughout. The "large document"
// (PSB) variant widens several length fields from 4 to 8 bytes; see
// lengthField in stream.go for where that applies and where it doesn't.
//
// Resources:
// https://www.adobe.com/devnet-apps/photoshop/fileformatashtml/

const (
	sigPSD  = "8BPS" // file signature, present in both PSD and PSB
	sig8BIM = 0x3842494D
	sig8B64 = 0x38423634

	versionPSD = 1
	versionPSB = 2

	maxChannels           = 56
	maxDimensionStandard  = 30000
	maxDimensionLarge     = 300000
	paletteSize           = 768 // 256 R + 256 G + 256 B bytes of indexed color-mode data
	maxLayerExtraBytes    = 1 << 20  // layers with a bigger declared extra-data length are treated as empty
	maxLayerExtraScanSize = 10 << 20 // extra-data bigger than this is not scanned for tagged blocks at all
	maxDescriptorProps    = 1000000  // sanity cap on a single descriptor's property count
	boundsMagnitudeLimit  = 1000000  // layer bounds coordinates beyond this are implausible
)

// ColorMode identifies a document's (or a channel plane's) color space, as
// stored in the header.
type ColorMode uint16

// Color modes as they appear in the PSD/PSB header. Unrecognized values are
// preserved numerically rather than rejected; String falls back to a
// generic label for them.
const (
	ColorModeBitmap       ColorMode = 0
	ColorModeGrayscale    ColorMode = 1
	ColorModeIndexed      ColorMode = 2
	ColorModeRGB          ColorMode = 3
	ColorModeCMYK         ColorMode = 4
	ColorModeMultichannel ColorMode = 7
	ColorModeDuotone      ColorMode = 8
	ColorModeLab          ColorMode = 9
)

func (m ColorMode) String() string {
	switch m {
	case ColorModeBitmap:
		return "Bitmap"
	case ColorModeGrayscale:
		return "Grayscale"
	case ColorModeIndexed:
		return "Indexed"
	case ColorModeRGB:
		return "RGB"
	case ColorModeCMYK:
		return "CMYK"
	case ColorModeMultichannel:
		return "Multichannel"
	case ColorModeDuotone:
		return "Duotone"
	case ColorModeLab:
		return "Lab"
	default:
		return "Unknown"
	}
}

// baseChannelCount returns how many color (non-alpha, non-mask) channels a
// layer in this mode normally carries; used by the background-layer
// predicate.
func (m ColorMode) baseChannelCount() int {
	switch m {
	case ColorModeBitmap, ColorModeGrayscale, ColorModeIndexed, ColorModeDuotone:
		return 1
	case ColorModeRGB, ColorModeLab:
		return 3
	case ColorModeCMYK:
		return 4
	default:
		return 0 // Multichannel and anything unrecognized: predicate never matches
	}
}

// Compression identifies how a channel's (or the composite image's) pixel
// plane is encoded on disk.
type Compression uint16

const (
	CompressionRaw              Compression = 0
	CompressionRLE              Compression = 1
	CompressionZIP              Compression = 2
	CompressionZIPWithPrediction Compression = 3
)

// Tagged-block keys recognized inside a layer's additional information
// area, stored as the big-endian uint32 of their 4-byte ASCII form.
const (
	keyTySh = 0x54795368 // "TySh"
	keytySh = 0x74795368 // "tySh" (legacy Photoshop 5/5.5)
	keySoLd = 0x536f4c64 // "SoLd"
	keySoLE = 0x536f4c45 // "SoLE"
	keylfx2 = 0x6c667832 // "lfx2"
	keyvmsk = 0x766d736b // "vmsk"
	keyvmns = 0x766d6e73 // "vmns"
	keyvtrk = 0x7674726b // "vtrk"
	keylsct = 0x6c736374 // "lsct"
	keyluni = 0x6c756e69 // "luni"
	keySoCo = 0x536f436f // "SoCo"
	keyGdFl = 0x4764466c // "GdFl"
	keyPtFl = 0x5074466c // "PtFl"
)

// adjustmentKeys enumerates the tagged-block keys that mark an adjustment
// layer beyond the generic "adj"-prefixed family.
var adjustmentKeys = map[uint32]bool{
	be32("brit"): true,
	be32("levl"): true,
	be32("curv"): true,
	be32("hue "): true,
	be32("hue2"): true,
	be32("blnc"): true,
	be32("vibA"): true,
	be32("expA"): true,
	be32("mixr"): true,
	be32("selc"): true,
	be32("thrs"): true,
	be32("post"): true,
	be32("phfl"): true,
	be32("grdm"): true,
	be32("clrL"): true,
}

// be32 packs a 4-byte ASCII tag into its big-endian uint32 form, matching
// how tagged-block keys are compared once read off the wire.
func be32(s string) uint32 {
	b := []byte(s)
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// LayerType is the derived classification of a layer from its feature
// bitset, in the priority order the parser applies.
type LayerType int

const (
	LayerTypeEmpty LayerType = iota
	LayerTypePixel
	LayerTypeGroupStart
	LayerTypeGroupEnd
	LayerTypeText
	LayerTypeSmartObject
	LayerTypeAdjustment
	LayerTypeFill
	LayerTypeEffects
	LayerType3D
	LayerTypeVideo
)

func (t LayerType) String() string {
	switch t {
	case LayerTypeGroupStart:
		return "GroupStart"
	case LayerTypeGroupEnd:
		return "GroupEnd"
	case LayerTypeText:
		return "Text"
	case LayerTypeSmartObject:
		return "SmartObject"
	case LayerTypeAdjustment:
		return "Adjustment"
	case LayerTypeFill:
		return "Fill"
	case LayerTypeEffects:
		return "Effects"
	case LayerType3D:
		return "3D"
	case LayerTypeVideo:
		return "Video"
	case LayerTypePixel:
		return "Pixel"
	default:
		return "Empty"
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
