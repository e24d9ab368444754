package psd

import "github.com/pkg/errors"

// header holds the fixed-layout fields every PSD/PSB file opens with.
// Field order and widths mirror psd_parse_header: 4-byte signature,
// 2-byte version, 6 reserved bytes, channel count, height, width, depth,
// color mode.
type header struct {
	isLarge  bool
	channels uint16
	height   uint32
	width    uint32
	depth    uint16
	mode     ColorMode
}

func parseHeader(s *source) (header, error) {
	var h header

	sig, err := s.read(4)
	if err != nil {
		return h, err
	}
	if string(sig) != sigPSD {
		return h, FormatError("bad signature")
	}

	version, err := s.u16()
	if err != nil {
		return h, err
	}
	switch version {
	case versionPSD:
		h.isLarge = false
	case versionPSB:
		h.isLarge = true
	default:
		return h, FormatError("unsupported version")
	}

	if err := s.skip(6); err != nil { // reserved, must be zero; not validated
		return h, err
	}

	if h.channels, err = s.u16(); err != nil {
		return h, err
	}
	if h.channels < 1 || h.channels > maxChannels {
		return h, FormatError("channel count out of range")
	}

	if h.height, err = s.u32(); err != nil {
		return h, err
	}
	if h.width, err = s.u32(); err != nil {
		return h, err
	}
	maxDim := uint32(maxDimensionStandard)
	if h.isLarge {
		maxDim = maxDimensionLarge
	}
	if h.height == 0 || h.height > maxDim || h.width == 0 || h.width > maxDim {
		return h, FormatError("dimensions out of range")
	}

	if h.depth, err = s.u16(); err != nil {
		return h, err
	}
	switch h.depth {
	case 1, 8, 16, 32:
	default:
		return h, FormatError("unsupported bit depth")
	}

	mode, err := s.u16()
	if err != nil {
		return h, err
	}
	h.mode = ColorMode(mode) // unknown modes are preserved, not rejected

	return h, nil
}

// parseColorModeData reads the color-mode data section. Its length
// prefix is always 4 bytes in both PSD and PSB - unlike most
// layer/mask-info lengths, this one never widens for PSB.
func parseColorModeData(s *source) ([]byte, error) {
	n, err := s.u32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	data, err := s.read(int(n))
	if err != nil {
		return nil, errors.Wrap(err, "psd: reading color mode data")
	}
	return data, nil
}

// ImageResource is one block from the image resources section: a
// numeric id, an optional Pascal-string name, and an opaque payload.
// Unknown ids are preserved verbatim.
type ImageResource struct {
	ID   uint16
	Name string
	Data []byte
}

// parseResources reads the image resources section. Its length prefix
// is always 4 bytes; so is every per-block payload length. Only the
// Pascal-string name and the payload are padded to even.
func parseResources(s *source) ([]ImageResource, error) {
	sectionLen, err := s.u32()
	if err != nil {
		return nil, err
	}
	if sectionLen == 0 {
		return nil, nil
	}
	sectionEnd := s.tell() + int64(sectionLen)

	var resources []ImageResource
	for s.tell() < sectionEnd {
		sig, err := s.u32()
		if err != nil {
			return resources, err
		}
		if sig != sig8BIM && sig != sig8B64 {
			// Unknown signature: the rest of the section is not
			// interpretable. Resources are optional metadata; recover by
			// seeking to the section end and keeping what we have.
			if err := s.seek(sectionEnd); err != nil {
				return resources, err
			}
			break
		}

		id, err := s.u16()
		if err != nil {
			return resources, err
		}

		nameLen, err := s.u8()
		if err != nil {
			return resources, err
		}
		name, err := s.read(int(nameLen))
		if err != nil {
			return resources, err
		}
		// Name length byte plus name bytes, padded to even (the length
		// byte itself counts toward the padding).
		if (int(nameLen)+1)%2 != 0 {
			if err := s.skip(1); err != nil {
				return resources, err
			}
		}

		dataLen, err := s.u32()
		if err != nil {
			return resources, err
		}
		data, err := s.read(int(dataLen))
		if err != nil {
			return resources, err
		}
		if dataLen%2 != 0 {
			if err := s.skip(1); err != nil {
				return resources, err
			}
		}

		resources = append(resources, ImageResource{ID: id, Name: string(name), Data: data})
	}

	if s.tell() != sectionEnd {
		if err := s.seek(sectionEnd); err != nil {
			return resources, err
		}
	}
	return resources, nil
}
