package psd

import "github.com/pkg/errors"

// ValueKind tags which wire variant a DescriptorValue holds.
type ValueKind int

const (
	KindInt ValueKind = iota
	KindDouble
	KindUnitFloat
	KindBool
	KindString
	KindEnum
	KindClass
	KindRawBytes
	KindList
	KindObject
	KindReference
)

const (
	descInt       = 0x6c6f6e67 // "long"
	descDouble    = 0x646f7562 // "doub"
	descUnitFloat = 0x556e7446 // "UntF"
	descUnitValue = 0x556e7456 // "UntV"
	descBool      = 0x626f6f6c // "bool"
	descString    = 0x54455854 // "TEXT"
	descEnum      = 0x656e756d // "enum"
	descClass     = 0x74797065 // "type"
	descRawBytes  = 0x72617773 // "raws"
	descList      = 0x566c4c73 // "VlLs"
	descObject    = 0x4f626a20 // "Obj "
	descReference = 0x72656620 // "ref "
)

// DescriptorValue is a tagged union over Photoshop's action-descriptor
// value kinds. Only the field matching Kind is meaningful.
type DescriptorValue struct {
	Kind ValueKind

	Int       int32
	Double    float64
	Unit      string // 4-byte unit tag, e.g. "#Pnt", for KindUnitFloat
	Bool      bool
	String    string
	EnumType  string
	EnumValue string
	ClassID   string
	RawBytes  []byte
	List      []DescriptorValue
	Object    *Descriptor
}

// Descriptor is a recursively-structured Photoshop action descriptor: a
// class id plus an ordered list of key/value properties.
type Descriptor struct {
	ClassID    string
	Properties []DescriptorProperty
}

type DescriptorProperty struct {
	Key   string
	Value DescriptorValue
}

// Get returns the first property with the given key at this descriptor's
// top level (not recursive).
func (d *Descriptor) Get(key string) (DescriptorValue, bool) {
	for _, p := range d.Properties {
		if p.Key == key {
			return p.Value, true
		}
	}
	return DescriptorValue{}, false
}

// Find searches this descriptor's properties recursively (into nested
// objects and lists) for the first value at a property keyed key.
func (d *Descriptor) Find(key string) (DescriptorValue, bool) {
	for _, p := range d.Properties {
		if p.Key == key {
			return p.Value, true
		}
		if v, ok := findInValue(p.Value, key); ok {
			return v, true
		}
	}
	return DescriptorValue{}, false
}

func findInValue(v DescriptorValue, key string) (DescriptorValue, bool) {
	if v.Kind == KindObject && v.Object != nil {
		if r, ok := v.Object.Get(key); ok {
			return r, true
		}
		return v.Object.Find(key)
	}
	if v.Kind == KindList {
		for _, item := range v.List {
			if r, ok := findInValue(item, key); ok {
				return r, true
			}
		}
	}
	return DescriptorValue{}, false
}

// parseClassID reads a ClassID/Key token: a 4-byte length, followed
// either by a 4-byte OSType (length == 0) or that many ASCII bytes.
func parseClassID(s *source) (string, error) {
	n, err := s.u32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		b, err := s.read(4)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	b, err := s.read(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// parseUnicodeString reads a 4-byte char count followed by that many
// UTF-16BE code units.
func parseUnicodeString(s *source) (string, error) {
	n, err := s.u32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b, err := s.read(int(n) * 2)
	if err != nil {
		return "", err
	}
	return utf16beToUTF8(b), nil
}

func skipUnicodeString(s *source) error {
	n, err := s.u32()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if n > 1000000 {
		return CorruptDataError("unicode string length absurd")
	}
	return s.skip(int64(n) * 2)
}

// parseDescriptorValue reads one tagged value given its already-consumed
// 4-byte type tag.
func parseDescriptorValue(s *source, typeID uint32) (DescriptorValue, error) {
	switch typeID {
	case descInt:
		v, err := s.i32()
		return DescriptorValue{Kind: KindInt, Int: v}, err
	case descDouble:
		v, err := s.f64()
		return DescriptorValue{Kind: KindDouble, Double: v}, err
	case descUnitFloat, descUnitValue:
		unit, err := s.read(4)
		if err != nil {
			return DescriptorValue{}, err
		}
		v, err := s.f64()
		if err != nil {
			return DescriptorValue{}, err
		}
		return DescriptorValue{Kind: KindUnitFloat, Unit: string(unit), Double: v}, nil
	case descBool:
		b, err := s.u8()
		return DescriptorValue{Kind: KindBool, Bool: b != 0}, err
	case descString:
		str, err := parseUnicodeString(s)
		return DescriptorValue{Kind: KindString, String: str}, err
	case descEnum:
		enumType, err := parseClassID(s)
		if err != nil {
			return DescriptorValue{}, err
		}
		enumValue, err := parseClassID(s)
		if err != nil {
			return DescriptorValue{}, err
		}
		return DescriptorValue{Kind: KindEnum, EnumType: enumType, EnumValue: enumValue}, nil
	case descClass:
		cid, err := parseClassID(s)
		return DescriptorValue{Kind: KindClass, ClassID: cid}, err
	case descRawBytes:
		n, err := s.u32()
		if err != nil {
			return DescriptorValue{}, err
		}
		b, err := s.read(int(n))
		return DescriptorValue{Kind: KindRawBytes, RawBytes: b}, err
	case descList:
		return parseDescriptorList(s)
	case descObject:
		return parseDescriptorObjectValue(s)
	case descReference:
		return parseDescriptorReference(s)
	default:
		// Unknown type: read a 4-byte length then that many opaque bytes,
		// so a forward-unknown tag doesn't abort the whole descriptor.
		n, err := s.u32()
		if err != nil {
			return DescriptorValue{}, err
		}
		if n > 100<<20 {
			return DescriptorValue{}, CorruptDataError("unknown descriptor value length absurd")
		}
		b, err := s.read(int(n))
		return DescriptorValue{Kind: KindRawBytes, RawBytes: b}, err
	}
}

func parseDescriptorList(s *source) (DescriptorValue, error) {
	count, err := s.u32()
	if err != nil {
		return DescriptorValue{}, err
	}
	if count > maxDescriptorProps {
		return DescriptorValue{}, CorruptDataError("descriptor list count absurd")
	}
	items := make([]DescriptorValue, 0, count)
	for i := uint32(0); i < count; i++ {
		itemType, err := s.u32()
		if err != nil {
			return DescriptorValue{}, err
		}
		v, err := parseDescriptorValue(s, itemType)
		if err != nil {
			return DescriptorValue{}, err
		}
		items = append(items, v)
	}
	return DescriptorValue{Kind: KindList, List: items}, nil
}

// parseDescriptorObjectValue parses an "Obj " value: real-world writers
// disagree on whether a Unicode name precedes the class id, so layout A
// (name + classID + descriptor) is tried first, then layout B
// (classID + descriptor) on failure, rewinding between attempts.
func parseDescriptorObjectValue(s *source) (DescriptorValue, error) {
	start := s.tell()

	cid, desc, err := func() (string, *Descriptor, error) {
		if err := skipUnicodeString(s); err != nil {
			return "", nil, err
		}
		cid, err := parseClassID(s)
		if err != nil {
			return "", nil, err
		}
		desc, err := parseDescriptor(s)
		if err != nil {
			return "", nil, err
		}
		return cid, desc, nil
	}()
	if err == nil {
		return DescriptorValue{Kind: KindObject, ClassID: cid, Object: desc}, nil
	}

	if err := s.seek(start); err != nil {
		return DescriptorValue{}, err
	}
	cid, err = parseClassID(s)
	if err != nil {
		return DescriptorValue{}, err
	}
	desc, err = parseDescriptor(s)
	if err != nil {
		return DescriptorValue{}, err
	}
	return DescriptorValue{Kind: KindObject, ClassID: cid, Object: desc}, nil
}

const (
	refProp = 0x70726f70 // "prop"
	refClss = 0x436c7373 // "Clss"
	refEnmr = 0x456e6d72 // "Enmr"
	refIdnt = 0x49646e74 // "Idnt"
	refIndx = 0x696e6478 // "indx"
	refName = 0x6e616d65 // "name"
)

// parseDescriptorReference parses a "ref " value: a sequence of typed
// reference items. Structure is consumed but not retained beyond the
// fact that it was present, matching the reference implementation's
// "we don't preserve ref structure yet" stance.
func parseDescriptorReference(s *source) (DescriptorValue, error) {
	count, err := s.u32()
	if err != nil {
		return DescriptorValue{}, err
	}
	if count > maxDescriptorProps {
		return DescriptorValue{}, CorruptDataError("reference item count absurd")
	}
	for i := uint32(0); i < count; i++ {
		form, err := s.u32()
		if err != nil {
			return DescriptorValue{}, err
		}
		switch form {
		case refProp:
			if _, err := parseClassID(s); err != nil {
				return DescriptorValue{}, err
			}
			if _, err := parseClassID(s); err != nil {
				return DescriptorValue{}, err
			}
		case refClss:
			if _, err := parseClassID(s); err != nil {
				return DescriptorValue{}, err
			}
		case refEnmr:
			for j := 0; j < 3; j++ {
				if _, err := parseClassID(s); err != nil {
					return DescriptorValue{}, err
				}
			}
		case refIdnt, refIndx:
			if _, err := s.u32(); err != nil {
				return DescriptorValue{}, err
			}
		case refName:
			if _, err := parseUnicodeString(s); err != nil {
				return DescriptorValue{}, err
			}
		default:
			return DescriptorValue{}, UnsupportedError("descriptor reference form")
		}
	}
	return DescriptorValue{Kind: KindReference}, nil
}

// parseDescriptor parses an ActionDescriptor: an optional Unicode name
// (tried first, then retried without on failure), a class id, and a
// property count followed by that many key/type/value triples.
func parseDescriptor(s *source) (*Descriptor, error) {
	start := s.tell()

	classID, err := func() (string, error) {
		if err := skipUnicodeString(s); err != nil {
			return "", err
		}
		return parseClassID(s)
	}()
	if err != nil {
		if err := s.seek(start); err != nil {
			return nil, err
		}
		classID, err = parseClassID(s)
		if err != nil {
			return nil, err
		}
	}

	count, err := s.u32()
	if err != nil {
		return nil, err
	}
	if count > maxDescriptorProps {
		return nil, CorruptDataError("descriptor property count absurd")
	}

	props := make([]DescriptorProperty, 0, count)
	for i := uint32(0); i < count; i++ {
		key, err := parseClassID(s)
		if err != nil {
			return nil, errors.Wrapf(err, "psd: descriptor property %d key", i)
		}
		typeID, err := s.u32()
		if err != nil {
			return nil, err
		}
		v, err := parseDescriptorValue(s, typeID)
		if err != nil {
			return nil, errors.Wrapf(err, "psd: descriptor property %q value", key)
		}
		props = append(props, DescriptorProperty{Key: key, Value: v})
	}

	return &Descriptor{ClassID: classID, Properties: props}, nil
}
