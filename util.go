package psd

import "fmt"

// A FormatError reports that the input is not a valid PSD/PSB document:
// wrong signature, unsupported version, or a header field out of range.
type FormatError string

func (e FormatError) Error() string {
	return fmt.Sprintf("psd: invalid format: %s", string(e))
}

// A CorruptDataError reports that an otherwise well-formed document
// contains an intermediate structure (a section length, a channel count
// table, a compressed plane) that does not add up. Distinct from
// FormatError because callers often want to treat a corrupt optional
// section as "absent" while a bad header is always fatal.
type CorruptDataError string

func (e CorruptDataError) Error() string {
	return fmt.Sprintf("psd: corrupt data: %s", string(e))
}

// An UnsupportedError reports that the input uses a valid but
// unimplemented feature.
type UnsupportedError string

func (e UnsupportedError) Error() string {
	return fmt.Sprintf("psd: unsupported feature: %s", string(e))
}

// An InternalError reports that an internal invariant was violated -
// a bug in this package rather than bad input.
type InternalError string

func (e InternalError) Error() string {
	return fmt.Sprintf("psd: internal error: %s", string(e))
}

// An ArgumentError reports bad caller input: a nil document, an
// out-of-range index, or a destination buffer too small to hold a
// rendered image.
type ArgumentError string

func (e ArgumentError) Error() string {
	return fmt.Sprintf("psd: invalid argument: %s", string(e))
}
