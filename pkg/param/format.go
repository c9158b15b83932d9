// Package param implements the compact format-string language that describes
// RDM parameter-data layouts, and the emplace/extract machinery that converts
// between typed Go values and wire bytes.
//
// A format string is read left to right, one symbol per field:
//
//   - 'b' an 8-bit unsigned integer
//   - 'w' a 16-bit unsigned integer, big-endian on the wire
//   - 'd' a 32-bit unsigned integer, big-endian on the wire
//   - 'u' a 48-bit UID
//   - 'v' an optional UID, omitted on the wire when null; must be last
//   - 'a' an ASCII string of up to 32 bytes, not null-terminated on the wire;
//     must be last
//   - '#<hex>h' an integer literal of 1-8 bytes, written most-significant
//     byte first regardless of the source values
//   - '$' end-of-parameter anchor, forcing single-parameter mode
//
// Upper-case symbol forms are accepted as equivalents. A format without an
// anchor, optional UID or string field describes a repeatable parameter: as
// many parameters are emplaced as fit the size limit.
package param

import (
	"errors"
	"fmt"
	"strconv"
)

// MaxParameterData is the largest parameter-data block a single RDM packet
// can carry.
const MaxParameterData = 231

// maxStringLen is the longest ASCII field the protocol allows.
const maxStringLen = 32

// Format parse errors.
var (
	// ErrUnknownSymbol indicates an unrecognized format symbol.
	ErrUnknownSymbol = errors.New("unknown format symbol")

	// ErrFieldNotLast indicates an 'a' or 'v' field that is not the final
	// field of the format.
	ErrFieldNotLast = errors.New("variable-length field not at end of format")

	// ErrBadLiteral indicates a malformed integer literal.
	ErrBadLiteral = errors.New("malformed integer literal")

	// ErrBadAnchor indicates a '$' anchor that is not the final symbol.
	ErrBadAnchor = errors.New("misplaced end-of-parameter anchor")

	// ErrTooBig indicates a format whose parameter exceeds the
	// MaxParameterData limit.
	ErrTooBig = errors.New("parameter format too big")
)

// fieldKind identifies one field of a parsed format.
type fieldKind uint8

const (
	fieldByte fieldKind = iota
	fieldWord
	fieldDword
	fieldUID
	fieldOptionalUID
	fieldString
	fieldLiteral
)

// field is one parsed descriptor: a kind, its wire width, and for literals
// the constant value to write.
type field struct {
	kind    fieldKind
	size    int
	literal uint64
}

// Format is a parsed format string. Parse a format once and reuse it; the
// same Format drives both Emplace and Extract.
type Format struct {
	raw       string
	fields    []field
	size      int
	singleton bool
}

// Parse compiles a format string into a Format. Syntax errors are reported
// here once, so the emplace and extract paths never re-derive them.
func Parse(format string) (*Format, error) {
	f := &Format{raw: format, singleton: format == ""}

	for i := 0; i < len(format); i++ {
		var fd field
		switch c := format[i]; c {
		case 'b', 'B':
			fd = field{kind: fieldByte, size: 1}
		case 'w', 'W':
			fd = field{kind: fieldWord, size: 2}
		case 'd', 'D':
			fd = field{kind: fieldDword, size: 4}
		case 'u', 'U':
			fd = field{kind: fieldUID, size: 6}
		case 'v', 'V':
			if !lastField(format, i) {
				return nil, fmt.Errorf("%w: optional UID at index %d", ErrFieldNotLast, i)
			}
			fd = field{kind: fieldOptionalUID, size: 6}
			f.singleton = true
		case 'a', 'A':
			if !lastField(format, i) {
				return nil, fmt.Errorf("%w: string at index %d", ErrFieldNotLast, i)
			}
			fd = field{kind: fieldString, size: maxStringLen}
			f.singleton = true
		case '#':
			digits := 0
			for i+1+digits < len(format) && isHexDigit(format[i+1+digits]) {
				digits++
			}
			if digits == 0 || digits > 16 {
				return nil, fmt.Errorf("%w: %d hex digits", ErrBadLiteral, digits)
			}
			end := i + 1 + digits
			if end >= len(format) || (format[end] != 'h' && format[end] != 'H') {
				return nil, fmt.Errorf("%w: missing 'h' terminator", ErrBadLiteral)
			}
			value, err := strconv.ParseUint(format[i+1:end], 16, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadLiteral, err)
			}
			fd = field{kind: fieldLiteral, size: (digits + 1) / 2, literal: value}
			i = end
		case '$':
			if i != len(format)-1 {
				return nil, fmt.Errorf("%w: index %d", ErrBadAnchor, i)
			}
			f.singleton = true
			continue
		default:
			return nil, fmt.Errorf("%w: %q at index %d", ErrUnknownSymbol, c, i)
		}

		if f.size+fd.size > MaxParameterData {
			return nil, ErrTooBig
		}
		f.size += fd.size
		f.fields = append(f.fields, fd)
	}

	return f, nil
}

// MustParse is Parse for compile-time-constant formats; it panics on error.
func MustParse(format string) *Format {
	f, err := Parse(format)
	if err != nil {
		panic(fmt.Sprintf("param: MustParse(%q): %v", format, err))
	}
	return f
}

// lastField reports whether the symbol at index i is the final field of the
// format, allowing only a trailing '$' after it.
func lastField(format string, i int) bool {
	return i == len(format)-1 || (i == len(format)-2 && format[i+1] == '$')
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Size returns the wire width of one parameter described by the format.
// String fields count at their 32-byte maximum.
func (f *Format) Size() int {
	return f.size
}

// Singleton reports whether the format describes exactly one parameter
// rather than a repeatable array.
func (f *Format) Singleton() bool {
	return f.singleton
}

// String returns the original format string.
func (f *Format) String() string {
	return f.raw
}

// Count returns the number of parameters a block of n bytes holds under this
// format: 1 for singleton formats, floor(n/size) otherwise.
func (f *Format) Count(n int) int {
	if f.singleton || f.size == 0 {
		return 1
	}
	return n / f.size
}
