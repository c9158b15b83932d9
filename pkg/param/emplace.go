package param

import (
	"errors"
	"fmt"

	"github.com/rdm-protocol/rdm-go/pkg/uid"
)

// Emplace and Extract errors.
var (
	// ErrValueType indicates a source value whose Go type does not match its
	// format field.
	ErrValueType = errors.New("value type does not match format field")

	// ErrMissingValue indicates fewer source values than format fields.
	ErrMissingValue = errors.New("missing value for format field")

	// ErrShortBuffer indicates a destination too small for the emplaced data.
	ErrShortBuffer = errors.New("destination buffer too short")

	// ErrShortData indicates parameter data too short to extract a
	// complete parameter.
	ErrShortData = errors.New("parameter data too short")
)

// Emplace serializes src values into dst according to the format, converting
// each field to wire byte order. limit caps the number of data bytes written
// (clamped to MaxParameterData); a string null terminator emplaced on behalf
// of emplaceNulls does not count against it.
//
// When emplaceNulls is true, string fields receive a trailing null byte and
// a null optional UID is materialized as six zero bytes: use this form when
// the destination is read back by a caller. When false, neither terminators
// nor empty optional UIDs are written: use this form when the destination
// goes onto the wire. Returns the number of bytes written.
//
// For repeatable (non-singleton) formats, parameters are emplaced back to
// back while source values remain and the limit is not exceeded.
func (f *Format) Emplace(dst []byte, src []any, limit int, emplaceNulls bool) (int, error) {
	if limit > MaxParameterData {
		limit = MaxParameterData
	}
	if limit > len(dst) {
		limit = len(dst)
	}

	params := 1
	if !f.singleton && f.size > 0 {
		params = limit / f.size
	}

	n := 0
	vi := 0
	for p := 0; p < params; p++ {
		if !f.singleton && vi >= len(src) {
			break
		}
		for _, fd := range f.fields {
			switch fd.kind {
			case fieldLiteral:
				if n+fd.size > len(dst) {
					return 0, ErrShortBuffer
				}
				for j := 0; j < fd.size; j++ {
					dst[n+j] = byte(fd.literal >> (8 * (fd.size - 1 - j)))
				}
				n += fd.size

			case fieldByte:
				v, ok := takeValue[uint8](src, &vi)
				if !ok {
					return 0, missingOrTypeErr(src, fd, vi)
				}
				if n+1 > limit {
					return n, nil
				}
				dst[n] = v
				n++

			case fieldWord:
				v, ok := takeValue[uint16](src, &vi)
				if !ok {
					return 0, missingOrTypeErr(src, fd, vi)
				}
				if n+2 > limit {
					return n, nil
				}
				dst[n] = byte(v >> 8)
				dst[n+1] = byte(v)
				n += 2

			case fieldDword:
				v, ok := takeValue[uint32](src, &vi)
				if !ok {
					return 0, missingOrTypeErr(src, fd, vi)
				}
				if n+4 > limit {
					return n, nil
				}
				dst[n] = byte(v >> 24)
				dst[n+1] = byte(v >> 16)
				dst[n+2] = byte(v >> 8)
				dst[n+3] = byte(v)
				n += 4

			case fieldUID, fieldOptionalUID:
				v, ok := takeValue[uid.UID](src, &vi)
				if !ok {
					return 0, missingOrTypeErr(src, fd, vi)
				}
				if fd.kind == fieldOptionalUID && v.IsNull() && !emplaceNulls {
					continue // empty optional UIDs are never sent
				}
				if n+uid.Size > limit {
					return n, nil
				}
				v.Put(dst[n:])
				n += uid.Size

			case fieldString:
				v, ok := takeValue[string](src, &vi)
				if !ok {
					return 0, missingOrTypeErr(src, fd, vi)
				}
				max := limit - n
				if max > maxStringLen {
					max = maxStringLen
				}
				if max < 0 {
					max = 0
				}
				s := v
				if len(s) > max {
					s = s[:max]
				}
				// Stop at an embedded null: sources may be null-terminated.
				for j := 0; j < len(s); j++ {
					if s[j] == 0 {
						s = s[:j]
						break
					}
				}
				if n+len(s) > len(dst) {
					return 0, ErrShortBuffer
				}
				copy(dst[n:], s)
				n += len(s)
				if emplaceNulls {
					if n >= len(dst) {
						return 0, ErrShortBuffer
					}
					dst[n] = 0
					n++
				}
			}
		}
	}

	return n, nil
}

// Extract deserializes parameter data into typed values, the inverse of
// Emplace. Literal fields are consumed but not returned. Returned value
// types mirror the format: uint8, uint16, uint32, uid.UID and string. A
// missing trailing optional UID extracts as uid.Null.
//
// For repeatable formats, values of consecutive parameters are returned
// flattened in order.
func (f *Format) Extract(data []byte) ([]any, error) {
	if len(data) > MaxParameterData {
		data = data[:MaxParameterData]
	}

	params := f.Count(len(data))
	var out []any

	n := 0
	for p := 0; p < params; p++ {
		for _, fd := range f.fields {
			switch fd.kind {
			case fieldLiteral:
				if n+fd.size > len(data) {
					return nil, ErrShortData
				}
				n += fd.size

			case fieldByte:
				if n+1 > len(data) {
					return nil, ErrShortData
				}
				out = append(out, data[n])
				n++

			case fieldWord:
				if n+2 > len(data) {
					return nil, ErrShortData
				}
				out = append(out, uint16(data[n])<<8|uint16(data[n+1]))
				n += 2

			case fieldDword:
				if n+4 > len(data) {
					return nil, ErrShortData
				}
				out = append(out, uint32(data[n])<<24|uint32(data[n+1])<<16|
					uint32(data[n+2])<<8|uint32(data[n+3]))
				n += 4

			case fieldUID:
				if n+uid.Size > len(data) {
					return nil, ErrShortData
				}
				out = append(out, uid.FromBytes(data[n:]))
				n += uid.Size

			case fieldOptionalUID:
				if n+uid.Size > len(data) {
					out = append(out, uid.Null)
					continue
				}
				out = append(out, uid.FromBytes(data[n:]))
				n += uid.Size

			case fieldString:
				max := len(data) - n
				if max > maxStringLen {
					max = maxStringLen
				}
				s := data[n : n+max]
				for j := 0; j < len(s); j++ {
					if s[j] == 0 {
						s = s[:j]
						break
					}
				}
				out = append(out, string(s))
				n += max
			}
		}
	}

	return out, nil
}

// takeValue pulls the next source value of type T, advancing the index.
func takeValue[T any](src []any, vi *int) (T, bool) {
	var zero T
	if *vi >= len(src) {
		return zero, false
	}
	v, ok := src[*vi].(T)
	if !ok {
		return zero, false
	}
	*vi++
	return v, true
}

func valueErr(fd field, vi int) error {
	return fmt.Errorf("%w: field kind %d at value index %d", ErrValueType, fd.kind, vi)
}

// missingOrTypeErr distinguishes running out of values from a type mismatch.
func missingOrTypeErr(src []any, fd field, vi int) error {
	if vi >= len(src) {
		return fmt.Errorf("%w: field kind %d at value index %d", ErrMissingValue, fd.kind, vi)
	}
	return valueErr(fd, vi)
}
