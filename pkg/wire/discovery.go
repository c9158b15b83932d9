package wire

import (
	"fmt"

	"github.com/rdm-protocol/rdm-go/pkg/uid"
)

// The discovery-response frame has no start code. It is 0 to 7 preamble
// bytes, a delimiter, then the responder's UID and a checksum encoded two
// bytes per source byte: the first ORed with 0xaa, the second with 0x55.
// The redundancy lets a controller detect when two responders answered at
// once, because overlapping frames break the mask pattern or the checksum.

// EncodeDiscResponse writes a discovery-response frame with a full 7-byte
// preamble into dst and returns the number of bytes written. dst must hold
// at least DiscResponseSize bytes.
func EncodeDiscResponse(dst []byte, u uid.UID) (int, error) {
	if len(dst) < DiscResponseSize {
		return 0, fmt.Errorf("wire: need %d bytes, have %d", DiscResponseSize, len(dst))
	}
	for i := 0; i < 7; i++ {
		dst[i] = Preamble
	}
	dst[7] = Delimiter

	var ub [6]byte
	u.Put(ub[:])
	var sum uint16
	for i, b := range ub {
		dst[8+2*i] = b | 0xaa
		dst[8+2*i+1] = b | 0x55
		sum += uint16(b) + 0xff
	}
	dst[20] = uint8(sum>>8) | 0xaa
	dst[21] = uint8(sum>>8) | 0x55
	dst[22] = uint8(sum) | 0xaa
	dst[23] = uint8(sum) | 0x55
	return DiscResponseSize, nil
}

// IsDiscResponse reports whether data looks like a discovery-response frame
// rather than a standard packet: up to 7 preamble bytes followed by the
// delimiter.
func IsDiscResponse(data []byte) bool {
	for i, b := range data {
		switch {
		case b == Delimiter:
			return true
		case b != Preamble || i >= 7:
			return false
		}
	}
	return false
}

// DecodeDiscResponse recovers the responder UID from a discovery-response
// frame. A frame whose mask pattern or checksum does not hold is reported
// as ErrNotDiscFrame; during discovery that almost always means two
// responders transmitted at once.
func DecodeDiscResponse(data []byte) (uid.UID, error) {
	start := 0
	for start < len(data) && data[start] == Preamble && start < 7 {
		start++
	}
	if start >= len(data) || data[start] != Delimiter {
		return uid.Null, fmt.Errorf("%w: no delimiter", ErrNotDiscFrame)
	}
	enc := data[start+1:]
	if len(enc) < 16 {
		return uid.Null, fmt.Errorf("%w: %d bytes after delimiter", ErrNotDiscFrame, len(enc))
	}

	var ub [6]byte
	var sum uint16
	for i := range ub {
		ub[i] = enc[2*i]&0x55 | enc[2*i+1]&0xaa
		sum += uint16(ub[i]) + 0xff
	}
	want := uint16(enc[12]&0x55|enc[13]&0xaa)<<8 | uint16(enc[14]&0x55|enc[15]&0xaa)
	if sum != want {
		return uid.Null, fmt.Errorf("%w: checksum %#04x, expected %#04x", ErrNotDiscFrame, sum, want)
	}
	return uid.FromBytes(ub[:]), nil
}
