// Package wire encodes and decodes RDM packets: the standard message format
// with its additive checksum, and the masked discovery-response frame that
// in-band collision detection depends on.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rdm-protocol/rdm-go/pkg/uid"
)

// Decode errors. All of them classify the data as not a valid RDM packet;
// callers treat any of them as an invalid response rather than retrying
// field by field.
var (
	ErrShortPacket  = errors.New("wire: packet too short")
	ErrStartCode    = errors.New("wire: bad start code")
	ErrLength       = errors.New("wire: message length mismatch")
	ErrChecksum     = errors.New("wire: checksum mismatch")
	ErrPDLTooLarge  = errors.New("wire: parameter data too large")
	ErrNotDiscFrame = errors.New("wire: not a discovery response frame")
)

// Byte offsets within the standard message format.
const (
	offSC         = 0
	offSubSC      = 1
	offMessageLen = 2
	offDestUID    = 3
	offSrcUID     = 9
	offTN         = 15
	offPortID     = 16
	offMsgCount   = 17
	offSubDevice  = 18
	offCC         = 20
	offPID        = 21
	offPDL        = 23
	offPD         = 24
)

// EncodeMessage writes a standard-format packet for h and pd into dst and
// returns the number of bytes written. dst must hold at least
// BasePacketSize+len(pd) bytes. h.PDL is ignored; the length of pd is
// authoritative.
func EncodeMessage(dst []byte, h *Header, pd []byte) (int, error) {
	if len(pd) > MaxParameterDataLen {
		return 0, fmt.Errorf("%w: %d bytes", ErrPDLTooLarge, len(pd))
	}
	size := BasePacketSize + len(pd)
	if len(dst) < size {
		return 0, fmt.Errorf("wire: need %d bytes, have %d", size, len(dst))
	}

	dst[offSC] = StartCode
	dst[offSubSC] = SubStartCode
	dst[offMessageLen] = uint8(offPD + len(pd))
	h.DestUID.Put(dst[offDestUID:])
	h.SrcUID.Put(dst[offSrcUID:])
	dst[offTN] = h.TN
	if h.CC.IsResponse() {
		dst[offPortID] = uint8(h.ResponseType)
	} else {
		dst[offPortID] = h.PortID
	}
	dst[offMsgCount] = h.MessageCount
	binary.BigEndian.PutUint16(dst[offSubDevice:], h.SubDevice)
	dst[offCC] = uint8(h.CC)
	binary.BigEndian.PutUint16(dst[offPID:], uint16(h.PID))
	dst[offPDL] = uint8(len(pd))
	copy(dst[offPD:], pd)

	sum := uid.Checksum(dst[:offPD+len(pd)])
	binary.BigEndian.PutUint16(dst[offPD+len(pd):], sum)
	return size, nil
}

// DecodeMessage parses a standard-format packet. The returned parameter data
// aliases src. It rejects anything that is not a structurally valid packet
// with a correct checksum.
func DecodeMessage(src []byte) (*Header, []byte, error) {
	if len(src) < BasePacketSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(src))
	}
	if src[offSC] != StartCode || src[offSubSC] != SubStartCode {
		return nil, nil, fmt.Errorf("%w: %#02x %#02x", ErrStartCode, src[offSC], src[offSubSC])
	}
	msgLen := int(src[offMessageLen])
	if msgLen < offPD || msgLen+2 > len(src) {
		return nil, nil, fmt.Errorf("%w: message_len=%d have=%d", ErrLength, msgLen, len(src))
	}
	pdl := int(src[offPDL])
	if pdl > MaxParameterDataLen || offPD+pdl != msgLen {
		return nil, nil, fmt.Errorf("%w: pdl=%d message_len=%d", ErrLength, pdl, msgLen)
	}
	want := binary.BigEndian.Uint16(src[msgLen:])
	if got := uid.Checksum(src[:msgLen]); got != want {
		return nil, nil, fmt.Errorf("%w: got %#04x want %#04x", ErrChecksum, got, want)
	}

	h := &Header{
		DestUID:      uid.FromBytes(src[offDestUID:]),
		SrcUID:       uid.FromBytes(src[offSrcUID:]),
		TN:           src[offTN],
		MessageCount: src[offMsgCount],
		SubDevice:    binary.BigEndian.Uint16(src[offSubDevice:]),
		CC:           CommandClass(src[offCC]),
		PID:          PID(binary.BigEndian.Uint16(src[offPID:])),
		PDL:          uint8(pdl),
	}
	if h.CC.IsResponse() {
		h.ResponseType = ResponseType(src[offPortID])
	} else {
		h.PortID = src[offPortID]
	}
	return h, src[offPD : offPD+pdl], nil
}

// ValidateResponse checks that a decoded response answers the given request:
// response command class, matching transaction number and PID, source equal
// to the request's destination and destination equal to the request's
// source. Discovery-branch probes are exempt because any responder in the
// branch may answer them.
func ValidateResponse(req, resp *Header) error {
	if req.CC == CCDiscCommand && req.PID == PIDDiscUniqueBranch {
		return nil
	}
	if resp.CC != req.CC.Response() {
		return fmt.Errorf("wire: response class %s does not answer %s", resp.CC, req.CC)
	}
	if resp.TN != req.TN {
		return fmt.Errorf("wire: transaction number %d, expected %d", resp.TN, req.TN)
	}
	if resp.PID != req.PID {
		return fmt.Errorf("wire: response pid %s, expected %s", resp.PID, req.PID)
	}
	if !resp.SrcUID.Equal(req.DestUID) {
		return fmt.Errorf("wire: response from %s, expected %s", resp.SrcUID, req.DestUID)
	}
	if !resp.DestUID.Equal(req.SrcUID) {
		return fmt.Errorf("wire: response addressed to %s, expected %s", resp.DestUID, req.SrcUID)
	}
	return nil
}
