// Package uid implements the 48-bit RDM unique identifier and the additive
// checksum used throughout the protocol.
package uid

import (
	"fmt"
)

// Size is the wire size of a UID in bytes.
const Size = 6

// UID is a 48-bit RDM unique identifier, split into a 16-bit manufacturer
// (ESTA) ID and a 32-bit device ID. UIDs order by (ManufacturerID, DeviceID).
type UID struct {
	ManufacturerID uint16
	DeviceID       uint32
}

// Distinguished UID values.
var (
	// Null is the all-zero UID. It is never a valid device address; headers
	// left with a null source UID are filled in by the transaction engine.
	Null = UID{}

	// BroadcastAll addresses every device on the bus.
	BroadcastAll = UID{ManufacturerID: 0xffff, DeviceID: 0xffffffff}

	// Max is the highest addressable UID, the upper bound of the discovery
	// address space.
	Max = UID{ManufacturerID: 0xffff, DeviceID: 0xfffffffe}
)

// Broadcast returns the broadcast UID for a single manufacturer.
func Broadcast(manufacturerID uint16) UID {
	return UID{ManufacturerID: manufacturerID, DeviceID: 0xffffffff}
}

// New builds a UID from its manufacturer and device components.
func New(manufacturerID uint16, deviceID uint32) UID {
	return UID{ManufacturerID: manufacturerID, DeviceID: deviceID}
}

// IsNull reports whether the UID is the all-zero UID.
func (u UID) IsNull() bool {
	return u.ManufacturerID == 0 && u.DeviceID == 0
}

// IsBroadcast reports whether the UID is a broadcast address, either
// BroadcastAll or a per-manufacturer broadcast.
func (u UID) IsBroadcast() bool {
	return u.DeviceID == 0xffffffff
}

// Equal reports whether two UIDs are identical.
func (u UID) Equal(other UID) bool {
	return u.ManufacturerID == other.ManufacturerID && u.DeviceID == other.DeviceID
}

// Less reports whether u orders before other.
func (u UID) Less(other UID) bool {
	return u.ManufacturerID < other.ManufacturerID ||
		(u.ManufacturerID == other.ManufacturerID && u.DeviceID < other.DeviceID)
}

// Compare returns -1, 0 or +1 as u orders before, equal to or after other.
func (u UID) Compare(other UID) int {
	switch {
	case u.Less(other):
		return -1
	case u.Equal(other):
		return 0
	default:
		return 1
	}
}

// IsTarget reports whether u is addressed by alias: either alias equals u
// exactly, or alias is a broadcast form (all-device or per-manufacturer)
// that covers u.
func (u UID) IsTarget(alias UID) bool {
	if alias.DeviceID == 0xffffffff &&
		(alias.ManufacturerID == 0xffff || alias.ManufacturerID == u.ManufacturerID) {
		return true
	}
	return u.Equal(alias)
}

// Uint64 packs the UID into the low 48 bits of a uint64.
func (u UID) Uint64() uint64 {
	return uint64(u.ManufacturerID)<<32 | uint64(u.DeviceID)
}

// FromUint64 unpacks a UID from the low 48 bits of v.
func FromUint64(v uint64) UID {
	return UID{
		ManufacturerID: uint16(v >> 32),
		DeviceID:       uint32(v),
	}
}

// Put writes the UID into b in wire order: manufacturer ID then device ID,
// both big-endian. b must be at least Size bytes.
func (u UID) Put(b []byte) {
	_ = b[5]
	b[0] = byte(u.ManufacturerID >> 8)
	b[1] = byte(u.ManufacturerID)
	b[2] = byte(u.DeviceID >> 24)
	b[3] = byte(u.DeviceID >> 16)
	b[4] = byte(u.DeviceID >> 8)
	b[5] = byte(u.DeviceID)
}

// Bytes returns the UID in wire order.
func (u UID) Bytes() [Size]byte {
	var b [Size]byte
	u.Put(b[:])
	return b
}

// FromBytes reads a UID from the first Size bytes of b in wire order.
func FromBytes(b []byte) UID {
	_ = b[5]
	return UID{
		ManufacturerID: uint16(b[0])<<8 | uint16(b[1]),
		DeviceID: uint32(b[2])<<24 | uint32(b[3])<<16 |
			uint32(b[4])<<8 | uint32(b[5]),
	}
}

// Flip returns the UID with its six wire bytes reversed end to end. Some
// responder firmware echoes its UID byte-swapped; discovery retries a failed
// leaf mute against the flipped UID.
func (u UID) Flip() UID {
	b := u.Bytes()
	b[0], b[5] = b[5], b[0]
	b[1], b[4] = b[4], b[1]
	b[2], b[3] = b[3], b[2]
	return FromBytes(b[:])
}

// String formats the UID in the conventional mmmm:dddddddd hex form.
func (u UID) String() string {
	return fmt.Sprintf("%04x:%08x", u.ManufacturerID, u.DeviceID)
}

// Parse parses a UID from the mmmm:dddddddd form produced by String.
func Parse(s string) (UID, error) {
	var man uint16
	var dev uint32
	if _, err := fmt.Sscanf(s, "%04x:%08x", &man, &dev); err != nil {
		return Null, fmt.Errorf("invalid UID %q: %w", s, err)
	}
	return UID{ManufacturerID: man, DeviceID: dev}, nil
}
