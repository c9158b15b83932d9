package interaction

import (
	"fmt"
	"time"

	"github.com/rdm-protocol/rdm-go/pkg/uid"
	"github.com/rdm-protocol/rdm-go/pkg/wire"
)

// Ack is the classified outcome of one request. Type is always set; the
// remaining fields are meaningful only for the types that carry them.
type Ack struct {
	// Type classifies the outcome, including the local None and Invalid
	// classifications for missing and malformed responses.
	Type wire.ResponseType

	// Src is the responding device, when a valid response arrived.
	Src uid.UID

	// TN is the responder's transaction number echo.
	TN uint8

	// MessageCount is the responder's queued-message count.
	MessageCount uint8

	// PDL is the size of the returned parameter data.
	PDL uint8

	// Timer is the responder's estimated completion delay. Set when
	// Type is AckTimer.
	Timer time.Duration

	// NackReason explains the rejection. Set when Type is NackReason.
	NackReason wire.NackReason
}

// OK reports whether the request was fully acknowledged.
func (a *Ack) OK() bool { return a.Type == wire.ResponseTypeAck }

// Err converts a non-ACK outcome into an error, or nil for an ACK.
func (a *Ack) Err() error {
	switch a.Type {
	case wire.ResponseTypeAck:
		return nil
	case wire.ResponseTypeNackReason:
		return fmt.Errorf("%w: %s", ErrNack, a.NackReason)
	case wire.ResponseTypeAckTimer:
		return fmt.Errorf("%w: ready in %s", ErrAckTimer, a.Timer)
	case wire.ResponseTypeAckOverflow:
		return ErrAckOverflow
	case wire.ResponseTypeNone:
		return ErrNoResponse
	default:
		return ErrInvalidResponse
	}
}

// String returns a short rendering for logs.
func (a *Ack) String() string {
	switch a.Type {
	case wire.ResponseTypeNackReason:
		return fmt.Sprintf("NACK_REASON(%s)", a.NackReason)
	case wire.ResponseTypeAckTimer:
		return fmt.Sprintf("ACK_TIMER(%s)", a.Timer)
	default:
		return a.Type.String()
	}
}

// DeviceInfo is the DEVICE_INFO parameter block.
type DeviceInfo struct {
	ModelID            uint16
	ProductCategory    uint16
	SoftwareVersionID  uint32
	Footprint          uint16
	CurrentPersonality uint8
	PersonalityCount   uint8
	StartAddress       uint16
	SubDeviceCount     uint16
	SensorCount        uint8
}

// MuteMessage is the payload of a DISC_MUTE or DISC_UN_MUTE response. The
// binding UID is only present on responders that share one physical device
// with other responder ports.
type MuteMessage struct {
	// ControlField holds the managed-proxy, sub-device, boot-loader and
	// proxied-device flag bits.
	ControlField uint16

	// BindingUID is the responder's primary port UID, or the null UID
	// when the responder did not include one.
	BindingUID uid.UID
}

// Control-field bits of a mute response.
const (
	ControlManagedProxy  = 1 << 0
	ControlSubDevice     = 1 << 1
	ControlBootLoader    = 1 << 2
	ControlProxiedDevice = 1 << 3
)
