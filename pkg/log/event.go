package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the controller session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates packet flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// LocalRole indicates whether this endpoint is a controller or responder.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// Port names the bus port the event belongs to.
	Port string `cbor:"7,keyasint,omitempty"`

	// LocalUID is the local endpoint's UID in manufacturer:device form.
	LocalUID string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame     *FrameEvent     `cbor:"10,keyasint,omitempty"` // Bus layer
	Message   *MessageEvent   `cbor:"11,keyasint,omitempty"` // Wire layer (decoded)
	Discovery *DiscoveryEvent `cbor:"12,keyasint,omitempty"` // Discovery progress
	Error     *ErrorEventData `cbor:"13,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of packet flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming packet.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing packet.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerBus is the raw bus layer (packet bytes).
	LayerBus Layer = 0
	// LayerWire is the packet encoding layer (decoded headers).
	LayerWire Layer = 1
	// LayerEngine is the transaction and discovery layer.
	LayerEngine Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerBus:
		return "BUS"
	case LayerWire:
		return "WIRE"
	case LayerEngine:
		return "ENGINE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates an RDM request or response.
	CategoryMessage Category = 0
	// CategoryDiscovery indicates discovery progress.
	CategoryDiscovery Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryDiscovery:
		return "DISCOVERY"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role indicates whether the local endpoint is a controller or responder.
type Role uint8

const (
	// RoleResponder indicates a responding device.
	RoleResponder Role = 0
	// RoleController indicates a controller.
	RoleController Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleResponder:
		return "RESPONDER"
	case RoleController:
		return "CONTROLLER"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw packet bytes at the bus layer.
type FrameEvent struct {
	// Size is the packet size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw packet bytes (may be truncated for large packets).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded RDM packet at the wire layer.
type MessageEvent struct {
	// CommandClass is the packet's command class byte.
	CommandClass uint8 `cbor:"1,keyasint"`

	// PID is the parameter identifier.
	PID uint16 `cbor:"2,keyasint"`

	// DestUID and SrcUID in manufacturer:device form.
	DestUID string `cbor:"3,keyasint"`
	SrcUID  string `cbor:"4,keyasint"`

	// TN correlates request/response pairs.
	TN uint8 `cbor:"5,keyasint"`

	// SubDevice is the addressed sub-device.
	SubDevice uint16 `cbor:"6,keyasint,omitempty"`

	// For responses: the response type byte, including the local NONE
	// and INVALID classifications.
	ResponseType *uint8 `cbor:"7,keyasint,omitempty"`

	// For NACKed responses: the reason code.
	NackReason *uint16 `cbor:"8,keyasint,omitempty"`

	// PDL is the parameter data length.
	PDL uint8 `cbor:"9,keyasint,omitempty"`

	// ProcessingTime is the duration from request send to response
	// receipt (response only). Stored as nanoseconds.
	ProcessingTime *time.Duration `cbor:"10,keyasint,omitempty"`
}

// DiscoveryEvent captures discovery progress at the engine layer.
type DiscoveryEvent struct {
	// Phase of the discovery algorithm.
	Phase DiscoveryPhase `cbor:"1,keyasint"`

	// LowerUID and UpperUID bound the probed branch.
	LowerUID string `cbor:"2,keyasint,omitempty"`
	UpperUID string `cbor:"3,keyasint,omitempty"`

	// FoundUID is the device a probe or mute resolved.
	FoundUID string `cbor:"4,keyasint,omitempty"`

	// Collision indicates the probe saw overlapping responses.
	Collision bool `cbor:"5,keyasint,omitempty"`

	// Attempt numbers retries of the same probe or mute.
	Attempt uint8 `cbor:"6,keyasint,omitempty"`
}

// DiscoveryPhase indicates what step of discovery an event belongs to.
type DiscoveryPhase uint8

const (
	// PhaseUnMute is the initial broadcast un-mute.
	PhaseUnMute DiscoveryPhase = 0
	// PhaseProbe is a branch probe.
	PhaseProbe DiscoveryPhase = 1
	// PhaseMute is the mute of a discovered device.
	PhaseMute DiscoveryPhase = 2
	// PhaseFound marks a confirmed device.
	PhaseFound DiscoveryPhase = 3
)

// String returns the discovery phase name.
func (p DiscoveryPhase) String() string {
	switch p {
	case PhaseUnMute:
		return "UN_MUTE"
	case PhaseProbe:
		return "PROBE"
	case PhaseMute:
		return "MUTE"
	case PhaseFound:
		return "FOUND"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
