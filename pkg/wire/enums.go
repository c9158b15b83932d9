package wire

// Protocol framing constants.
const (
	// StartCode is the DMX512 start code that marks an RDM packet.
	StartCode = 0xcc

	// SubStartCode is the RDM sub-start code following the start code.
	SubStartCode = 0x01

	// Preamble is the marker byte repeated 0-7 times at the head of a
	// discovery-response frame.
	Preamble = 0xfe

	// Delimiter terminates the discovery-response preamble.
	Delimiter = 0xaa

	// MaxParameterDataLen is the largest parameter-data block one packet
	// can carry.
	MaxParameterDataLen = 231

	// BasePacketSize is the size of a packet with no parameter data,
	// including the trailing checksum.
	BasePacketSize = 26

	// MaxPacketSize is the size of a packet carrying a full parameter-data
	// block.
	MaxPacketSize = BasePacketSize + MaxParameterDataLen

	// DiscResponseSize is the size of a discovery-response frame with the
	// full 7-byte preamble.
	DiscResponseSize = 24
)

// CommandClass identifies the kind of RDM command a packet carries.
// A response class is always its request class plus one.
type CommandClass uint8

const (
	// CCDiscCommand is a discovery request.
	CCDiscCommand CommandClass = 0x10
	// CCDiscCommandResponse is a discovery response.
	CCDiscCommandResponse CommandClass = 0x11
	// CCGetCommand is a GET request.
	CCGetCommand CommandClass = 0x20
	// CCGetCommandResponse is a GET response.
	CCGetCommandResponse CommandClass = 0x21
	// CCSetCommand is a SET request.
	CCSetCommand CommandClass = 0x30
	// CCSetCommandResponse is a SET response.
	CCSetCommandResponse CommandClass = 0x31
)

// IsRequest reports whether the command class is one a controller may send.
func (cc CommandClass) IsRequest() bool {
	return cc == CCDiscCommand || cc == CCGetCommand || cc == CCSetCommand
}

// IsResponse reports whether the command class is a response class.
func (cc CommandClass) IsResponse() bool {
	return cc == CCDiscCommandResponse || cc == CCGetCommandResponse ||
		cc == CCSetCommandResponse
}

// Response returns the response class paired with a request class.
func (cc CommandClass) Response() CommandClass {
	return cc + 1
}

// String returns the command class name.
func (cc CommandClass) String() string {
	switch cc {
	case CCDiscCommand:
		return "DISC_COMMAND"
	case CCDiscCommandResponse:
		return "DISC_COMMAND_RESPONSE"
	case CCGetCommand:
		return "GET_COMMAND"
	case CCGetCommandResponse:
		return "GET_COMMAND_RESPONSE"
	case CCSetCommand:
		return "SET_COMMAND"
	case CCSetCommandResponse:
		return "SET_COMMAND_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// ResponseType classifies a responder's acknowledgement. The four low values
// appear on the wire; None and Invalid are local classifications for "no
// response arrived" and "a response arrived but failed validation".
type ResponseType uint8

const (
	// ResponseTypeAck indicates the request was fully satisfied.
	ResponseTypeAck ResponseType = 0x00
	// ResponseTypeAckTimer indicates the responder needs more time; the
	// payload carries an estimated delay.
	ResponseTypeAckTimer ResponseType = 0x01
	// ResponseTypeNackReason indicates the request was rejected; the
	// payload carries a reason code.
	ResponseTypeNackReason ResponseType = 0x02
	// ResponseTypeAckOverflow indicates the response exceeds one packet.
	// Continuation is not implemented; callers see it as a distinct,
	// unsupported outcome.
	ResponseTypeAckOverflow ResponseType = 0x03

	// ResponseTypeNone indicates no response was received. Never on the wire.
	ResponseTypeNone ResponseType = 0xfe
	// ResponseTypeInvalid indicates a response that failed validation.
	// Never on the wire.
	ResponseTypeInvalid ResponseType = 0xff
)

// IsWireValue reports whether the response type is one a responder may send.
func (rt ResponseType) IsWireValue() bool {
	return rt <= ResponseTypeAckOverflow
}

// String returns the response type name.
func (rt ResponseType) String() string {
	switch rt {
	case ResponseTypeAck:
		return "ACK"
	case ResponseTypeAckTimer:
		return "ACK_TIMER"
	case ResponseTypeNackReason:
		return "NACK_REASON"
	case ResponseTypeAckOverflow:
		return "ACK_OVERFLOW"
	case ResponseTypeNone:
		return "NONE"
	case ResponseTypeInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// PID is a 16-bit parameter identifier.
type PID uint16

// Standard parameter identifiers implemented by this library.
const (
	// PIDDiscUniqueBranch probes a branch of the UID address space.
	PIDDiscUniqueBranch PID = 0x0001
	// PIDDiscMute mutes a responder's discovery replies.
	PIDDiscMute PID = 0x0002
	// PIDDiscUnMute clears a responder's mute state.
	PIDDiscUnMute PID = 0x0003
	// PIDSupportedParameters lists the PIDs a responder implements.
	PIDSupportedParameters PID = 0x0050
	// PIDDeviceInfo reads the DEVICE_INFO block.
	PIDDeviceInfo PID = 0x0060
	// PIDDeviceLabel reads or writes the device label.
	PIDDeviceLabel PID = 0x0082
	// PIDSoftwareVersionLabel reads the software version label.
	PIDSoftwareVersionLabel PID = 0x00c0
	// PIDDMXStartAddress reads or writes the DMX start address.
	PIDDMXStartAddress PID = 0x00f0
	// PIDIdentifyDevice reads or writes the identify state.
	PIDIdentifyDevice PID = 0x1000
)

// String returns the PID name, or its hex form for unknown PIDs.
func (p PID) String() string {
	switch p {
	case PIDDiscUniqueBranch:
		return "DISC_UNIQUE_BRANCH"
	case PIDDiscMute:
		return "DISC_MUTE"
	case PIDDiscUnMute:
		return "DISC_UN_MUTE"
	case PIDSupportedParameters:
		return "SUPPORTED_PARAMETERS"
	case PIDDeviceInfo:
		return "DEVICE_INFO"
	case PIDDeviceLabel:
		return "DEVICE_LABEL"
	case PIDSoftwareVersionLabel:
		return "SOFTWARE_VERSION_LABEL"
	case PIDDMXStartAddress:
		return "DMX_START_ADDRESS"
	case PIDIdentifyDevice:
		return "IDENTIFY_DEVICE"
	default:
		return "PID_" + hex16(uint16(p))
	}
}

// NackReason is the 16-bit reason code carried by a NACK_REASON response.
type NackReason uint16

// Standard NACK reason codes.
const (
	// NackUnknownPID indicates the responder does not implement the PID.
	NackUnknownPID NackReason = 0x0000
	// NackFormatError indicates malformed parameter data.
	NackFormatError NackReason = 0x0001
	// NackHardwareFault indicates an internal responder fault.
	NackHardwareFault NackReason = 0x0002
	// NackProxyReject indicates a proxy refused to forward the request.
	NackProxyReject NackReason = 0x0003
	// NackWriteProtect indicates the responder is write-protected.
	NackWriteProtect NackReason = 0x0004
	// NackUnsupportedCommandClass indicates the PID does not support the
	// request's command class.
	NackUnsupportedCommandClass NackReason = 0x0005
	// NackDataOutOfRange indicates a parameter value outside its range.
	NackDataOutOfRange NackReason = 0x0006
	// NackBufferFull indicates the responder cannot queue the action.
	NackBufferFull NackReason = 0x0007
	// NackPacketSizeUnsupported indicates the responder cannot handle the
	// parameter-data size.
	NackPacketSizeUnsupported NackReason = 0x0008
	// NackSubDeviceOutOfRange indicates an unknown sub-device.
	NackSubDeviceOutOfRange NackReason = 0x0009
	// NackProxyBufferFull indicates the proxy's queue is full.
	NackProxyBufferFull NackReason = 0x000a
)

// String returns the NACK reason name.
func (r NackReason) String() string {
	switch r {
	case NackUnknownPID:
		return "UNKNOWN_PID"
	case NackFormatError:
		return "FORMAT_ERROR"
	case NackHardwareFault:
		return "HARDWARE_FAULT"
	case NackProxyReject:
		return "PROXY_REJECT"
	case NackWriteProtect:
		return "WRITE_PROTECT"
	case NackUnsupportedCommandClass:
		return "UNSUPPORTED_COMMAND_CLASS"
	case NackDataOutOfRange:
		return "DATA_OUT_OF_RANGE"
	case NackBufferFull:
		return "BUFFER_FULL"
	case NackPacketSizeUnsupported:
		return "PACKET_SIZE_UNSUPPORTED"
	case NackSubDeviceOutOfRange:
		return "SUB_DEVICE_OUT_OF_RANGE"
	case NackProxyBufferFull:
		return "PROXY_BUFFER_FULL"
	default:
		return "NACK_" + hex16(uint16(r))
	}
}

// Sub-device addressing.
const (
	// SubDeviceRoot addresses the root device.
	SubDeviceRoot uint16 = 0x0000
	// SubDeviceMax is the highest addressable sub-device.
	SubDeviceMax uint16 = 0x0200
	// SubDeviceAll addresses every sub-device. Valid for SET and DISC
	// requests only; a GET cannot ask all sub-devices at once.
	SubDeviceAll uint16 = 0xffff
)

const hexDigits = "0123456789abcdef"

func hex16(v uint16) string {
	return string([]byte{
		hexDigits[v>>12&0xf], hexDigits[v>>8&0xf],
		hexDigits[v>>4&0xf], hexDigits[v&0xf],
	})
}
