package wire

import (
	"fmt"

	"github.com/rdm-protocol/rdm-go/pkg/uid"
)

// Header carries every field of an RDM packet except the parameter data.
// On requests PortID is the controller's port; on responses the same byte
// position carries the response type, so exactly one of PortID and
// ResponseType is meaningful depending on the command class.
type Header struct {
	DestUID      uid.UID
	SrcUID       uid.UID
	TN           uint8
	PortID       uint8
	ResponseType ResponseType
	MessageCount uint8
	SubDevice    uint16
	CC           CommandClass
	PID          PID
	PDL          uint8
}

// IsRequest reports whether the header describes a request.
func (h *Header) IsRequest() bool { return h.CC.IsRequest() }

// String returns a compact one-line rendering for logs.
func (h *Header) String() string {
	if h.CC.IsResponse() {
		return fmt.Sprintf("%s %s %s->%s tn=%d sub=%#04x pdl=%d %s",
			h.CC, h.PID, h.SrcUID, h.DestUID, h.TN, h.SubDevice, h.PDL, h.ResponseType)
	}
	return fmt.Sprintf("%s %s %s->%s tn=%d sub=%#04x pdl=%d port=%d",
		h.CC, h.PID, h.SrcUID, h.DestUID, h.TN, h.SubDevice, h.PDL, h.PortID)
}
