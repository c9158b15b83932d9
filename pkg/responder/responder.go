// Package responder implements the device side of RDM: packet dispatch,
// discovery mute state, the built-in parameters every responder carries
// and a registry for device-specific ones.
package responder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	rdmlog "github.com/rdm-protocol/rdm-go/pkg/log"
	"github.com/rdm-protocol/rdm-go/pkg/param"
	"github.com/rdm-protocol/rdm-go/pkg/persistence"
	"github.com/rdm-protocol/rdm-go/pkg/uid"
	"github.com/rdm-protocol/rdm-go/pkg/wire"
)

// NackError converts a handler failure into a NACK_REASON response.
type NackError struct {
	Reason wire.NackReason
}

func (e *NackError) Error() string {
	return fmt.Sprintf("responder: nack %s", e.Reason)
}

// Nack returns a NackError for reason.
func Nack(reason wire.NackReason) error {
	return &NackError{Reason: reason}
}

// HandlerFunc handles one GET or SET for a PID. The returned bytes become
// the response parameter data. Returning a NackError produces a
// NACK_REASON; any other error a HARDWARE_FAULT.
type HandlerFunc func(subDevice uint16, pd []byte) ([]byte, error)

type pidHandler struct {
	get HandlerFunc
	set HandlerFunc
}

// Config describes the device a Responder represents.
type Config struct {
	// UID is the responder's UID. Required, non-broadcast.
	UID uid.UID

	// BindingUID is set on multi-port devices to the primary port UID.
	// Reported in mute responses.
	BindingUID uid.UID

	// Device identity reported by DEVICE_INFO.
	ModelID           uint16
	ProductCategory   uint16
	SoftwareVersionID uint32

	// SoftwareVersionLabel is the human-readable firmware version.
	SoftwareVersionLabel string

	// Footprint is the number of DMX slots the device occupies.
	Footprint uint16

	// PersonalityCount and CurrentPersonality describe the DMX personality.
	PersonalityCount   uint8
	CurrentPersonality uint8

	// StartAddress is the initial DMX start address, 1-512. Overridden by
	// a persisted value.
	StartAddress uint16

	// SubDeviceCount and SensorCount are reported by DEVICE_INFO.
	SubDeviceCount uint16
	SensorCount    uint8

	// Store persists label, start address and identify state. Defaults to
	// an in-memory store.
	Store persistence.Store

	// OnIdentify is called when a controller switches the identify
	// indicator. Optional.
	OnIdentify func(on bool)

	// SessionID and ProtocolLogger feed the protocol event capture.
	SessionID      string
	ProtocolLogger rdmlog.Logger
}

// Responder is one RDM responder port. Handle is safe for concurrent use,
// though a real bus delivers one packet at a time.
type Responder struct {
	cfg    Config
	uid    uid.UID
	store  persistence.Store
	logger rdmlog.Logger

	mu           sync.Mutex
	muted        bool
	identify     bool
	label        string
	startAddress uint16
	handlers     map[wire.PID]*pidHandler
}

// New builds a Responder from cfg, loading persisted parameter values.
func New(cfg Config) (*Responder, error) {
	if cfg.UID.IsNull() || cfg.UID.IsBroadcast() {
		return nil, fmt.Errorf("responder: invalid uid %s", cfg.UID)
	}
	if cfg.StartAddress == 0 {
		cfg.StartAddress = 1
	}
	if cfg.Store == nil {
		cfg.Store = &persistence.MemStore{}
	}
	if cfg.ProtocolLogger == nil {
		cfg.ProtocolLogger = rdmlog.NoopLogger{}
	}

	r := &Responder{
		cfg:          cfg,
		uid:          cfg.UID,
		store:        cfg.Store,
		logger:       cfg.ProtocolLogger,
		startAddress: cfg.StartAddress,
		handlers:     make(map[wire.PID]*pidHandler),
	}
	if _, err := r.store.Load(uint16(wire.PIDDeviceLabel), &r.label); err != nil {
		return nil, err
	}
	if _, err := r.store.Load(uint16(wire.PIDDMXStartAddress), &r.startAddress); err != nil {
		return nil, err
	}

	r.Register(wire.PIDDeviceInfo, r.getDeviceInfo, nil)
	r.Register(wire.PIDSupportedParameters, r.getSupportedParameters, nil)
	r.Register(wire.PIDSoftwareVersionLabel, r.getSoftwareVersionLabel, nil)
	r.Register(wire.PIDDeviceLabel, r.getDeviceLabel, r.setDeviceLabel)
	r.Register(wire.PIDDMXStartAddress, r.getStartAddress, r.setStartAddress)
	r.Register(wire.PIDIdentifyDevice, r.getIdentify, r.setIdentify)
	return r, nil
}

// UID returns the responder's UID.
func (r *Responder) UID() uid.UID { return r.uid }

// Muted reports the discovery mute state.
func (r *Responder) Muted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.muted
}

// Identify reports the identify indicator state.
func (r *Responder) Identify() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identify
}

// Register installs GET and SET handlers for a PID. Either may be nil when
// the PID does not support that command class. Registering a PID again
// replaces its handlers.
func (r *Responder) Register(pid wire.PID, get, set HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[pid] = &pidHandler{get: get, set: set}
}

// Handle processes one packet off the bus and returns the bytes to put on
// the line, or nil when the responder stays silent. Undecodable data and
// packets addressed elsewhere are ignored without error.
func (r *Responder) Handle(raw []byte) ([]byte, error) {
	h, pd, err := wire.DecodeMessage(raw)
	if err != nil {
		return nil, nil
	}
	if !h.CC.IsRequest() || !r.uid.IsTarget(h.DestUID) {
		return nil, nil
	}
	r.logRequest(h)

	if h.CC == wire.CCDiscCommand {
		return r.handleDiscovery(h, pd)
	}
	return r.handleParameter(h, pd)
}

// handleDiscovery covers the three discovery PIDs, which bypass the normal
// registry: branch probes answer with the masked frame format and mutes
// respond even to the discovery command class.
func (r *Responder) handleDiscovery(h *wire.Header, pd []byte) ([]byte, error) {
	switch h.PID {
	case wire.PIDDiscUniqueBranch:
		vals, err := param.DiscUniqueBranch.Extract(pd)
		if err != nil {
			return nil, nil
		}
		lo, hi := vals[0].(uid.UID), vals[1].(uid.UID)

		r.mu.Lock()
		muted := r.muted
		r.mu.Unlock()
		if muted || r.uid.Less(lo) || hi.Less(r.uid) {
			return nil, nil
		}
		frame := make([]byte, wire.DiscResponseSize)
		if _, err := wire.EncodeDiscResponse(frame, r.uid); err != nil {
			return nil, err
		}
		return frame, nil

	case wire.PIDDiscMute, wire.PIDDiscUnMute:
		r.mu.Lock()
		r.muted = h.PID == wire.PIDDiscMute
		r.mu.Unlock()

		if h.DestUID.IsBroadcast() {
			return nil, nil
		}
		var mutePD [8]byte
		vals := []any{r.controlField(), r.cfg.BindingUID}
		n, err := param.DiscMute.Emplace(mutePD[:], vals, len(mutePD), false)
		if err != nil {
			return nil, err
		}
		return r.respond(h, wire.ResponseTypeAck, 0, mutePD[:n])

	default:
		if h.DestUID.IsBroadcast() {
			return nil, nil
		}
		return r.respond(h, wire.ResponseTypeNackReason, wire.NackUnknownPID, nil)
	}
}

func (r *Responder) controlField() uint16 {
	var cf uint16
	if r.cfg.SubDeviceCount > 0 {
		cf |= 1 << 1
	}
	if !r.cfg.BindingUID.IsNull() {
		cf |= 1 << 3
	}
	return cf
}

// handleParameter dispatches a GET or SET through the registry.
func (r *Responder) handleParameter(h *wire.Header, pd []byte) ([]byte, error) {
	broadcast := h.DestUID.IsBroadcast()
	nack := func(reason wire.NackReason) ([]byte, error) {
		if broadcast {
			return nil, nil
		}
		return r.respond(h, wire.ResponseTypeNackReason, reason, nil)
	}

	if h.CC == wire.CCGetCommand && h.SubDevice == wire.SubDeviceAll {
		return nack(wire.NackSubDeviceOutOfRange)
	}
	if h.SubDevice != wire.SubDeviceAll && h.SubDevice > r.cfg.SubDeviceCount {
		return nack(wire.NackSubDeviceOutOfRange)
	}

	r.mu.Lock()
	handler := r.handlers[h.PID]
	r.mu.Unlock()
	if handler == nil {
		return nack(wire.NackUnknownPID)
	}

	fn := handler.get
	if h.CC == wire.CCSetCommand {
		fn = handler.set
	}
	if fn == nil {
		return nack(wire.NackUnsupportedCommandClass)
	}

	respPD, err := fn(h.SubDevice, pd)
	if err != nil {
		var ne *NackError
		if errors.As(err, &ne) {
			return nack(ne.Reason)
		}
		return nack(wire.NackHardwareFault)
	}
	if broadcast {
		return nil, nil
	}
	return r.respond(h, wire.ResponseTypeAck, 0, respPD)
}

// respond encodes a standard response echoing the request identity.
func (r *Responder) respond(req *wire.Header, rt wire.ResponseType, reason wire.NackReason, pd []byte) ([]byte, error) {
	if rt == wire.ResponseTypeNackReason {
		pd = []byte{uint8(uint16(reason) >> 8), uint8(reason)}
	}
	h := &wire.Header{
		DestUID:      req.SrcUID,
		SrcUID:       r.uid,
		TN:           req.TN,
		ResponseType: rt,
		SubDevice:    req.SubDevice,
		CC:           req.CC.Response(),
		PID:          req.PID,
	}
	buf := make([]byte, wire.BasePacketSize+len(pd))
	n, err := wire.EncodeMessage(buf, h, pd)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (r *Responder) logRequest(h *wire.Header) {
	r.logger.Log(rdmlog.Event{
		Timestamp: time.Now(),
		SessionID: r.cfg.SessionID,
		Direction: rdmlog.DirectionIn,
		Layer:     rdmlog.LayerWire,
		Category:  rdmlog.CategoryMessage,
		LocalRole: rdmlog.RoleResponder,
		LocalUID:  r.uid.String(),
		Message: &rdmlog.MessageEvent{
			CommandClass: uint8(h.CC),
			PID:          uint16(h.PID),
			DestUID:      h.DestUID.String(),
			SrcUID:       h.SrcUID.String(),
			TN:           h.TN,
			SubDevice:    h.SubDevice,
			PDL:          h.PDL,
		},
	})
}
