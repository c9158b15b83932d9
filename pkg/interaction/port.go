// Package interaction implements the controller side of the RDM request and
// response cycle: exclusive port access, transaction numbering, response
// validation and acknowledgement classification.
package interaction

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	rdmlog "github.com/rdm-protocol/rdm-go/pkg/log"
	"github.com/rdm-protocol/rdm-go/pkg/transport"
	"github.com/rdm-protocol/rdm-go/pkg/uid"
	"github.com/rdm-protocol/rdm-go/pkg/wire"
)

var (
	// ErrPortBusy is returned by Begin while another operation holds the port.
	ErrPortBusy = errors.New("interaction: port busy")

	// ErrOpEnded is returned by an operation token used after End.
	ErrOpEnded = errors.New("interaction: operation ended")

	// ErrNack is the error form of a NACK_REASON response.
	ErrNack = errors.New("interaction: request nacked")

	// ErrAckTimer is the error form of an ACK_TIMER response.
	ErrAckTimer = errors.New("interaction: responder busy")

	// ErrAckOverflow is the error form of an ACK_OVERFLOW response.
	// Overflowed responses are not reassembled.
	ErrAckOverflow = errors.New("interaction: response overflow unsupported")

	// ErrNoResponse indicates the responder stayed silent.
	ErrNoResponse = errors.New("interaction: no response")

	// ErrInvalidResponse indicates a response arrived but failed validation.
	ErrInvalidResponse = errors.New("interaction: invalid response")
)

// DefaultResponseTimeout bounds the wait for a responder to begin its reply.
// Generous compared to line timing so that simulated transports with real
// scheduling jitter stay reliable.
const DefaultResponseTimeout = 50 * time.Millisecond

// ackTimerUnit is the wire granularity of an ACK_TIMER delay estimate.
const ackTimerUnit = 10 * time.Millisecond

// Config configures a Port.
type Config struct {
	// Transport is the bus port. Required.
	Transport transport.Transport

	// UID is the controller's own UID. Required, non-broadcast.
	UID uid.UID

	// PortID identifies this physical port on the controller, 1-255.
	PortID uint8

	// Name labels the port in protocol logs. Defaults to "bus".
	Name string

	// ResponseTimeout bounds the wait for each response. Defaults to
	// DefaultResponseTimeout.
	ResponseTimeout time.Duration

	// SessionID tags protocol log events. Optional.
	SessionID string

	// ProtocolLogger receives protocol events. Defaults to NoopLogger.
	ProtocolLogger rdmlog.Logger
}

// Port is one controller-side bus port. All transactions on a port are
// serialized: Begin hands out an exclusive operation token and fails
// instead of blocking while one is outstanding.
type Port struct {
	tr        transport.Transport
	uid       uid.UID
	portID    uint8
	name      string
	timeout   time.Duration
	sessionID string
	logger    rdmlog.Logger

	busy atomic.Bool
	tn   uint8
}

// NewPort validates cfg and returns a ready Port.
func NewPort(cfg Config) (*Port, error) {
	if cfg.Transport == nil {
		return nil, errors.New("interaction: transport is required")
	}
	if cfg.UID.IsNull() || cfg.UID.IsBroadcast() {
		return nil, fmt.Errorf("interaction: invalid controller uid %s", cfg.UID)
	}
	if cfg.PortID == 0 {
		cfg.PortID = 1
	}
	if cfg.Name == "" {
		cfg.Name = "bus"
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = DefaultResponseTimeout
	}
	if cfg.ProtocolLogger == nil {
		cfg.ProtocolLogger = rdmlog.NoopLogger{}
	}
	return &Port{
		tr:        cfg.Transport,
		uid:       cfg.UID,
		portID:    cfg.PortID,
		name:      cfg.Name,
		timeout:   cfg.ResponseTimeout,
		sessionID: cfg.SessionID,
		logger:    cfg.ProtocolLogger,
	}, nil
}

// UID returns the controller UID transactions are sent from.
func (p *Port) UID() uid.UID { return p.uid }

// Begin acquires the port and returns an operation token. It never blocks:
// if another operation is in flight it returns ErrPortBusy immediately.
// The caller must call End on the returned token.
func (p *Port) Begin() (*Op, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, ErrPortBusy
	}
	return &Op{port: p}, nil
}

// Op is an exclusive operation token for one port. It is not safe for
// concurrent use; the holder runs one transaction at a time.
type Op struct {
	port  *Port
	ended bool
}

// End releases the port. Safe to call more than once.
func (o *Op) End() {
	if o.ended {
		return
	}
	o.ended = true
	o.port.busy.Store(false)
}

// Request names everything a transaction needs besides the controller
// identity the port supplies.
type Request struct {
	DestUID   uid.UID
	SubDevice uint16
	CC        wire.CommandClass
	PID       wire.PID
	PD        []byte
}

// Send runs one request and response cycle and classifies the outcome.
// Broadcast requests other than branch probes expect no response and
// return an Ack of type None with a nil error. The returned parameter
// data is only non-empty for an ACK.
//
// Branch probes go through Probe instead; their response is not a
// standard packet.
func (o *Op) Send(req Request) (*Ack, []byte, error) {
	h, err := o.prepare(req)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	if err := o.transmit(h, req.PD); err != nil {
		return nil, nil, err
	}

	// A response comes back only when exactly one responder was addressed.
	if req.DestUID.IsBroadcast() {
		return &Ack{Type: wire.ResponseTypeNone}, nil, nil
	}

	raw, err := o.port.tr.Receive(o.port.timeout)
	switch {
	case errors.Is(err, transport.ErrTimeout):
		o.logEngineError("receive", err)
		return &Ack{Type: wire.ResponseTypeNone}, nil, nil
	case errors.Is(err, transport.ErrCollision):
		o.logEngineError("receive", err)
		return &Ack{Type: wire.ResponseTypeInvalid}, nil, nil
	case err != nil:
		return nil, nil, fmt.Errorf("interaction: receive: %w", err)
	}
	o.logFrame(rdmlog.DirectionIn, raw)

	resp, pd, err := wire.DecodeMessage(raw)
	if err != nil {
		o.logEngineError("decode", err)
		return &Ack{Type: wire.ResponseTypeInvalid}, nil, nil
	}
	if err := wire.ValidateResponse(h, resp); err != nil {
		o.logEngineError("validate", err)
		return &Ack{Type: wire.ResponseTypeInvalid}, nil, nil
	}
	ack := o.classify(resp, pd)
	o.logResponse(resp, ack, time.Since(start))
	if ack.Type != wire.ResponseTypeAck {
		pd = nil
	}
	return ack, pd, nil
}

// prepare builds the request header and advances the transaction number.
func (o *Op) prepare(req Request) (*wire.Header, error) {
	if o.ended {
		return nil, ErrOpEnded
	}
	if req.DestUID.IsNull() {
		return nil, errors.New("interaction: destination is the null UID")
	}
	if !req.CC.IsRequest() {
		return nil, fmt.Errorf("interaction: %s is not a request class", req.CC)
	}
	if req.CC == wire.CCGetCommand && req.SubDevice == wire.SubDeviceAll {
		return nil, errors.New("interaction: GET cannot address all sub-devices")
	}
	h := &wire.Header{
		DestUID:   req.DestUID,
		SrcUID:    o.port.uid,
		TN:        o.port.tn,
		PortID:    o.port.portID,
		SubDevice: req.SubDevice,
		CC:        req.CC,
		PID:       req.PID,
	}
	o.port.tn++
	return h, nil
}

// transmit encodes the request and pushes it onto the line.
func (o *Op) transmit(h *wire.Header, pd []byte) error {
	var buf [wire.MaxPacketSize]byte
	n, err := wire.EncodeMessage(buf[:], h, pd)
	if err != nil {
		return err
	}
	if _, err := o.port.tr.Send(buf[:n]); err != nil {
		return fmt.Errorf("interaction: send: %w", err)
	}
	o.logFrame(rdmlog.DirectionOut, buf[:n])
	if !o.port.tr.WaitSent(o.port.timeout) {
		return fmt.Errorf("interaction: send: %w", transport.ErrTimeout)
	}
	return nil
}

// classify folds the decoded response into an Ack.
func (o *Op) classify(resp *wire.Header, pd []byte) *Ack {
	ack := &Ack{
		Type:         resp.ResponseType,
		Src:          resp.SrcUID,
		TN:           resp.TN,
		MessageCount: resp.MessageCount,
		PDL:          resp.PDL,
	}
	if !resp.ResponseType.IsWireValue() {
		ack.Type = wire.ResponseTypeInvalid
		return ack
	}
	switch resp.ResponseType {
	case wire.ResponseTypeAckTimer:
		if len(pd) < 2 {
			ack.Type = wire.ResponseTypeInvalid
			return ack
		}
		ack.Timer = time.Duration(binary.BigEndian.Uint16(pd)) * ackTimerUnit
	case wire.ResponseTypeNackReason:
		if len(pd) < 2 {
			ack.Type = wire.ResponseTypeInvalid
			return ack
		}
		ack.NackReason = wire.NackReason(binary.BigEndian.Uint16(pd))
	}
	return ack
}

func (o *Op) logFrame(dir rdmlog.Direction, data []byte) {
	const maxCapture = 64
	frame := &rdmlog.FrameEvent{Size: len(data)}
	if len(data) > maxCapture {
		frame.Data = append([]byte(nil), data[:maxCapture]...)
		frame.Truncated = true
	} else {
		frame.Data = append([]byte(nil), data...)
	}
	o.port.logger.Log(rdmlog.Event{
		Timestamp: time.Now(),
		SessionID: o.port.sessionID,
		Direction: dir,
		Layer:     rdmlog.LayerBus,
		Category:  rdmlog.CategoryMessage,
		LocalRole: rdmlog.RoleController,
		Port:      o.port.name,
		LocalUID:  o.port.uid.String(),
		Frame:     frame,
	})
}

func (o *Op) logResponse(resp *wire.Header, ack *Ack, elapsed time.Duration) {
	rt := uint8(ack.Type)
	msg := &rdmlog.MessageEvent{
		CommandClass:   uint8(resp.CC),
		PID:            uint16(resp.PID),
		DestUID:        resp.DestUID.String(),
		SrcUID:         resp.SrcUID.String(),
		TN:             resp.TN,
		SubDevice:      resp.SubDevice,
		ResponseType:   &rt,
		PDL:            resp.PDL,
		ProcessingTime: &elapsed,
	}
	if ack.Type == wire.ResponseTypeNackReason {
		nr := uint16(ack.NackReason)
		msg.NackReason = &nr
	}
	o.port.logger.Log(rdmlog.Event{
		Timestamp: time.Now(),
		SessionID: o.port.sessionID,
		Direction: rdmlog.DirectionIn,
		Layer:     rdmlog.LayerWire,
		Category:  rdmlog.CategoryMessage,
		LocalRole: rdmlog.RoleController,
		Port:      o.port.name,
		LocalUID:  o.port.uid.String(),
		Message:   msg,
	})
}

func (o *Op) logEngineError(ctx string, err error) {
	o.port.logger.Log(rdmlog.Event{
		Timestamp: time.Now(),
		SessionID: o.port.sessionID,
		Direction: rdmlog.DirectionIn,
		Layer:     rdmlog.LayerEngine,
		Category:  rdmlog.CategoryError,
		LocalRole: rdmlog.RoleController,
		Port:      o.port.name,
		LocalUID:  o.port.uid.String(),
		Error:     &rdmlog.ErrorEventData{Layer: rdmlog.LayerEngine, Message: err.Error(), Context: ctx},
	})
}
