// Package simbus simulates a half-duplex DMX512 line with attached RDM
// responders. It drives the same engine code paths a serial port would,
// including the garbled frames a controller sees when several responders
// answer a branch probe at once.
package simbus

import (
	"sync"
	"time"

	"github.com/rdm-protocol/rdm-go/pkg/responder"
	"github.com/rdm-protocol/rdm-go/pkg/transport"
	"github.com/rdm-protocol/rdm-go/pkg/uid"
	"github.com/rdm-protocol/rdm-go/pkg/wire"
)

// Bus is one simulated line. Attach responders, then hand ControllerPort
// to the engine.
type Bus struct {
	mu      sync.Mutex
	devices []*device
}

type device struct {
	r *responder.Responder

	// swapDiscUID reproduces a known firmware defect: the device encodes
	// its UID byte-reversed in branch probe responses while answering
	// mutes on the true UID only.
	swapDiscUID bool
}

// Option adjusts one attached responder.
type Option func(*device)

// WithSwappedDiscUID makes the responder answer branch probes with its UID
// bytes reversed.
func WithSwappedDiscUID() Option {
	return func(d *device) { d.swapDiscUID = true }
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Attach puts a responder on the line.
func (b *Bus) Attach(r *responder.Responder, opts ...Option) {
	d := &device{r: r}
	for _, opt := range opts {
		opt(d)
	}
	b.mu.Lock()
	b.devices = append(b.devices, d)
	b.mu.Unlock()
}

// Responders returns the attached responders in attach order.
func (b *Bus) Responders() []*responder.Responder {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*responder.Responder, len(b.devices))
	for i, d := range b.devices {
		out[i] = d.r
	}
	return out
}

// deliver runs one packet past every responder and merges what they put on
// the line.
func (b *Bus) deliver(raw []byte) ([]byte, error) {
	b.mu.Lock()
	devices := append([]*device(nil), b.devices...)
	b.mu.Unlock()

	var frames [][]byte
	for _, d := range devices {
		frame, err := d.r.Handle(raw)
		if err != nil || frame == nil {
			continue
		}
		if d.swapDiscUID && wire.IsDiscResponse(frame) {
			frame = swapDiscFrame(frame, d.r.UID())
		}
		frames = append(frames, frame)
	}

	switch len(frames) {
	case 0:
		return nil, transport.ErrTimeout
	case 1:
		return frames[0], nil
	}

	// Several responders drove the line at once. Overlapping discovery
	// frames merge bitwise; anything else is unrecoverable noise.
	merged := frames[0]
	for _, f := range frames[1:] {
		if len(f) != len(merged) || !wire.IsDiscResponse(f) || !wire.IsDiscResponse(merged) {
			return nil, transport.ErrCollision
		}
		out := make([]byte, len(merged))
		for i := range merged {
			out[i] = merged[i] | f[i]
		}
		merged = out
	}
	return merged, nil
}

func swapDiscFrame(frame []byte, u uid.UID) []byte {
	out := make([]byte, wire.DiscResponseSize)
	if _, err := wire.EncodeDiscResponse(out, u.Flip()); err != nil {
		return frame
	}
	return out
}

// ControllerPort returns a Transport wired to the bus for the controller
// side of the engine.
func (b *Bus) ControllerPort() transport.Transport {
	return &ctrlPort{bus: b}
}

type ctrlPort struct {
	bus *Bus

	mu      sync.Mutex
	pending []byte
	pendErr error
	loaded  bool
	closed  bool
}

func (p *ctrlPort) Send(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, transport.ErrClosed
	}
	p.pending, p.pendErr = p.bus.deliver(data)
	p.loaded = true
	return len(data), nil
}

func (p *ctrlPort) WaitSent(time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

func (p *ctrlPort) Receive(time.Duration) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, transport.ErrClosed
	}
	if !p.loaded {
		return nil, transport.ErrTimeout
	}
	data, err := p.pending, p.pendErr
	p.pending, p.pendErr, p.loaded = nil, nil, false
	return data, err
}

func (p *ctrlPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

var _ transport.Transport = (*ctrlPort)(nil)
