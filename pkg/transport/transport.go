// Package transport abstracts the half-duplex DMX512 bus beneath the RDM
// engine. A Transport moves raw packet bytes on and off one physical or
// simulated port; framing, checksums and retry policy live above it.
package transport

import (
	"errors"
	"time"
)

var (
	// ErrTimeout is returned by Receive when no packet arrives in time.
	// The engine reports it as the absence of a response, not a failure.
	ErrTimeout = errors.New("transport: receive timeout")

	// ErrCollision is returned by Receive when the port saw line activity
	// that did not form a coherent packet, typically because several
	// responders transmitted at once.
	ErrCollision = errors.New("transport: bus collision")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("transport: port closed")
)

// Transport is one half-duplex bus port. Implementations are used by a
// single goroutine at a time; the engine serializes access above this
// layer.
type Transport interface {
	// Send queues a packet for transmission and returns the number of
	// bytes accepted. It does not wait for the line to drain.
	Send(data []byte) (int, error)

	// WaitSent blocks until the previous Send has left the line, or the
	// timeout expires. It reports whether transmission completed.
	WaitSent(timeout time.Duration) bool

	// Receive blocks until a packet arrives, returning its raw bytes.
	// It returns ErrTimeout if the line stays idle and ErrCollision if
	// overlapping transmissions garbled the line.
	Receive(timeout time.Duration) ([]byte, error)

	// Close releases the port. Blocked calls return ErrClosed.
	Close() error
}
