package log

// Logger receives protocol events off the bus path: raw frames, decoded
// packets and discovery progress. Implementations must be safe for
// concurrent use; controller and responder roles log from whichever
// goroutine drives their port.
type Logger interface {
	// Log records one protocol event. It runs inside the bus
	// transaction, so implementations should return quickly or queue.
	Log(event Event)
}

// NoopLogger discards every event. It is the default sink when no capture
// is configured and is usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
