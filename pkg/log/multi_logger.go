package log

// MultiLogger fans one event stream out to several sinks, typically a
// .rlog FileLogger plus a SlogAdapter mirroring the bus to the console.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger builds a MultiLogger over sinks. Events are delivered in
// the order given.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	return &MultiLogger{sinks: sinks}
}

// Log delivers the event to every sink.
func (m *MultiLogger) Log(event Event) {
	for _, s := range m.sinks {
		s.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
