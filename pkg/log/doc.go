// Package log provides structured protocol logging for the RDM engine.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (bus, wire, engine). It is
// separate from operational logging (slog) - protocol capture provides a
// complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/rdm/controller.rlog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/rdm/controller.rlog"),
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Bus: Raw packet bytes (FrameEvent)
//   - Wire: Decoded packets (MessageEvent)
//   - Engine: Discovery progress (DiscoveryEvent)
//
// Errors have a dedicated event type and may occur at any layer.
//
// # File Format
//
// Log files use CBOR encoding with .rlog extension. The rdm-controller CLI
// can replay and filter captured traces.
package log
