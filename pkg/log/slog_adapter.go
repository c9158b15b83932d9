package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.Port != "" {
		attrs = append(attrs, slog.String("port", event.Port))
	}
	if event.LocalUID != "" {
		attrs = append(attrs, slog.String("local_uid", event.LocalUID))
	}

	// Add type-specific attributes
	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Message != nil:
		attrs = append(attrs,
			slog.Uint64("cc", uint64(event.Message.CommandClass)),
			slog.Uint64("pid", uint64(event.Message.PID)),
			slog.String("dest", event.Message.DestUID),
			slog.String("src", event.Message.SrcUID),
			slog.Uint64("tn", uint64(event.Message.TN)),
		)
		if event.Message.ResponseType != nil {
			attrs = append(attrs, slog.Uint64("response_type", uint64(*event.Message.ResponseType)))
		}
		if event.Message.NackReason != nil {
			attrs = append(attrs, slog.Uint64("nack_reason", uint64(*event.Message.NackReason)))
		}
		if event.Message.ProcessingTime != nil {
			attrs = append(attrs, slog.Duration("processing_time", *event.Message.ProcessingTime))
		}
	case event.Discovery != nil:
		attrs = append(attrs, slog.String("phase", event.Discovery.Phase.String()))
		if event.Discovery.LowerUID != "" {
			attrs = append(attrs,
				slog.String("lower", event.Discovery.LowerUID),
				slog.String("upper", event.Discovery.UpperUID),
			)
		}
		if event.Discovery.FoundUID != "" {
			attrs = append(attrs, slog.String("found", event.Discovery.FoundUID))
		}
		if event.Discovery.Collision {
			attrs = append(attrs, slog.Bool("collision", true))
		}
		if event.Discovery.Attempt != 0 {
			attrs = append(attrs, slog.Uint64("attempt", uint64(event.Discovery.Attempt)))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
