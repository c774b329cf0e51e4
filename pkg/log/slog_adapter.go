package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes control events to an slog.Logger.
// Useful for development when you want to see the event stream in console.
type SlogAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger
// at Debug level.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger, level: slog.LevelDebug}
}

// WithLevel returns a copy of the adapter that logs at the given level.
func (a *SlogAdapter) WithLevel(level slog.Level) *SlogAdapter {
	return &SlogAdapter{logger: a.logger, level: level}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.ContextID != "" {
		attrs = append(attrs, slog.String("context_id", event.ContextID))
	}
	if event.Group != "" || event.Item != "" {
		attrs = append(attrs,
			slog.String("group", event.Group),
			slog.String("item", event.Item),
		)
	}

	switch {
	case event.Write != nil:
		attrs = append(attrs,
			slog.Float64("value", event.Write.Value),
			slog.Float64("previous", event.Write.Previous),
			slog.Uint64("revision", event.Write.Revision),
		)
		if event.Write.Parameter {
			attrs = append(attrs, slog.Bool("parameter", true))
		}
		if event.Write.Rejected {
			attrs = append(attrs,
				slog.Bool("rejected", true),
				slog.String("reason", event.Write.Reason),
			)
		}
	case event.Notify != nil:
		attrs = append(attrs,
			slog.Uint64("conn_id", uint64(event.Notify.ConnectionID)),
			slog.Float64("value", event.Notify.Value),
			slog.Uint64("revision", event.Notify.Revision),
		)
		if event.Notify.Dropped {
			attrs = append(attrs, slog.Bool("dropped", true))
		}
		if event.Notify.Direct {
			attrs = append(attrs, slog.Bool("direct", true))
		}
	case event.Takeover != nil:
		attrs = append(attrs, slog.String("action", event.Takeover.Action.String()))
		if event.Takeover.Action == TakeoverReject {
			attrs = append(attrs,
				slog.Float64("parameter", event.Takeover.Parameter),
				slog.Float64("current", event.Takeover.Current),
			)
		}
	case event.Timer != nil:
		attrs = append(attrs,
			slog.String("action", event.Timer.Action.String()),
			slog.Int("timer_id", event.Timer.TimerID),
		)
		if event.Timer.Interval > 0 {
			attrs = append(attrs, slog.Duration("interval", event.Timer.Interval))
		}
		if event.Timer.OneShot {
			attrs = append(attrs, slog.Bool("one_shot", true))
		}
	case event.Connection != nil:
		attrs = append(attrs,
			slog.String("action", event.Connection.Action.String()),
			slog.Uint64("conn_id", uint64(event.Connection.ConnectionID)),
		)
		if event.Connection.Name != "" {
			attrs = append(attrs, slog.String("name", event.Connection.Name))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), a.level, "control", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
