// Package log provides structured event capture for the control bridge.
//
// This package defines the Logger interface and Event types for capturing
// control-level events at multiple layers (engine, script, bridge). It is
// separate from operational logging (slog) - event capture provides a
// complete machine-readable trace of writes, notifications, takeover
// decisions and timer firings for debugging and analysis.
//
// # Basic Usage
//
// Components accept a Logger through their options:
//
//	// For development: log to console via slog
//	reg := control.NewRegistry(control.WithEventLogger(log.NewSlogAdapter(slog.Default())))
//
//	// For production: write to binary file
//	fl, _ := log.NewFileLogger("/var/log/cobridge/session.clog")
//
//	// Both: use Tee
//	events := log.Tee(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Engine: cell writes from application code (WriteEvent)
//   - Script: deliveries and timers on the scripting domain (NotifyEvent, TimerEvent)
//   - Bridge: script-facing entry points (TakeoverEvent, ConnectionEvent)
//
// Errors raised by script callbacks have a dedicated event type.
//
// # File Format
//
// Log files use CBOR encoding with .clog extension. Decoding rejects
// records whose layer or category is unknown (ErrMalformedEvent). The cobridge-log CLI
// tool provides viewing, filtering, and export capabilities.
package log
