// Package log provides structured event capture for the reactor.
//
// This package defines the Logger interface and Event types for recording
// what happens to every connection: accepts, received and sent bytes,
// disconnects with their classification, and reactor lifecycle changes. It is
// separate from operational logging (slog); event capture provides a complete
// machine-readable trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/reactor/echo.rlog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at two layers:
//   - Transport: raw bytes read from or written to a socket (FrameEvent)
//   - Reactor: connection and lifecycle state changes (StateChangeEvent)
//
// Failures at either layer are recorded as ErrorEventData.
//
// # File Format
//
// Log files use CBOR encoding with the .rlog extension. The reactor-log CLI
// tool provides viewing, filtering, statistics and export.
package log
