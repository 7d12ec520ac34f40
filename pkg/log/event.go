package log

import (
	"time"
)

// MaxFrameDataSize is the maximum number of payload bytes kept in a FrameEvent.
const MaxFrameDataSize = 256

// Event represents a reactor log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	// Empty for listener and reactor events.
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates data flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// LocalAddr is the listening address.
	LocalAddr string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"12,keyasint,omitempty"`
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates inbound data or a remotely initiated change.
	DirectionIn Direction = 0
	// DirectionOut indicates outbound data or a locally initiated change.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the socket layer (raw bytes).
	LayerTransport Layer = 0
	// LayerReactor is the connection registry and lifecycle layer.
	LayerReactor Layer = 1
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerReactor:
		return "REACTOR"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryData indicates bytes received or sent.
	CategoryData Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryData:
		return "DATA"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures bytes moved over a connection.
type FrameEvent struct {
	// Size is the number of bytes read or written.
	Size int `cbor:"1,keyasint"`

	// Data is the raw bytes (truncated to MaxFrameDataSize).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// NewFrameEvent copies at most MaxFrameDataSize bytes of data into a FrameEvent.
func NewFrameEvent(data []byte) *FrameEvent {
	n := len(data)
	truncated := false
	if n > MaxFrameDataSize {
		n = MaxFrameDataSize
		truncated = true
	}
	kept := make([]byte, n)
	copy(kept, data)
	return &FrameEvent{Size: len(data), Data: kept, Truncated: truncated}
}

// StateChangeEvent captures connection and reactor lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntityListener indicates a listener state change.
	StateEntityListener StateEntity = 1
	// StateEntityReactor indicates a reactor lifecycle change.
	StateEntityReactor StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityListener:
		return "LISTENER"
	case StateEntityReactor:
		return "REACTOR"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Kind is the classification of a connection error (CLOSED, RESET, IO).
	Kind string `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
