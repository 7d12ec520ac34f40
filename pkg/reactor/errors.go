package reactor

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/mash-protocol/reactor-go/pkg/peer"
)

// Reactor errors.
var (
	ErrNotConnected   = errors.New("not connected")
	ErrAlreadyStarted = errors.New("reactor already started")
	ErrNotRunning     = errors.New("reactor not running")
	ErrDisposed       = errors.New("reactor disposed")
	ErrDuplicatePeer  = errors.New("peer already connected")
	ErrNoHandler      = errors.New("handler is required")

	// ErrChannelClosed is returned by a ResponseChannel whose connection has
	// been torn down. It matches ErrNotConnected with errors.Is.
	ErrChannelClosed = fmt.Errorf("%w: response channel released", ErrNotConnected)
)

// ErrorType classifies why a connection ended.
type ErrorType uint8

const (
	// Closed means an orderly end: the peer closed its side, or the
	// connection was closed locally.
	Closed ErrorType = iota

	// Reset means the peer aborted the connection.
	Reset

	// IOError covers every other transport failure.
	IOError
)

// String returns the classification name.
func (t ErrorType) String() string {
	switch t {
	case Closed:
		return "CLOSED"
	case Reset:
		return "RESET"
	case IOError:
		return "IO"
	default:
		return "UNKNOWN"
	}
}

// ConnectionError describes the end of a connection. It is passed to
// Handler.Disconnected and returned from a Send whose write failed.
type ConnectionError struct {
	Type   ErrorType
	Peer   peer.Identity
	ConnID string

	// Cause is the underlying transport error. It is nil when the connection
	// was closed explicitly.
	Cause error
}

func (e *ConnectionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("connection %s %s", e.Peer, e.Type)
	}
	return fmt.Sprintf("connection %s %s: %v", e.Peer, e.Type, e.Cause)
}

// Unwrap returns the underlying transport error.
func (e *ConnectionError) Unwrap() error { return e.Cause }

// Classify maps a transport error to an ErrorType. A nil error is Closed.
func Classify(err error) ErrorType {
	switch {
	case err == nil,
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, net.ErrClosed):
		return Closed
	case isReset(err):
		return Reset
	default:
		return IOError
	}
}
