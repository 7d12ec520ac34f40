package reactor

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/mash-protocol/reactor-go/pkg/connection"
	"github.com/mash-protocol/reactor-go/pkg/eventloop"
	"github.com/mash-protocol/reactor-go/pkg/log"
)

// DefaultBufferSize is the per-connection read buffer size.
const DefaultBufferSize = 8 * 1024

// ListenFunc opens the listening socket. It has the signature of
// (*net.ListenConfig).Listen.
type ListenFunc func(ctx context.Context, network, address string) (net.Listener, error)

// Config configures a Reactor.
type Config struct {
	// Address is the host to bind (e.g. "127.0.0.1", "::"). Empty binds all
	// interfaces.
	Address string

	// Port to bind. 0 picks a free port; see Reactor.Addr.
	Port int

	// BufferSize is the size of each connection's read buffer
	// (default: DefaultBufferSize).
	BufferSize int

	// Loop runs handler callbacks (default: eventloop.Inline).
	Loop eventloop.Loop

	// Listen opens the listener (default: net.ListenConfig.Listen).
	Listen ListenFunc

	// Logger for operational messages (default: slog.Default()).
	Logger *slog.Logger

	// ProtocolLogger captures connection events (optional).
	ProtocolLogger log.Logger

	// AcceptBackoff paces retries after temporary accept errors.
	AcceptBackoff connection.BackoffConfig
}

// DefaultConfig returns a configuration listening on all interfaces with an
// OS-assigned port.
func DefaultConfig() Config {
	return Config{
		BufferSize: DefaultBufferSize,
	}
}

// withDefaults validates c and fills unset fields.
func (c Config) withDefaults() (Config, error) {
	if c.Port < 0 || c.Port > 0xFFFF {
		return c, fmt.Errorf("port %d out of range", c.Port)
	}
	if c.BufferSize < 0 {
		return c, fmt.Errorf("buffer size %d is negative", c.BufferSize)
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.Loop == nil {
		c.Loop = eventloop.Inline{}
	}
	if c.Listen == nil {
		var lc net.ListenConfig
		c.Listen = lc.Listen
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ProtocolLogger == nil {
		c.ProtocolLogger = log.NoopLogger{}
	}
	return c, nil
}
