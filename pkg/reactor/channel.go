package reactor

import (
	"net"
	"sync/atomic"

	"github.com/mash-protocol/reactor-go/pkg/eventloop"
	"github.com/mash-protocol/reactor-go/pkg/peer"
)

// ResponseChannel is handed to Handler.Received and sends back to the peer
// the envelope came from. It stays usable until the connection is torn
// down; after that Send returns ErrChannelClosed.
type ResponseChannel struct {
	reactor  *Reactor
	entry    *entry
	released atomic.Bool
}

func newResponseChannel(r *Reactor, e *entry) *ResponseChannel {
	return &ResponseChannel{reactor: r, entry: e}
}

// Send writes data to the originating peer.
func (c *ResponseChannel) Send(data []byte) error {
	if c.released.Load() || c.entry.closing.Load() {
		return ErrChannelClosed
	}
	if len(data) == 0 {
		return nil
	}
	return c.reactor.write(c.entry, data)
}

// Close tears down the connection. Closing an already closed channel is a
// no-op.
func (c *ResponseChannel) Close() error {
	c.reactor.teardown(c.entry, nil)
	return nil
}

// IsOpen reports whether the connection is still live.
func (c *ResponseChannel) IsOpen() bool {
	return !c.released.Load() && !c.entry.closing.Load()
}

// Peer returns the remote peer.
func (c *ResponseChannel) Peer() peer.Identity {
	return c.entry.peer
}

// ConnID returns the connection identifier.
func (c *ResponseChannel) ConnID() string {
	return c.entry.id
}

// RemoteAddr returns the remote address of the connection.
func (c *ResponseChannel) RemoteAddr() net.Addr {
	return c.entry.conn.RemoteAddr()
}

// Loop returns the loop the reactor delivers notifications on.
func (c *ResponseChannel) Loop() eventloop.Loop {
	return c.reactor.loop
}

func (c *ResponseChannel) release() {
	c.released.Store(true)
}
