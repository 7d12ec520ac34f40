package reactor

import (
	"github.com/mash-protocol/reactor-go/pkg/peer"
)

// Envelope carries bytes received from one peer. Data is owned by the
// receiver: it never aliases a buffer the reactor reuses.
type Envelope struct {
	Data   []byte
	Length int
	Origin peer.Identity
}

// Handler receives notifications from a Reactor. Calls are made on the
// reactor's eventloop.Loop.
type Handler interface {
	// Connected is called once after a connection is accepted and registered.
	Connected(p peer.Identity)

	// Disconnected is called once when a connection is torn down.
	Disconnected(p peer.Identity, err *ConnectionError)

	// Received is called for every successful read, in read order per
	// connection. ch sends back to the originating peer.
	Received(env Envelope, ch *ResponseChannel)
}

// HandlerFuncs adapts plain functions to the Handler interface.
// Nil fields are skipped.
type HandlerFuncs struct {
	OnConnect    func(p peer.Identity)
	OnDisconnect func(p peer.Identity, err *ConnectionError)
	OnReceive    func(env Envelope, ch *ResponseChannel)
}

// Connected calls OnConnect.
func (h HandlerFuncs) Connected(p peer.Identity) {
	if h.OnConnect != nil {
		h.OnConnect(p)
	}
}

// Disconnected calls OnDisconnect.
func (h HandlerFuncs) Disconnected(p peer.Identity, err *ConnectionError) {
	if h.OnDisconnect != nil {
		h.OnDisconnect(p, err)
	}
}

// Received calls OnReceive.
func (h HandlerFuncs) Received(env Envelope, ch *ResponseChannel) {
	if h.OnReceive != nil {
		h.OnReceive(env, ch)
	}
}

// Sender is implemented by anything that can deliver bytes to a peer.
type Sender interface {
	Send(data []byte, to peer.Identity) error
}

// Compile-time interface satisfaction checks.
var (
	_ Handler = HandlerFuncs{}
	_ Sender  = (*Reactor)(nil)
	_ error   = (*ConnectionError)(nil)
)
