package reactor

import (
	"fmt"

	"github.com/mash-protocol/reactor-go/pkg/log"
	"github.com/mash-protocol/reactor-go/pkg/peer"
)

// Send writes data to the connection registered for to. It returns
// ErrNotConnected if there is none. A failed write tears the connection
// down and returns the *ConnectionError that Disconnected also receives.
func (r *Reactor) Send(data []byte, to peer.Identity) error {
	if r.State() == StateDisposed {
		return ErrDisposed
	}
	e, ok := r.registry.lookup(to)
	if !ok || e.closing.Load() {
		return fmt.Errorf("%w: %s", ErrNotConnected, to)
	}
	if len(data) == 0 {
		return nil
	}
	return r.write(e, data)
}

// write sends the whole of data on e.
func (r *Reactor) write(e *entry, data []byte) error {
	e.writeMu.Lock()
	_, err := e.conn.Write(data)
	e.writeMu.Unlock()

	if err != nil {
		cerr := r.connectionError(e, err)
		r.logger.Debug("write failed", "peer", e.peer, "conn_id", e.id, "error", err)
		r.teardown(e, err)
		return cerr
	}

	r.logFrame(e, log.DirectionOut, data)
	return nil
}

// CloseConnection tears down the connection registered for to. Closing a
// peer that is not connected is a no-op.
func (r *Reactor) CloseConnection(to peer.Identity) error {
	e, ok := r.registry.lookup(to)
	if !ok {
		return nil
	}
	r.teardown(e, nil)
	return nil
}
