package reactor

import (
	"errors"
	"fmt"
	"net"

	"github.com/mash-protocol/reactor-go/pkg/log"
)

// teardown closes e and publishes Disconnected. Only the first call for an
// entry does anything; it reports whether this call performed the teardown.
func (r *Reactor) teardown(e *entry, cause error) bool {
	if !e.closing.CompareAndSwap(false, true) {
		return false
	}

	cerr := r.connectionError(e, cause)

	// Unregister and release even if the handler panics.
	defer func() {
		r.registry.remove(e)
		e.channel.release()
		r.logger.Debug("connection closed", "peer", e.peer, "conn_id", e.id, "type", cerr.Type)
		r.logState(e, log.StateEntityConnection, "CONNECTED", "DISCONNECTED", cerr.Type.String())
	}()

	if cause != nil {
		r.logError(e, log.LayerTransport, cause, cerr.Type.String(), "connection")
	}
	if err := e.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		r.logger.Debug("close failed", "peer", e.peer, "error", err)
		e.closeErr = err
	}

	r.loop.Execute(func() {
		e.disconnected.Store(true)
		r.handler.Disconnected(e.peer, cerr)
	})
	return true
}

// teardownWith is teardown for callers that collect close errors.
func (r *Reactor) teardownWith(e *entry, cause error) error {
	if !r.teardown(e, cause) {
		return nil
	}
	if e.closeErr != nil {
		return fmt.Errorf("close %s: %w", e.peer, e.closeErr)
	}
	return nil
}

func (r *Reactor) connectionError(e *entry, cause error) *ConnectionError {
	return &ConnectionError{
		Type:   Classify(cause),
		Peer:   e.peer,
		ConnID: e.id,
		Cause:  cause,
	}
}
