package reactor

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/mash-protocol/reactor-go/pkg/connection"
	"github.com/mash-protocol/reactor-go/pkg/log"
	"github.com/mash-protocol/reactor-go/pkg/peer"
)

// acceptLoop accepts connections until the listener closes or fails.
func (r *Reactor) acceptLoop(ctx context.Context, listener net.Listener) {
	defer r.wg.Done()

	backoff := connection.NewBackoffWithConfig(r.config.AcceptBackoff)
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				// Stopping
				return
			}
			if !errors.Is(err, net.ErrClosed) && isTemporaryAccept(err) {
				delay := backoff.Next()
				r.logger.Warn("temporary accept error", "error", err, "retry_in", delay, "attempt", backoff.Attempts())
				r.logError(nil, log.LayerTransport, err, "", "accept")
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
				continue
			}
			r.failAccept(err)
			return
		}

		backoff.Reset()
		r.accept(conn)
	}
}

// accept registers a new connection, publishes Connected and starts its
// receive pump.
func (r *Reactor) accept(conn net.Conn) {
	p, err := peer.FromAddr(conn.RemoteAddr())
	if err != nil {
		r.logger.Warn("rejecting connection with unusable address", "remote", conn.RemoteAddr(), "error", err)
		conn.Close()
		return
	}

	e := newEntry(conn, p)
	e.channel = newResponseChannel(r, e)

	r.acceptMu.Lock()
	if err := r.registry.add(e); err != nil {
		r.acceptMu.Unlock()
		r.logger.Warn("rejecting connection", "peer", p, "error", err)
		r.logError(e, log.LayerReactor, err, "", "register")
		conn.Close()
		return
	}
	r.logger.Debug("connection accepted", "peer", p, "conn_id", e.id)
	r.logState(e, log.StateEntityConnection, "", "CONNECTED", "")
	r.loop.Execute(func() { r.handler.Connected(p) })
	r.acceptMu.Unlock()

	r.wg.Add(1)
	go r.pump(e)
}

// failAccept records a fatal accept error and stops the reactor.
func (r *Reactor) failAccept(err error) {
	r.mu.Lock()
	r.acceptErr = err
	r.mu.Unlock()

	r.logger.Error("accept failed, stopping reactor", "error", err)
	r.logError(nil, log.LayerTransport, err, "", "accept")

	// Stop waits for this goroutine, so it cannot run here.
	go func() { _ = r.Stop() }()
}
