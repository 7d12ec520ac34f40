package reactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/mash-protocol/reactor-go/pkg/eventloop"
	"github.com/mash-protocol/reactor-go/pkg/log"
	"github.com/mash-protocol/reactor-go/pkg/peer"
)

// Reactor accepts TCP connections and routes bytes between them and a
// Handler.
type Reactor struct {
	config  Config
	handler Handler
	loop    eventloop.Loop
	logger  *slog.Logger
	events  log.Logger
	buffers *bufferPool

	registry *registry

	// acceptMu orders a connection's registration and Connected
	// notification before Stop seals the registry.
	acceptMu sync.Mutex

	// Lifecycle
	mu         sync.Mutex
	state      State
	listener   net.Listener
	listenAddr atomic.Value
	cancel     context.CancelFunc
	acceptErr  error
	active     atomic.Bool
	wg         sync.WaitGroup

	// stopped is closed when the Stop that left StateStarted returns.
	stopped  chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

// New creates a reactor. It does not bind until Start.
func New(config Config, handler Handler) (*Reactor, error) {
	if handler == nil {
		return nil, ErrNoHandler
	}
	config, err := config.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Reactor{
		config:   config,
		handler:  handler,
		loop:     config.Loop,
		logger:   config.Logger.With("component", "reactor"),
		events:   config.ProtocolLogger,
		buffers:  newBufferPool(config.BufferSize),
		registry: newRegistry(),
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start binds the listener and begins accepting connections. Cancelling ctx
// stops the reactor.
func (r *Reactor) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateDisposed:
		return ErrDisposed
	case StateStarted, StateStopped:
		return ErrAlreadyStarted
	}

	address := net.JoinHostPort(r.config.Address, strconv.Itoa(r.config.Port))
	listener, err := r.config.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	r.listener = listener
	r.listenAddr.Store(listener.Addr().String())

	var acceptCtx context.Context
	acceptCtx, r.cancel = context.WithCancel(context.Background())

	r.state = StateStarted
	r.active.Store(true)
	r.logger.Info("reactor started", "addr", listener.Addr().String())
	r.logState(nil, log.StateEntityReactor, StateCreated.String(), StateStarted.String(), "")

	// Start accept loop
	r.wg.Add(1)
	go r.acceptLoop(acceptCtx, listener)

	// Stop when the caller's context ends
	go func() {
		select {
		case <-ctx.Done():
			_ = r.Stop()
		case <-r.done:
		}
	}()

	return nil
}

// Stop closes the listener, tears down every connection with a Closed
// error, and waits for all reactor goroutines to exit. A Stop that overlaps
// one already in progress waits for it to finish. Stopping a reactor that is
// not running is a no-op.
func (r *Reactor) Stop() error {
	r.mu.Lock()
	switch r.state {
	case StateStarted:
	case StateStopped:
		r.mu.Unlock()
		<-r.stopped
		return nil
	default:
		r.mu.Unlock()
		return nil
	}
	r.state = StateStopped
	r.active.Store(false)
	r.cancel()
	listener := r.listener
	r.mu.Unlock()

	var errs error

	// Close listener to stop accept loop
	if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		errs = multierr.Append(errs, fmt.Errorf("close listener: %w", err))
	}
	r.logState(nil, log.StateEntityListener, "LISTENING", "CLOSED", "stop")

	// Refuse new registrations and close what is left
	r.acceptMu.Lock()
	entries := r.registry.seal()
	r.acceptMu.Unlock()
	for _, e := range entries {
		if err := r.teardownWith(e, nil); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	// Wait for goroutines
	r.wg.Wait()
	if err := r.registry.verify(); err != nil {
		r.logger.Error("registry inconsistent after stop", "error", err)
	}

	r.logger.Info("reactor stopped")
	r.logState(nil, log.StateEntityReactor, StateStarted.String(), StateStopped.String(), "")
	close(r.stopped)
	r.markDone()
	return errs
}

// Dispose stops the reactor, waiting for a Stop already in progress, and
// releases it permanently. Only the first call has any effect.
func (r *Reactor) Dispose() error {
	err := r.Stop()

	r.mu.Lock()
	if r.state == StateDisposed {
		r.mu.Unlock()
		return nil
	}
	old := r.state
	r.state = StateDisposed
	r.mu.Unlock()

	r.logState(nil, log.StateEntityReactor, old.String(), StateDisposed.String(), "")
	r.markDone()
	return err
}

// Wait blocks until the reactor stops. It returns the error that stopped the
// accept loop, or nil if the reactor was stopped normally.
func (r *Reactor) Wait() error {
	r.mu.Lock()
	created := r.state == StateCreated
	r.mu.Unlock()
	if created {
		return ErrNotRunning
	}

	<-r.done

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acceptErr
}

// Done is closed once the reactor has stopped.
func (r *Reactor) Done() <-chan struct{} {
	return r.done
}

// IsActive reports whether the reactor is accepting connections.
func (r *Reactor) IsActive() bool {
	return r.active.Load()
}

// State returns the lifecycle state.
func (r *Reactor) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Addr returns the listen address, or nil before Start.
func (r *Reactor) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener != nil {
		return r.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of registered connections.
func (r *Reactor) ConnectionCount() int {
	return r.registry.len()
}

// IsConnected reports whether p has a live connection.
func (r *Reactor) IsConnected(p peer.Identity) bool {
	e, ok := r.registry.lookup(p)
	return ok && !e.closing.Load()
}

// Peers returns the identities of all live connections.
func (r *Reactor) Peers() []peer.Identity {
	entries := r.registry.snapshot()
	peers := make([]peer.Identity, 0, len(entries))
	for _, e := range entries {
		if !e.closing.Load() {
			peers = append(peers, e.peer)
		}
	}
	return peers
}

func (r *Reactor) markDone() {
	r.doneOnce.Do(func() { close(r.done) })
}
