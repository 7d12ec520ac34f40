// Package netfake provides in-memory listeners and connections for tests.
//
// Listener hands out net.Pipe connections whose RemoteAddr reports an
// arbitrary address, so tests can drive the reactor with peers such as
// 203.0.113.5:4400 without touching the network. ScriptedConn replays a fixed
// sequence of reads and then fails with a chosen error.
package netfake

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"sync"
	"time"
)

// Listener is an in-memory net.Listener.
type Listener struct {
	addr   net.Addr
	conns  chan net.Conn
	errs   chan error
	closed chan struct{}
	once   sync.Once
}

// NewListener creates a listener reporting addr ("ip:port") as its address.
func NewListener(addr string) *Listener {
	return &Listener{
		addr:   TCPAddr(addr),
		conns:  make(chan net.Conn, 64),
		errs:   make(chan error, 16),
		closed: make(chan struct{}),
	}
}

// Listen returns a function with the signature of net.ListenConfig.Listen
// that always yields l.
func (l *Listener) Listen() func(ctx context.Context, network, address string) (net.Listener, error) {
	return func(context.Context, string, string) (net.Listener, error) {
		return l, nil
	}
}

// Accept returns the next pushed connection or injected error.
func (l *Listener) Accept() (net.Conn, error) {
	select {
	case <-l.closed:
		return nil, net.ErrClosed
	default:
	}
	select {
	case err := <-l.errs:
		return nil, err
	case c := <-l.conns:
		return c, nil
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

// Dial creates a pipe, queues the server half for Accept with the given
// remote address, and returns the client half.
func (l *Listener) Dial(remote string) net.Conn {
	server, client := net.Pipe()
	l.Push(&Conn{Conn: server, local: l.addr, remote: TCPAddr(remote)})
	return &Conn{Conn: client, local: TCPAddr(remote), remote: l.addr}
}

// Push queues an arbitrary connection for Accept.
func (l *Listener) Push(c net.Conn) {
	select {
	case l.conns <- c:
	case <-l.closed:
		_ = c.Close()
	}
}

// Fail makes a pending or future Accept return err.
func (l *Listener) Fail(err error) {
	l.errs <- err
}

// Close unblocks Accept. It is safe to call more than once.
func (l *Listener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

// Closed reports whether Close has been called.
func (l *Listener) Closed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}

// Addr returns the configured listen address.
func (l *Listener) Addr() net.Addr { return l.addr }

// Conn overrides the addresses of a wrapped connection.
type Conn struct {
	net.Conn
	local, remote net.Addr
}

// LocalAddr returns the overridden local address.
func (c *Conn) LocalAddr() net.Addr { return c.local }

// RemoteAddr returns the overridden remote address.
func (c *Conn) RemoteAddr() net.Addr { return c.remote }

// TCPAddr parses "ip:port" into a *net.TCPAddr, panicking on error.
func TCPAddr(s string) *net.TCPAddr {
	return net.TCPAddrFromAddrPort(netip.MustParseAddrPort(s))
}

// ScriptedConn returns each scripted chunk from successive Reads, then fails
// every later Read with the final error. Writes are recorded.
type ScriptedConn struct {
	mu       sync.Mutex
	remote   net.Addr
	chunks   [][]byte
	final    error
	written  bytes.Buffer
	writeErr error
	closed   bool
	release  chan struct{}
}

// NewScriptedConn builds a ScriptedConn. A nil final error means io.EOF.
func NewScriptedConn(remote string, chunks [][]byte, final error) *ScriptedConn {
	if final == nil {
		final = io.EOF
	}
	release := make(chan struct{})
	close(release)
	return &ScriptedConn{
		remote:  TCPAddr(remote),
		chunks:  chunks,
		final:   final,
		release: release,
	}
}

// Hold makes the final read error wait until Release or Close is called.
// It returns the connection for chaining.
func (c *ScriptedConn) Hold() *ScriptedConn {
	c.mu.Lock()
	c.release = make(chan struct{})
	c.mu.Unlock()
	return c
}

// Release lets a held connection deliver its final error.
func (c *ScriptedConn) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.release:
	default:
		close(c.release)
	}
}

// FailWrites makes every later Write return err.
func (c *ScriptedConn) FailWrites(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// Read implements net.Conn.
func (c *ScriptedConn) Read(b []byte) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, net.ErrClosed
	}
	if len(c.chunks) > 0 {
		chunk := c.chunks[0]
		n := copy(b, chunk)
		if n < len(chunk) {
			c.chunks[0] = chunk[n:]
		} else {
			c.chunks = c.chunks[1:]
		}
		c.mu.Unlock()
		return n, nil
	}
	release := c.release
	c.mu.Unlock()

	<-release

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed && !errors.Is(c.final, io.EOF) {
		return 0, net.ErrClosed
	}
	return 0, c.final
}

// Write implements net.Conn.
func (c *ScriptedConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	return c.written.Write(b)
}

// Written returns a copy of everything written so far.
func (c *ScriptedConn) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Clone(c.written.Bytes())
}

// Close implements net.Conn.
func (c *ScriptedConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	c.closed = true
	select {
	case <-c.release:
	default:
		close(c.release)
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (c *ScriptedConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// LocalAddr implements net.Conn.
func (c *ScriptedConn) LocalAddr() net.Addr { return TCPAddr("127.0.0.1:1") }

// RemoteAddr implements net.Conn.
func (c *ScriptedConn) RemoteAddr() net.Addr { return c.remote }

// SetDeadline implements net.Conn.
func (c *ScriptedConn) SetDeadline(time.Time) error { return nil }

// SetReadDeadline implements net.Conn.
func (c *ScriptedConn) SetReadDeadline(time.Time) error { return nil }

// SetWriteDeadline implements net.Conn.
func (c *ScriptedConn) SetWriteDeadline(time.Time) error { return nil }
