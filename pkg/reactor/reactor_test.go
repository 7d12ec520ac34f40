package reactor

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/reactor-go/internal/netfake"
	"github.com/mash-protocol/reactor-go/pkg/connection"
	"github.com/mash-protocol/reactor-go/pkg/eventloop"
	"github.com/mash-protocol/reactor-go/pkg/log"
	"github.com/mash-protocol/reactor-go/pkg/peer"
)

const (
	listenAddr = "10.0.0.1:9000"
	remoteAddr = "203.0.113.5:4400"
	waitLimit  = 2 * time.Second
)

type disconnect struct {
	peer peer.Identity
	err  *ConnectionError
}

// recorder is a Handler that reports every callback on a channel.
type recorder struct {
	connected    chan peer.Identity
	disconnected chan disconnect
	received     chan Envelope
	onReceive    func(env Envelope, ch *ResponseChannel)
}

func newRecorder() *recorder {
	return &recorder{
		connected:    make(chan peer.Identity, 64),
		disconnected: make(chan disconnect, 64),
		received:     make(chan Envelope, 64),
	}
}

func (h *recorder) Connected(p peer.Identity) { h.connected <- p }

func (h *recorder) Disconnected(p peer.Identity, err *ConnectionError) {
	h.disconnected <- disconnect{peer: p, err: err}
}

func (h *recorder) Received(env Envelope, ch *ResponseChannel) {
	if h.onReceive != nil {
		h.onReceive(env, ch)
	}
	h.received <- env
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitLimit):
		t.Fatalf("timed out waiting for %T", *new(T))
		panic("unreachable")
	}
}

func assertNone[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected %T: %v", v, v)
	case <-time.After(50 * time.Millisecond):
	}
}

// captureLogger records protocol events.
type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLogger) Log(event log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureLogger) Events() []log.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]log.Event(nil), c.events...)
}

func startFake(t *testing.T, h Handler, mutate ...func(*Config)) (*Reactor, *netfake.Listener) {
	t.Helper()

	ln := netfake.NewListener(listenAddr)
	config := DefaultConfig()
	config.Listen = ln.Listen()
	for _, m := range mutate {
		m(&config)
	}

	r, err := New(config, h)
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() { _ = r.Dispose() })
	return r, ln
}

func resetErr(op string) error {
	return &net.OpError{Op: op, Net: "tcp", Err: os.NewSyscallError(op, syscall.ECONNRESET)}
}

func TestNewRequiresHandler(t *testing.T) {
	_, err := New(DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestNewRejectsBadConfig(t *testing.T) {
	config := DefaultConfig()
	config.Port = 70000
	_, err := New(config, newRecorder())
	assert.Error(t, err)

	config = DefaultConfig()
	config.BufferSize = -1
	_, err = New(config, newRecorder())
	assert.Error(t, err)
}

func TestConnectAndEcho(t *testing.T) {
	h := newRecorder()
	h.onReceive = func(env Envelope, ch *ResponseChannel) {
		assert.NoError(t, ch.Send(env.Data))
	}
	r, ln := startFake(t, h)

	client := ln.Dial(remoteAddr)
	defer client.Close()

	want := peer.MustParse(remoteAddr)
	assert.Equal(t, want, waitFor(t, h.connected))
	assert.True(t, r.IsConnected(want))
	assert.Equal(t, 1, r.ConnectionCount())
	assert.Equal(t, []peer.Identity{want}, r.Peers())

	_, err := client.Write([]byte("hello"))
	require.NoError(t, err)

	reply := make([]byte, 5)
	_, err = io.ReadFull(client, reply)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(reply))

	env := waitFor(t, h.received)
	assert.Equal(t, []byte("hello"), env.Data)
	assert.Equal(t, 5, env.Length)
	assert.Equal(t, want, env.Origin)
}

func TestPeerCloseTearsDown(t *testing.T) {
	h := newRecorder()
	r, ln := startFake(t, h)

	client := ln.Dial(remoteAddr)
	p := waitFor(t, h.connected)
	require.NoError(t, client.Close())

	d := waitFor(t, h.disconnected)
	assert.Equal(t, p, d.peer)
	assert.Equal(t, Closed, d.err.Type)
	assert.Equal(t, p, d.err.Peer)
	assert.NotEmpty(t, d.err.ConnID)

	assert.Eventually(t, func() bool { return r.ConnectionCount() == 0 }, waitLimit, 5*time.Millisecond)
	assert.False(t, r.IsConnected(p))
	assert.ErrorIs(t, r.Send([]byte("late"), p), ErrNotConnected)
	assert.NoError(t, r.registry.verify())
}

func TestResetAfterData(t *testing.T) {
	h := newRecorder()
	_, ln := startFake(t, h)

	conn := netfake.NewScriptedConn(remoteAddr, [][]byte{[]byte("ping")}, resetErr("read"))
	ln.Push(conn)

	p := waitFor(t, h.connected)
	env := waitFor(t, h.received)
	assert.Equal(t, "ping", string(env.Data))

	d := waitFor(t, h.disconnected)
	assert.Equal(t, p, d.peer)
	assert.Equal(t, Reset, d.err.Type)
	assert.ErrorIs(t, d.err, syscall.ECONNRESET)
	assert.True(t, conn.IsClosed())
}

func TestReadsDeliveredInOrderWithOwnedData(t *testing.T) {
	h := newRecorder()
	_, ln := startFake(t, h, func(c *Config) { c.BufferSize = 16 })

	chunks := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	ln.Push(netfake.NewScriptedConn(remoteAddr, chunks, nil))

	waitFor(t, h.connected)
	var got []Envelope
	for range chunks {
		got = append(got, waitFor(t, h.received))
	}
	waitFor(t, h.disconnected)

	// Earlier envelopes must survive later reads into the same buffer.
	for i, env := range got {
		assert.Equal(t, string(chunks[i]), string(env.Data))
		assert.Equal(t, len(chunks[i]), env.Length)
	}
}

func TestLargeWriteSplitsAcrossReads(t *testing.T) {
	h := newRecorder()
	_, ln := startFake(t, h, func(c *Config) { c.BufferSize = 4 })

	ln.Push(netfake.NewScriptedConn(remoteAddr, [][]byte{[]byte("abcdefghij")}, nil))
	waitFor(t, h.connected)

	var sizes []int
	var all []byte
	for len(all) < 10 {
		env := waitFor(t, h.received)
		sizes = append(sizes, env.Length)
		all = append(all, env.Data...)
	}
	assert.Equal(t, "abcdefghij", string(all))
	assert.Equal(t, []int{4, 4, 2}, sizes)
}

func TestConcurrentTeardownNotifiesOnce(t *testing.T) {
	h := newRecorder()
	r, ln := startFake(t, h)

	conn := netfake.NewScriptedConn(remoteAddr, nil, resetErr("read")).Hold()
	ln.Push(conn)
	p := waitFor(t, h.connected)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			assert.NoError(t, r.CloseConnection(p))
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		conn.Release()
	}()
	close(start)
	wg.Wait()

	waitFor(t, h.disconnected)
	assertNone(t, h.disconnected)
	assert.Eventually(t, func() bool { return r.ConnectionCount() == 0 }, waitLimit, 5*time.Millisecond)
	assert.NoError(t, r.registry.verify())
}

func TestCloseConnectionIsIdempotent(t *testing.T) {
	h := newRecorder()
	r, ln := startFake(t, h)

	ln.Push(netfake.NewScriptedConn(remoteAddr, nil, nil).Hold())
	p := waitFor(t, h.connected)

	require.NoError(t, r.CloseConnection(p))
	require.NoError(t, r.CloseConnection(p))

	d := waitFor(t, h.disconnected)
	assert.Equal(t, Closed, d.err.Type)
	assert.Nil(t, d.err.Cause)
	assertNone(t, h.disconnected)
}

// lateReadConn is a connection whose pending read completes with data only
// when released, even if the connection was closed meanwhile.
type lateReadConn struct {
	net.Conn
	gate chan struct{}
}

func (c *lateReadConn) Read(b []byte) (int, error) {
	<-c.gate
	return copy(b, "late"), io.EOF
}

func (c *lateReadConn) Write(b []byte) (int, error) { return len(b), nil }
func (c *lateReadConn) Close() error { return nil }
func (c *lateReadConn) RemoteAddr() net.Addr { return netfake.TCPAddr(remoteAddr) }

func TestReadAfterCloseIsNotDelivered(t *testing.T) {
	h := newRecorder()
	r, ln := startFake(t, h)

	conn := &lateReadConn{gate: make(chan struct{})}
	ln.Push(conn)
	p := waitFor(t, h.connected)

	require.NoError(t, r.CloseConnection(p))
	waitFor(t, h.disconnected)

	close(conn.gate)
	assertNone(t, h.received)
	assertNone(t, h.disconnected)
}

func TestCloseUnknownPeerIsNoop(t *testing.T) {
	h := newRecorder()
	r, _ := startFake(t, h)

	assert.NoError(t, r.CloseConnection(peer.MustParse("198.51.100.1:1")))
	assertNone(t, h.disconnected)
}

func TestSendToUnknownPeer(t *testing.T) {
	r, _ := startFake(t, newRecorder())
	err := r.Send([]byte("x"), peer.MustParse("198.51.100.1:1"))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSendEmptyPayload(t *testing.T) {
	h := newRecorder()
	r, ln := startFake(t, h)

	conn := netfake.NewScriptedConn(remoteAddr, nil, nil).Hold()
	ln.Push(conn)
	p := waitFor(t, h.connected)

	assert.NoError(t, r.Send(nil, p))
	assert.Empty(t, conn.Written())
}

func TestSendWritesToPeer(t *testing.T) {
	h := newRecorder()
	r, ln := startFake(t, h)

	conn := netfake.NewScriptedConn(remoteAddr, nil, nil).Hold()
	ln.Push(conn)
	p := waitFor(t, h.connected)

	require.NoError(t, r.Send([]byte("one "), p))
	require.NoError(t, r.Send([]byte("two"), p))
	assert.Equal(t, "one two", string(conn.Written()))
}

func TestSendFailureTearsDown(t *testing.T) {
	h := newRecorder()
	r, ln := startFake(t, h)

	conn := netfake.NewScriptedConn(remoteAddr, nil, nil).Hold()
	conn.FailWrites(&net.OpError{Op: "write", Net: "tcp", Err: os.NewSyscallError("write", syscall.EPIPE)})
	ln.Push(conn)
	p := waitFor(t, h.connected)

	err := r.Send([]byte("data"), p)
	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, Reset, cerr.Type)
	assert.Equal(t, p, cerr.Peer)

	d := waitFor(t, h.disconnected)
	assert.Equal(t, Reset, d.err.Type)
	assertNone(t, h.disconnected)

	assert.ErrorIs(t, r.Send([]byte("data"), p), ErrNotConnected)
}

func TestResponseChannelAfterTeardown(t *testing.T) {
	h := newRecorder()
	channels := make(chan *ResponseChannel, 1)
	h.onReceive = func(_ Envelope, ch *ResponseChannel) { channels <- ch }
	_, ln := startFake(t, h)

	conn := netfake.NewScriptedConn(remoteAddr, [][]byte{[]byte("x")}, nil).Hold()
	ln.Push(conn)
	p := waitFor(t, h.connected)
	ch := waitFor(t, channels)

	assert.Equal(t, p, ch.Peer())
	assert.NotEmpty(t, ch.ConnID())
	assert.Equal(t, remoteAddr, ch.RemoteAddr().String())
	assert.NotNil(t, ch.Loop())
	assert.True(t, ch.IsOpen())

	require.NoError(t, ch.Close())
	waitFor(t, h.disconnected)

	assert.False(t, ch.IsOpen())
	err := ch.Send([]byte("late"))
	assert.ErrorIs(t, err, ErrChannelClosed)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, ch.Close())
}

func TestDuplicatePeerRejected(t *testing.T) {
	h := newRecorder()
	r, ln := startFake(t, h)

	first := netfake.NewScriptedConn(remoteAddr, nil, nil).Hold()
	second := netfake.NewScriptedConn(remoteAddr, nil, nil).Hold()
	ln.Push(first)
	waitFor(t, h.connected)
	ln.Push(second)

	assert.Eventually(t, second.IsClosed, waitLimit, 5*time.Millisecond)
	assert.False(t, first.IsClosed())
	assert.Equal(t, 1, r.ConnectionCount())
	assertNone(t, h.connected)
}

func TestSamePeerCanReconnect(t *testing.T) {
	h := newRecorder()
	r, ln := startFake(t, h)

	ln.Push(netfake.NewScriptedConn(remoteAddr, nil, nil))
	waitFor(t, h.connected)
	waitFor(t, h.disconnected)
	require.Eventually(t, func() bool { return r.ConnectionCount() == 0 }, waitLimit, 5*time.Millisecond)

	conn := netfake.NewScriptedConn(remoteAddr, nil, nil).Hold()
	ln.Push(conn)
	p := waitFor(t, h.connected)
	assert.True(t, r.IsConnected(p))
}

func TestLifecycle(t *testing.T) {
	ln := netfake.NewListener(listenAddr)
	config := DefaultConfig()
	config.Listen = ln.Listen()
	r, err := New(config, newRecorder())
	require.NoError(t, err)

	assert.Equal(t, StateCreated, r.State())
	assert.False(t, r.IsActive())
	assert.Nil(t, r.Addr())
	assert.ErrorIs(t, r.Wait(), ErrNotRunning)
	assert.NoError(t, r.Stop())

	require.NoError(t, r.Start(context.Background()))
	assert.Equal(t, StateStarted, r.State())
	assert.True(t, r.IsActive())
	assert.Equal(t, listenAddr, r.Addr().String())
	assert.ErrorIs(t, r.Start(context.Background()), ErrAlreadyStarted)

	require.NoError(t, r.Stop())
	assert.Equal(t, StateStopped, r.State())
	assert.False(t, r.IsActive())
	assert.True(t, ln.Closed())
	assert.NoError(t, r.Stop())
	assert.NoError(t, r.Wait())
	assert.ErrorIs(t, r.Start(context.Background()), ErrAlreadyStarted)

	require.NoError(t, r.Dispose())
	assert.Equal(t, StateDisposed, r.State())
	assert.NoError(t, r.Dispose())
	assert.ErrorIs(t, r.Start(context.Background()), ErrDisposed)
	assert.ErrorIs(t, r.Send([]byte("x"), peer.MustParse(remoteAddr)), ErrDisposed)
}

func TestDisposeWithoutStart(t *testing.T) {
	r, err := New(DefaultConfig(), newRecorder())
	require.NoError(t, err)

	require.NoError(t, r.Dispose())
	assert.Equal(t, StateDisposed, r.State())
	select {
	case <-r.Done():
	default:
		t.Fatal("Done not closed after Dispose")
	}
}

func TestStopClosesConnections(t *testing.T) {
	h := newRecorder()
	r, ln := startFake(t, h)

	a := netfake.NewScriptedConn("203.0.113.5:4400", nil, nil).Hold()
	b := netfake.NewScriptedConn("203.0.113.6:4400", nil, nil).Hold()
	ln.Push(a)
	ln.Push(b)
	waitFor(t, h.connected)
	waitFor(t, h.connected)

	require.NoError(t, r.Stop())

	for range 2 {
		d := waitFor(t, h.disconnected)
		assert.Equal(t, Closed, d.err.Type)
		assert.Nil(t, d.err.Cause)
	}
	assert.True(t, a.IsClosed())
	assert.True(t, b.IsClosed())
	assert.Equal(t, 0, r.ConnectionCount())
}

func TestDisposeWaitsForStopInProgress(t *testing.T) {
	connected := make(chan peer.Identity, 1)
	entered := make(chan struct{})
	release := make(chan struct{})
	h := HandlerFuncs{
		OnConnect: func(p peer.Identity) { connected <- p },
		OnDisconnect: func(peer.Identity, *ConnectionError) {
			close(entered)
			<-release
		},
	}
	r, ln := startFake(t, h)

	ln.Push(netfake.NewScriptedConn(remoteAddr, nil, nil).Hold())
	waitFor(t, connected)

	stopErr := make(chan error, 1)
	go func() { stopErr <- r.Stop() }()
	<-entered

	disposeErr := make(chan error, 1)
	go func() { disposeErr <- r.Dispose() }()

	// Teardown is still blocked in the handler.
	assertNone(t, disposeErr)
	select {
	case <-r.Done():
		t.Fatal("Done closed while Stop was still tearing down")
	default:
	}
	assert.Equal(t, StateStopped, r.State())

	close(release)
	require.NoError(t, waitFor(t, stopErr))
	require.NoError(t, waitFor(t, disposeErr))

	assert.Equal(t, StateDisposed, r.State())
	assert.Equal(t, 0, r.ConnectionCount())
	select {
	case <-r.Done():
	default:
		t.Fatal("Done not closed after Dispose")
	}
}

func TestConcurrentStopWaits(t *testing.T) {
	connected := make(chan peer.Identity, 1)
	entered := make(chan struct{})
	release := make(chan struct{})
	h := HandlerFuncs{
		OnConnect: func(p peer.Identity) { connected <- p },
		OnDisconnect: func(peer.Identity, *ConnectionError) {
			close(entered)
			<-release
		},
	}
	r, ln := startFake(t, h)

	ln.Push(netfake.NewScriptedConn(remoteAddr, nil, nil).Hold())
	waitFor(t, connected)

	first := make(chan error, 1)
	go func() { first <- r.Stop() }()
	<-entered

	second := make(chan error, 1)
	go func() { second <- r.Stop() }()
	assertNone(t, second)

	close(release)
	require.NoError(t, waitFor(t, first))
	require.NoError(t, waitFor(t, second))
	assert.Equal(t, 0, r.ConnectionCount())
}

func TestStartListenFailure(t *testing.T) {
	config := DefaultConfig()
	config.Listen = func(context.Context, string, string) (net.Listener, error) {
		return nil, errors.New("address in use")
	}
	r, err := New(config, newRecorder())
	require.NoError(t, err)

	err = r.Start(context.Background())
	assert.ErrorContains(t, err, "address in use")
	assert.Equal(t, StateCreated, r.State())
}

func TestContextCancelStops(t *testing.T) {
	ln := netfake.NewListener(listenAddr)
	config := DefaultConfig()
	config.Listen = ln.Listen()
	r, err := New(config, newRecorder())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))
	cancel()

	select {
	case <-r.Done():
	case <-time.After(waitLimit):
		t.Fatal("reactor did not stop after cancel")
	}
	assert.Equal(t, StateStopped, r.State())
	assert.NoError(t, r.Wait())
}

type temporaryError struct{}

func (temporaryError) Error() string   { return "resource temporarily unavailable" }
func (temporaryError) Temporary() bool { return true }

func TestTemporaryAcceptErrorRetries(t *testing.T) {
	h := newRecorder()
	r, ln := startFake(t, h, func(c *Config) {
		c.AcceptBackoff = connection.BackoffConfig{Initial: time.Millisecond, Max: time.Millisecond}
	})

	ln.Fail(temporaryError{})
	ln.Fail(&net.OpError{Op: "accept", Net: "tcp", Err: os.NewSyscallError("accept", syscall.EMFILE)})

	client := ln.Dial(remoteAddr)
	defer client.Close()

	waitFor(t, h.connected)
	assert.True(t, r.IsActive())
	assert.Equal(t, StateStarted, r.State())
}

func TestFatalAcceptErrorStops(t *testing.T) {
	h := newRecorder()
	r, ln := startFake(t, h)

	ln.Push(netfake.NewScriptedConn(remoteAddr, nil, nil).Hold())
	waitFor(t, h.connected)

	boom := errors.New("listener broken")
	ln.Fail(boom)

	assert.ErrorIs(t, r.Wait(), boom)
	assert.Equal(t, StateStopped, r.State())
	assert.False(t, r.IsActive())
	assert.True(t, ln.Closed())

	d := waitFor(t, h.disconnected)
	assert.Equal(t, Closed, d.err.Type)
}

func TestSerialLoopOrdering(t *testing.T) {
	loop := eventloop.NewSerial(nil)
	defer loop.Close()

	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}
	finished := make(chan struct{})
	h := HandlerFuncs{
		OnConnect:    func(peer.Identity) { record("connected") },
		OnReceive:    func(env Envelope, _ *ResponseChannel) { record(string(env.Data)) },
		OnDisconnect: func(peer.Identity, *ConnectionError) { record("disconnected"); close(finished) },
	}
	_, ln := startFake(t, h, func(c *Config) { c.Loop = loop })

	ln.Push(netfake.NewScriptedConn(remoteAddr, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, nil))

	select {
	case <-finished:
	case <-time.After(waitLimit):
		t.Fatal("timed out")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"connected", "a", "b", "c", "disconnected"}, order)
}

func TestProtocolEvents(t *testing.T) {
	h := newRecorder()
	events := &captureLogger{}
	_, ln := startFake(t, h, func(c *Config) { c.ProtocolLogger = events })

	ln.Push(netfake.NewScriptedConn(remoteAddr, [][]byte{[]byte("hi")}, resetErr("read")))
	waitFor(t, h.connected)
	waitFor(t, h.disconnected)

	var sawConnected, sawFrame, sawError, sawDisconnected bool
	assert.Eventually(t, func() bool {
		for _, ev := range events.Events() {
			switch {
			case ev.StateChange != nil && ev.StateChange.NewState == "CONNECTED":
				sawConnected = ev.RemoteAddr == remoteAddr && ev.ConnectionID != ""
			case ev.Frame != nil:
				sawFrame = ev.Direction == log.DirectionIn && string(ev.Frame.Data) == "hi"
			case ev.Error != nil && ev.Error.Kind == "RESET":
				sawError = true
			case ev.StateChange != nil && ev.StateChange.NewState == "DISCONNECTED":
				sawDisconnected = ev.StateChange.Reason == "RESET"
			}
		}
		return sawConnected && sawFrame && sawError && sawDisconnected
	}, waitLimit, 5*time.Millisecond)
}

func TestRealTCPEcho(t *testing.T) {
	h := newRecorder()
	h.onReceive = func(env Envelope, ch *ResponseChannel) {
		_ = ch.Send(env.Data)
	}
	config := DefaultConfig()
	config.Address = "127.0.0.1"
	r, err := New(config, h)
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	defer r.Dispose()

	client, err := net.Dial("tcp", r.Addr().String())
	require.NoError(t, err)

	p := waitFor(t, h.connected)
	assert.Equal(t, client.LocalAddr().String(), p.String())

	_, err = client.Write([]byte("over tcp"))
	require.NoError(t, err)
	reply := make([]byte, len("over tcp"))
	require.NoError(t, client.SetReadDeadline(time.Now().Add(waitLimit)))
	_, err = io.ReadFull(client, reply)
	require.NoError(t, err)
	assert.Equal(t, "over tcp", string(reply))

	require.NoError(t, client.Close())
	d := waitFor(t, h.disconnected)
	assert.Equal(t, p, d.peer)
	assert.NotEqual(t, IOError, d.err.Type)
}

func TestHandlerFuncsNilFields(t *testing.T) {
	var h HandlerFuncs
	assert.NotPanics(t, func() {
		h.Connected(peer.Identity{})
		h.Disconnected(peer.Identity{}, nil)
		h.Received(Envelope{}, nil)
	})
}

func TestManyConnectionsConcurrentSends(t *testing.T) {
	h := newRecorder()
	r, ln := startFake(t, h)

	const n = 20
	conns := make([]*netfake.ScriptedConn, n)
	for i := range conns {
		addr := net.JoinHostPort("203.0.113.5", strconv.Itoa(5000+i))
		conns[i] = netfake.NewScriptedConn(addr, nil, nil).Hold()
		ln.Push(conns[i])
	}
	for range conns {
		waitFor(t, h.connected)
	}

	var sent atomic.Int32
	var wg sync.WaitGroup
	for _, p := range r.Peers() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				if r.Send([]byte("x"), p) == nil {
					sent.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(n*10), sent.Load())
	for _, c := range conns {
		assert.Len(t, c.Written(), 10)
	}
	assert.NoError(t, r.registry.verify())
}
