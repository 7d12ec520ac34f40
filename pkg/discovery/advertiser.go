package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"
)

// Advertiser publishes one DNS-SD service instance.
type Advertiser interface {
	// Advertise starts advertising info, replacing any earlier instance.
	Advertise(ctx context.Context, info *ServiceInfo) error

	// Update replaces the TXT records of the advertised instance.
	Update(text TXTRecordMap) error

	// Stop withdraws the advertisement. Stopping twice is a no-op.
	Stop() error
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		Interface: "",
		TTL:       DefaultTTL,
	}
}

// Endpoint is a listening service the Announcer can advertise.
// *reactor.Reactor implements it.
type Endpoint interface {
	Addr() net.Addr
	ConnectionCount() int
}

// Announcer advertises an Endpoint and keeps its TXT records current.
type Announcer struct {
	mu sync.Mutex

	advertiser Advertiser
	endpoint   Endpoint
	instance   string
	hostID     string
	logger     *slog.Logger

	state       State
	connections int

	// Callback for state changes
	onStateChange func(old, new State)
}

// NewAnnouncer creates an announcer for endpoint under the given instance
// name. hostID is published in the TXT records when non-empty.
func NewAnnouncer(advertiser Advertiser, endpoint Endpoint, instance, hostID string) *Announcer {
	return &Announcer{
		advertiser: advertiser,
		endpoint:   endpoint,
		instance:   instance,
		hostID:     hostID,
		logger:     slog.Default().With("component", "discovery"),
		state:      StateIdle,
	}
}

// SetLogger replaces the announcer's logger.
func (a *Announcer) SetLogger(logger *slog.Logger) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger = logger
}

// OnStateChange sets a callback for state changes.
func (a *Announcer) OnStateChange(fn func(old, new State)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStateChange = fn
}

// State returns the current state.
func (a *Announcer) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Start advertises the endpoint. The endpoint must be listening.
func (a *Announcer) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	port, err := endpointPort(a.endpoint)
	if err != nil {
		return err
	}

	count := a.endpoint.ConnectionCount()
	info := &ServiceInfo{
		Instance: a.instance,
		Port:     port,
		Text:     EncodeServiceTXT(a.hostID, count),
	}
	if err := info.Validate(); err != nil {
		return err
	}
	if err := a.advertiser.Advertise(ctx, info); err != nil {
		return err
	}

	a.connections = count
	a.logger.Info("advertising endpoint", "instance", a.instance, "port", port)
	a.setState(StateAdvertising)
	return nil
}

// Refresh republishes the TXT records if the connection count changed.
func (a *Announcer) Refresh() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateAdvertising {
		return ErrNotAdvertising
	}
	count := a.endpoint.ConnectionCount()
	if count == a.connections {
		return nil
	}
	if err := a.advertiser.Update(EncodeServiceTXT(a.hostID, count)); err != nil {
		return err
	}
	a.connections = count
	return nil
}

// Stop withdraws the advertisement.
func (a *Announcer) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateIdle {
		return nil
	}
	if err := a.advertiser.Stop(); err != nil {
		return err
	}
	a.setState(StateIdle)
	return nil
}

// Run starts advertising, refreshes every interval until ctx is done, then
// stops.
func (a *Announcer) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if err := a.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return a.Stop()
		case <-ticker.C:
			if err := a.Refresh(); err != nil {
				a.logger.Warn("refresh failed", "error", err)
			}
		}
	}
}

// setState must be called with mu held.
func (a *Announcer) setState(state State) {
	old := a.state
	a.state = state
	if a.onStateChange != nil && old != state {
		a.onStateChange(old, state)
	}
}

func endpointPort(ep Endpoint) (int, error) {
	addr := ep.Addr()
	if addr == nil {
		return 0, ErrNoEndpoint
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port, nil
	}
	ap, err := netip.ParseAddrPort(addr.String())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoEndpoint, err)
	}
	return int(ap.Port()), nil
}
