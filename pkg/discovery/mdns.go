package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// MDNSAdvertiser implements the Advertiser interface using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{config: config}
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *MDNSAdvertiser) getInterfaces() []net.Interface {
	return selectInterfaces(a.config.Interface)
}

// Advertise registers the service instance.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info *ServiceInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Stop existing if any
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		info.Instance,
		ServiceType,
		Domain,
		info.Port,
		TXTRecordsToStrings(info.Text),
		a.getInterfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	a.server = server
	return nil
}

// Update replaces the TXT records of the advertised instance.
func (a *MDNSAdvertiser) Update(text TXTRecordMap) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotAdvertising
	}
	a.server.SetText(TXTRecordsToStrings(text))
	return nil
}

// Stop withdraws the advertisement.
func (a *MDNSAdvertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	return nil
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// Logger receives browse failures. Nil means slog.Default().
	Logger *slog.Logger
}

// browseFunc runs one DNS-SD browse, delivering entries until ctx is done.
type browseFunc func(ctx context.Context, entries, removed chan *zeroconf.ServiceEntry) error

// MDNSBrowser finds advertised reactors using zeroconf.
type MDNSBrowser struct {
	logger *slog.Logger
	browse browseFunc
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var opts []zeroconf.ClientOption
	if ifaces := selectInterfaces(config.Interface); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}

	return &MDNSBrowser{
		logger: logger.With("component", "discovery"),
		browse: func(ctx context.Context, entries, removed chan *zeroconf.ServiceEntry) error {
			return zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
		},
	}
}

// Browse reports reactors until ctx is done or browsing fails. Services are
// aggregated by instance name; a service is reported again when its
// addresses or TXT records change. The returned channel is closed when
// browsing ends.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *Service, error) {
	ctx, cancel := context.WithCancel(ctx)

	out := make(chan *Service)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)
		defer cancel()

		agg := newAggregator()
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc, changed := agg.add(entry)
				if !changed {
					continue
				}
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					removed = nil
					continue
				}
				agg.remove(entry)

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		if err := b.browse(ctx, entries, removed); err != nil && ctx.Err() == nil {
			b.logger.Warn("mDNS browse failed", "service", ServiceType, "error", err)
			cancel()
		}
	}()

	return out, nil
}

// Lookup browses for timeout and returns every reactor seen, sorted by
// instance name.
func (b *MDNSBrowser) Lookup(ctx context.Context, timeout time.Duration) ([]*Service, error) {
	if timeout <= 0 {
		timeout = BrowseTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	found, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]*Service)
	for svc := range found {
		latest[svc.Instance] = svc
	}

	services := make([]*Service, 0, len(latest))
	for _, svc := range latest {
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool {
		return services[i].Instance < services[j].Instance
	})
	return services, nil
}

// aggregator merges zeroconf entries by instance name.
type aggregator struct {
	services map[string]*Service
}

func newAggregator() *aggregator {
	return &aggregator{services: make(map[string]*Service)}
}

// add merges entry and returns a copy of the service if anything changed.
func (g *aggregator) add(entry *zeroconf.ServiceEntry) (*Service, bool) {
	svc := entryToService(entry)
	if svc == nil {
		return nil, false
	}

	existing, found := g.services[svc.Instance]
	if !found {
		g.services[svc.Instance] = svc
		return cloneService(svc), true
	}

	before := len(existing.Addresses)
	existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
	changed := len(existing.Addresses) != before ||
		existing.Connections != svc.Connections ||
		existing.Port != svc.Port
	existing.Port = svc.Port
	existing.Connections = svc.Connections
	existing.HostID = svc.HostID
	existing.Version = svc.Version
	if !changed {
		return nil, false
	}
	return cloneService(existing), true
}

func (g *aggregator) remove(entry *zeroconf.ServiceEntry) {
	existing, found := g.services[entry.Instance]
	if !found {
		return
	}
	existing.Addresses = removeAddresses(existing.Addresses, entry)
	// If no addresses remain, remove the service
	if len(existing.Addresses) == 0 {
		delete(g.services, entry.Instance)
	}
}

// entryToService converts a zeroconf entry to a Service.
func entryToService(entry *zeroconf.ServiceEntry) *Service {
	svc := &Service{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Port:     entry.Port,
	}
	if err := DecodeServiceTXT(StringsToTXTRecords(entry.Text), svc); err != nil {
		return nil
	}

	// Collect addresses
	svc.Addresses = make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		svc.Addresses = append(svc.Addresses, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		svc.Addresses = append(svc.Addresses, ip.String())
	}
	return svc
}

func cloneService(s *Service) *Service {
	c := *s
	c.Addresses = append([]string(nil), s.Addresses...)
	return &c
}

// mergeAddresses adds addresses from new that are not in existing.
func mergeAddresses(existing, new []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range new {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes addresses from a zeroconf entry from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	// Build set of addresses to remove
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	// Filter out removed addresses
	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

func selectInterfaces(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Ensure MDNSAdvertiser implements Advertiser interface.
var _ Advertiser = (*MDNSAdvertiser)(nil)
