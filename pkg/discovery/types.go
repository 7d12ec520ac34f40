package discovery

import (
	"errors"
	"time"
)

// DNS-SD parameters.
const (
	// ServiceType is the DNS-SD service type for reactor endpoints.
	ServiceType = "_reactor._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63

	// DefaultTTL is the DNS record TTL.
	DefaultTTL = 120 * time.Second

	// DefaultRefreshInterval is how often the Announcer refreshes TXT records.
	DefaultRefreshInterval = 30 * time.Second

	// BrowseTimeout bounds one-shot lookups.
	BrowseTimeout = 10 * time.Second
)

// TXT record keys.
const (
	// TXTKeyVersion is the announcement format version.
	TXTKeyVersion = "v"

	// TXTKeyHost identifies the host running the reactor.
	TXTKeyHost = "host"

	// TXTKeyConnections is the number of live connections.
	TXTKeyConnections = "conns"
)

// TXTVersion is the current announcement format version.
const TXTVersion = "1"

// Discovery errors.
var (
	ErrInstanceNameTooLong = errors.New("instance name too long")
	ErrInvalidPort         = errors.New("invalid port")
	ErrNotAdvertising      = errors.New("not advertising")
	ErrNoEndpoint          = errors.New("endpoint has no listen address")
)

// ServiceInfo describes an instance to advertise.
type ServiceInfo struct {
	// Instance is the DNS-SD instance name.
	Instance string

	// Port the reactor listens on.
	Port int

	// Text holds the TXT records.
	Text TXTRecordMap
}

// Validate checks the fields required for registration.
func (i *ServiceInfo) Validate() error {
	if err := ValidateInstanceName(i.Instance); err != nil {
		return err
	}
	if i.Port <= 0 || i.Port > 0xFFFF {
		return ErrInvalidPort
	}
	return nil
}

// Service is a reactor found on the network.
type Service struct {
	Instance    string
	Host        string
	Port        int
	Addresses   []string
	Version     string
	HostID      string
	Connections int
}

// State is the Announcer state.
type State uint8

const (
	// StateIdle means nothing is advertised.
	StateIdle State = iota

	// StateAdvertising means the endpoint is announced.
	StateAdvertising
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAdvertising:
		return "ADVERTISING"
	default:
		return "UNKNOWN"
	}
}
