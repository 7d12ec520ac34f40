package peer

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// ErrInvalidAddr is returned when an address cannot be turned into an Identity.
var ErrInvalidAddr = errors.New("invalid peer address")

// Identity identifies a remote endpoint by IP address and port.
// The zero value is not a valid identity; see IsValid.
type Identity struct {
	ap netip.AddrPort
}

// FromAddrPort builds an Identity from an address/port pair.
func FromAddrPort(ap netip.AddrPort) Identity {
	return Identity{ap: netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())}
}

// FromAddr builds an Identity from the remote address of a connection.
// Only TCP and UDP addresses, or addresses whose String form parses as
// ip:port, are accepted.
func FromAddr(addr net.Addr) (Identity, error) {
	switch a := addr.(type) {
	case nil:
		return Identity{}, fmt.Errorf("%w: nil address", ErrInvalidAddr)
	case *net.TCPAddr:
		return fromIP(a.IP, a.Zone, a.Port)
	case *net.UDPAddr:
		return fromIP(a.IP, a.Zone, a.Port)
	default:
		return Parse(addr.String())
	}
}

// fromIP keeps the IPv6 zone, so link-local peers on different interfaces
// stay distinct.
func fromIP(ip net.IP, zone string, port int) (Identity, error) {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidAddr, ip)
	}
	addr = addr.WithZone(zone)
	if port < 0 || port > 0xFFFF {
		return Identity{}, fmt.Errorf("%w: port %d out of range", ErrInvalidAddr, port)
	}
	return FromAddrPort(netip.AddrPortFrom(addr, uint16(port))), nil
}

// Parse parses "ip:port", "[ipv6]:port" or "[ipv6%zone]:port".
func Parse(s string) (Identity, error) {
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidAddr, err)
	}
	return FromAddrPort(ap), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level values.
func MustParse(s string) Identity {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Addr returns the IP address of the peer.
func (id Identity) Addr() netip.Addr { return id.ap.Addr() }

// Port returns the port of the peer.
func (id Identity) Port() uint16 { return id.ap.Port() }

// AddrPort returns the address/port pair.
func (id Identity) AddrPort() netip.AddrPort { return id.ap }

// IsValid reports whether the identity holds a usable address.
func (id Identity) IsValid() bool { return id.ap.IsValid() }

// String returns "ip:port", or "[ip]:port" for IPv6.
func (id Identity) String() string {
	if !id.ap.IsValid() {
		return "invalid"
	}
	return id.ap.String()
}

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	if !id.ap.IsValid() {
		return []byte{}, nil
	}
	return id.ap.MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = Identity{}
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
