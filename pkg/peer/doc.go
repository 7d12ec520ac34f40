// Package peer defines the identity of a remote endpoint.
//
// An Identity is an immutable address/port pair. It is comparable, so it can
// be used directly as a map key and compared with ==. The reactor uses it as
// the external key for every registry lookup.
//
// IPv4-mapped IPv6 addresses are unmapped on construction, so a peer that
// connects over a dual-stack listener yields the same Identity as one that
// connects over an IPv4 listener.
package peer
