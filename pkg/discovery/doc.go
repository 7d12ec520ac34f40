// Package discovery announces reactor endpoints over mDNS/DNS-SD.
//
// A reactor host advertises one _reactor._tcp instance on the port its
// listener is bound to. TXT records carry the protocol version, a host
// identifier, and the number of live connections, which the Announcer keeps
// current while the reactor runs.
//
// Other hosts find advertised reactors with MDNSBrowser. Results are
// aggregated by instance name: addresses reported on several interfaces are
// merged into one Service.
package discovery
