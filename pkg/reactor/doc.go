// Package reactor implements a TCP connection reactor.
//
// A Reactor owns a listening socket, accepts inbound connections, reads each
// connection's byte stream on its own goroutine, and lets the layer above send
// bytes to any connected peer by its peer.Identity.
//
// # Connection Lifecycle
//
//	accept ──► registered ──► Connected(peer)
//	              │
//	              ├── read N bytes ──► Received(envelope, channel)   (repeats)
//	              │
//	              └── read/write failure, CloseConnection, Stop
//	                        │
//	                        ▼
//	                   teardown ──► Disconnected(peer, *ConnectionError)
//
// Teardown runs at most once per connection no matter how many paths
// trigger it concurrently. It closes the socket, publishes Disconnected,
// and then unconditionally removes the connection from the registry.
//
// # Notifications
//
// Handler callbacks run on the configured eventloop.Loop. With
// eventloop.Inline, Received for one connection is called from that
// connection's read goroutine, so callbacks for different connections run
// concurrently. With eventloop.Serial every callback runs on one goroutine.
// Either way, envelopes from one connection are delivered in the order the
// bytes were read.
//
// Handlers must not call Stop or Dispose from inside a callback: Stop waits
// for every read goroutine to finish.
//
// # Errors
//
// A read or write failure is classified (see Classify) and reported through
// Disconnected as a *ConnectionError. Sending to a peer that is not connected
// fails with ErrNotConnected.
package reactor
