// Package connection provides retry pacing for the reactor's listener.
//
// When accepting a connection fails with a temporary error (the process ran
// out of file descriptors, or the peer aborted during the handshake), the
// accept loop waits before trying again instead of spinning:
//
//  1. Initial delay: 5 milliseconds
//  2. Exponential increase: 10ms, 20ms, 40ms, ...
//  3. Maximum delay: 1 second
//  4. Reset to the initial delay after the next successful accept
//
// # Jitter
//
// To keep several listeners in one process from retrying in lockstep:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
package connection
