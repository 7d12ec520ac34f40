package reactor

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mash-protocol/reactor-go/pkg/peer"
)

// entry is one registered connection.
type entry struct {
	id      string
	peer    peer.Identity
	conn    net.Conn
	channel *ResponseChannel

	// closing is set by the first teardown to claim the entry.
	closing  atomic.Bool
	closeErr error

	// disconnected is set on the loop just before Disconnected runs. Received
	// tasks that reach the loop later are dropped.
	disconnected atomic.Bool

	// writeMu serializes writes so concurrent sends never interleave.
	writeMu sync.Mutex
}

func newEntry(conn net.Conn, p peer.Identity) *entry {
	return &entry{
		id:   uuid.New().String(),
		peer: p,
		conn: conn,
	}
}

// registry indexes live connections by connection ID and by peer.
// Both indexes change together under mu.
type registry struct {
	mu     sync.RWMutex
	byID   map[string]*entry
	byPeer map[peer.Identity]*entry
	sealed bool
}

func newRegistry() *registry {
	return &registry{
		byID:   make(map[string]*entry),
		byPeer: make(map[peer.Identity]*entry),
	}
}

// add registers e. It fails if the registry is sealed or the peer already
// has a connection.
func (r *registry) add(e *entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrNotRunning
	}
	if _, exists := r.byPeer[e.peer]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePeer, e.peer)
	}
	r.byID[e.id] = e
	r.byPeer[e.peer] = e
	return nil
}

// remove drops e from both indexes. Entries that replaced e are untouched.
func (r *registry) remove(e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byID[e.id] == e {
		delete(r.byID, e.id)
	}
	if r.byPeer[e.peer] == e {
		delete(r.byPeer, e.peer)
	}
}

func (r *registry) lookup(p peer.Identity) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byPeer[p]
	return e, ok
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPeer)
}

func (r *registry) snapshot() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect()
}

// seal refuses further registrations and returns the current entries.
func (r *registry) seal() []*entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
	return r.collect()
}

func (r *registry) collect() []*entry {
	entries := make([]*entry, 0, len(r.byPeer))
	for _, e := range r.byPeer {
		entries = append(entries, e)
	}
	return entries
}

// verify checks that both indexes describe the same set of connections.
func (r *registry) verify() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.byID) != len(r.byPeer) {
		return fmt.Errorf("index size mismatch: %d by id, %d by peer", len(r.byID), len(r.byPeer))
	}
	for p, e := range r.byPeer {
		if e.peer != p {
			return fmt.Errorf("peer index for %s points at %s", p, e.peer)
		}
		if r.byID[e.id] != e {
			return fmt.Errorf("connection %s for %s missing from id index", e.id, p)
		}
	}
	return nil
}
