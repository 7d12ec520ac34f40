package reactor

// State is the lifecycle state of a Reactor.
type State int32

const (
	// StateCreated is the state after New.
	StateCreated State = iota

	// StateStarted means the listener is bound and accepting.
	StateStarted

	// StateStopped means the listener is closed and every connection has
	// been torn down.
	StateStopped

	// StateDisposed is terminal.
	StateDisposed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateStarted:
		return "STARTED"
	case StateStopped:
		return "STOPPED"
	case StateDisposed:
		return "DISPOSED"
	default:
		return "UNKNOWN"
	}
}
