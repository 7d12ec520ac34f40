package reactor

import (
	"time"

	"github.com/mash-protocol/reactor-go/pkg/log"
)

// localAddr returns the listen address for protocol events.
func (r *Reactor) localAddr() string {
	if addr, ok := r.listenAddr.Load().(string); ok {
		return addr
	}
	return ""
}

func (r *Reactor) event(e *entry, layer log.Layer, category log.Category) log.Event {
	ev := log.Event{
		Timestamp: time.Now(),
		Layer:     layer,
		Category:  category,
		LocalAddr: r.localAddr(),
	}
	if e != nil {
		ev.ConnectionID = e.id
		ev.RemoteAddr = e.peer.String()
	}
	return ev
}

func (r *Reactor) logFrame(e *entry, direction log.Direction, data []byte) {
	ev := r.event(e, log.LayerTransport, log.CategoryData)
	ev.Direction = direction
	ev.Frame = log.NewFrameEvent(data)
	r.events.Log(ev)
}

func (r *Reactor) logState(e *entry, entity log.StateEntity, oldState, newState, reason string) {
	ev := r.event(e, log.LayerReactor, log.CategoryState)
	ev.StateChange = &log.StateChangeEvent{
		Entity:   entity,
		OldState: oldState,
		NewState: newState,
		Reason:   reason,
	}
	r.events.Log(ev)
}

func (r *Reactor) logError(e *entry, layer log.Layer, err error, kind, context string) {
	ev := r.event(e, layer, log.CategoryError)
	ev.Error = &log.ErrorEventData{
		Layer:   layer,
		Message: err.Error(),
		Kind:    kind,
		Context: context,
	}
	r.events.Log(ev)
}
