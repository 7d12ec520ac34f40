package reactor

import (
	"github.com/mash-protocol/reactor-go/pkg/log"
)

// pump reads from one connection until it fails, handing each read to the
// handler as an Envelope.
func (r *Reactor) pump(e *entry) {
	defer r.wg.Done()

	buf := r.buffers.get()
	defer r.buffers.put(buf)

	for {
		n, err := e.conn.Read(*buf)
		if n > 0 && !e.closing.Load() {
			// The buffer is reused by the next read.
			data := make([]byte, n)
			copy(data, (*buf)[:n])

			r.logFrame(e, log.DirectionIn, data)
			env := Envelope{Data: data, Length: n, Origin: e.peer}
			ch := e.channel
			r.loop.Execute(func() {
				if e.disconnected.Load() {
					return
				}
				r.handler.Received(env, ch)
			})
		}
		if err != nil {
			if e.closing.Load() {
				return
			}
			r.teardown(e, err)
			return
		}
	}
}
