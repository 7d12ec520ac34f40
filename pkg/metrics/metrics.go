// Package metrics exports reactor activity as Prometheus metrics.
//
// A Collector observes a reactor from two sides: it wraps the reactor's
// Handler to count connections and received bytes, and it implements
// log.Logger so it can sit in the protocol log chain and count sent bytes
// and errors.
package metrics

import (
	"go.uber.org/multierr"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mash-protocol/reactor-go/pkg/log"
	"github.com/mash-protocol/reactor-go/pkg/peer"
	"github.com/mash-protocol/reactor-go/pkg/reactor"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "reactor"

// Collector holds the reactor metrics.
type Collector struct {
	connections   prometheus.Counter
	active        prometheus.Gauge
	disconnects   *prometheus.CounterVec
	receivedBytes prometheus.Counter
	receivedReads prometheus.Counter
	sentBytes     prometheus.Counter
	errors        *prometheus.CounterVec
}

// NewCollector creates unregistered metrics under namespace
// (DefaultNamespace if empty).
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Collector{
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "accepted_total",
			Help:      "Connections accepted and registered.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "active",
			Help:      "Connections currently registered.",
		}),
		disconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "connections",
				Name:      "closed_total",
				Help:      "Connections torn down, by classification.",
			},
			[]string{"type"},
		),
		receivedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "io",
			Name:      "received_bytes_total",
			Help:      "Bytes delivered to the handler.",
		}),
		receivedReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "io",
			Name:      "reads_total",
			Help:      "Envelopes delivered to the handler.",
		}),
		sentBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "io",
			Name:      "sent_bytes_total",
			Help:      "Bytes written to peers.",
		}),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Errors reported by the reactor, by layer and operation.",
			},
			[]string{"layer", "context"},
		),
	}
}

// Register adds every metric to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	var err error
	for _, m := range c.all() {
		err = multierr.Append(err, reg.Register(m))
	}
	return err
}

// Unregister removes every metric from reg.
func (c *Collector) Unregister(reg prometheus.Registerer) {
	for _, m := range c.all() {
		reg.Unregister(m)
	}
}

func (c *Collector) all() []prometheus.Collector {
	return []prometheus.Collector{
		c.connections, c.active, c.disconnects,
		c.receivedBytes, c.receivedReads, c.sentBytes, c.errors,
	}
}

// Wrap returns a Handler that records metrics and then calls next.
func (c *Collector) Wrap(next reactor.Handler) reactor.Handler {
	return &handler{collector: c, next: next}
}

// Log implements log.Logger. Outbound frames and errors are counted; inbound
// data is counted by the wrapped handler.
func (c *Collector) Log(event log.Event) {
	switch event.Category {
	case log.CategoryData:
		if event.Direction == log.DirectionOut && event.Frame != nil {
			c.sentBytes.Add(float64(event.Frame.Size))
		}
	case log.CategoryError:
		if event.Error != nil {
			c.errors.WithLabelValues(event.Error.Layer.String(), event.Error.Context).Inc()
		}
	}
}

type handler struct {
	collector *Collector
	next      reactor.Handler
}

func (h *handler) Connected(p peer.Identity) {
	h.collector.connections.Inc()
	h.collector.active.Inc()
	h.next.Connected(p)
}

func (h *handler) Disconnected(p peer.Identity, err *reactor.ConnectionError) {
	h.collector.active.Dec()
	kind := reactor.Closed
	if err != nil {
		kind = err.Type
	}
	h.collector.disconnects.WithLabelValues(kind.String()).Inc()
	h.next.Disconnected(p, err)
}

func (h *handler) Received(env reactor.Envelope, ch *reactor.ResponseChannel) {
	h.collector.receivedReads.Inc()
	h.collector.receivedBytes.Add(float64(env.Length))
	h.next.Received(env, ch)
}

// Compile-time interface satisfaction checks.
var (
	_ log.Logger      = (*Collector)(nil)
	_ reactor.Handler = (*handler)(nil)
)
