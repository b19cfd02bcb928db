// Package metrics exposes Prometheus collectors for the relay: live
// connections, active rooms, routed envelopes and per-recipient outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tyrowin/roomrelay/internal/relay"
)

const namespace = "roomrelay"

// Collector owns a private Prometheus registry so that independent instances
// (tests, multiple servers in one process) never collide.
type Collector struct {
	registry   *prometheus.Registry
	envelopes  *prometheus.CounterVec
	deliveries *prometheus.CounterVec
	dropped    *prometheus.CounterVec
}

// New creates a Collector. connections and rooms are sampled on every scrape.
func New(connections, rooms func() int) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		envelopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelopes_routed_total",
			Help:      "Envelopes routed, by scope.",
		}, []string{"scope"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Per-recipient delivery attempts, by result.",
		}, []string{"result"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Inbound client frames dropped before routing, by reason.",
		}, []string{"reason"}),
	}

	c.registry.MustRegister(
		c.envelopes,
		c.deliveries,
		c.dropped,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Registered connections.",
		}, func() float64 { return float64(connections()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms with at least one member.",
		}, func() float64 { return float64(rooms()) }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveDelivery implements relay.Observer.
func (c *Collector) ObserveDelivery(env relay.Envelope, report relay.DeliveryReport) {
	c.envelopes.WithLabelValues(env.Scope.Kind.String()).Inc()
	c.deliveries.WithLabelValues("succeeded").Add(float64(report.Succeeded))
	c.deliveries.WithLabelValues("failed").Add(float64(report.Failed))
}

// FrameDropped counts an inbound frame discarded for reason.
func (c *Collector) FrameDropped(reason string) {
	c.dropped.WithLabelValues(reason).Inc()
}

// Handler serves the collector's registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
