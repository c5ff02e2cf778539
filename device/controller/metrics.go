package controller

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the controller's Prometheus instrumentation. Every
// simulation run gets its own registry rather than registering against
// prometheus.DefaultRegisterer, so running several controllers in the same
// process (as the test suite does) never collides on metric names.
//
// The Controller increments PacketsSent, PacketsDropped and Shortcuts from
// node events. ActiveSessions and PendingAcks are registered but nothing in
// this module sets them; they read zero unless an embedder updates them.
type Metrics struct {
	PacketsSent    prometheus.Counter
	PacketsDropped prometheus.Counter
	Shortcuts      prometheus.Counter
	ActiveSessions prometheus.Gauge
	PendingAcks    prometheus.Gauge
}

// NewMetrics builds and registers the controller's metrics against reg. A
// nil reg gets a fresh, unexported registry, which is the right default
// for tests and for embedders that expose metrics some other way.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overlaymesh",
			Name:      "packets_sent_total",
			Help:      "Total packets successfully forwarded by any node.",
		}),
		PacketsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overlaymesh",
			Name:      "packets_dropped_total",
			Help:      "Total fragments probabilistically dropped by a drone.",
		}),
		Shortcuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overlaymesh",
			Name:      "controller_shortcuts_total",
			Help:      "Total control packets re-injected by the controller.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "overlaymesh",
			Name:      "active_sessions",
			Help:      "Outbound sessions not yet fully Acked, summed across nodes.",
		}),
		PendingAcks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "overlaymesh",
			Name:      "pending_acks",
			Help:      "Fragments currently InFlight awaiting an ACK, summed across nodes.",
		}),
	}
	reg.MustRegister(m.PacketsSent, m.PacketsDropped, m.Shortcuts, m.ActiveSessions, m.PendingAcks)
	return m
}
