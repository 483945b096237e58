// Package metrics exposes the Prometheus collectors the wire stack
// instruments itself with. Modeled on the TCPInfoCollector in
// runZeroInc/conniver's exporter package, simplified from a custom
// prometheus.Collector down to plain promauto-managed counters/gauges since
// this driver has no per-connection kernel stats to surface, only its own
// framing-layer bookkeeping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BufferShrinks counts how many times the chunk reader's read buffer grew
// past max_read_buffer_size and was shrunk back down afterward.
var BufferShrinks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "boltwire",
	Subsystem: "chunking",
	Name:      "buffer_shrinks_total",
	Help:      "Number of times the read buffer exceeded max_read_buffer_size and was released back down.",
})

// OutstandingHandlers tracks the FIFO depth of the message engine: requests
// submitted but not yet resolved by a SUCCESS/FAILURE/IGNORED message.
var OutstandingHandlers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "boltwire",
	Subsystem: "messaging",
	Name:      "outstanding_handlers",
	Help:      "Number of request handlers awaiting a terminating response message.",
})

// NewRegistry builds a standalone registry pre-populated with this
// package's collectors, for embedders that do not want to share the global
// default registry.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(BufferShrinks, OutstandingHandlers)
	return reg
}
