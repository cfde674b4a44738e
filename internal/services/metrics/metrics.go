package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the checkout session counters.
type Metrics struct {
	// Snapshot processing
	SnapshotsReceived  atomic.Uint64
	SnapshotsProcessed atomic.Uint64
	NormalizeErrors    atomic.Uint64
	ProcessLatencyUs   atomic.Uint64

	// Guidance
	InstructionsAnnounced atomic.Uint64

	// Cart and assistance
	AdjustmentsApplied atomic.Uint64
	OverridesReset     atomic.Uint64
	Escalations        atomic.Uint64
	HelpRequests       atomic.Uint64
	CartTotalCents     atomic.Int64
	CartItems          atomic.Int64

	// Zones
	ZoneIgnoreRequests atomic.Uint64
	ZoneAcks           atomic.Uint64
	ZoneAckFailures    atomic.Uint64
	OpenZones          atomic.Int64

	FPS atomic.Int64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	counters := []struct {
		name, help string
		v          *atomic.Uint64
	}{
		{"checkout_snapshots_received_total", "Detection snapshots received from the backend", &m.SnapshotsReceived},
		{"checkout_snapshots_processed_total", "Snapshots folded into the session", &m.SnapshotsProcessed},
		{"checkout_normalize_errors_total", "Snapshot fields that failed to decode", &m.NormalizeErrors},
		{"checkout_instructions_announced_total", "Instructions announced to the customer", &m.InstructionsAnnounced},
		{"checkout_adjustments_applied_total", "Manual quantity adjustments applied", &m.AdjustmentsApplied},
		{"checkout_overrides_reset_total", "Manual overrides reset to automatic counting", &m.OverridesReset},
		{"checkout_escalations_total", "Adjustments escalated to an attendant", &m.Escalations},
		{"checkout_help_requests_total", "Customer help requests", &m.HelpRequests},
		{"checkout_zone_ignore_requests_total", "Zone ignore requests sent to the backend", &m.ZoneIgnoreRequests},
		{"checkout_zone_acks_total", "Zone ignore acknowledgements received", &m.ZoneAcks},
		{"checkout_zone_ack_failures_total", "Zone ignore acknowledgements reporting failure", &m.ZoneAckFailures},
	}
	for _, c := range counters {
		v := c.v
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(v.Load()) },
		))
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "checkout_process_latency_us",
			Help: "Processing time of the last snapshot in microseconds",
		},
		func() float64 { return float64(m.ProcessLatencyUs.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "checkout_cart_total",
			Help: "Current cart total",
		},
		func() float64 { return float64(m.CartTotalCents.Load()) / 100 },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "checkout_cart_items",
			Help: "Number of units in the cart",
		},
		func() float64 { return float64(m.CartItems.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "checkout_open_zones",
			Help: "Unstable zones awaiting resolution",
		},
		func() float64 { return float64(m.OpenZones.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "checkout_fps",
			Help: "Snapshots processed during the last full second",
		},
		func() float64 { return float64(m.FPS.Load()) },
	))
}

// AddGaugeFunc exposes a value owned by another component, such as the
// number of connected viewers.
func (m *Metrics) AddGaugeFunc(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn))
}

// UpdateProcessLatency records how long the last snapshot took.
func (m *Metrics) UpdateProcessLatency(duration time.Duration) {
	m.ProcessLatencyUs.Store(uint64(duration.Microseconds()))
}

// UpdateCart records the cart total and unit count.
func (m *Metrics) UpdateCart(total float64, items int) {
	m.CartTotalCents.Store(int64(total*100 + 0.5))
	m.CartItems.Store(int64(items))
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
