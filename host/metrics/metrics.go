package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ardnew/sdhost/host"
	"github.com/ardnew/sdhost/host/power"
	"github.com/ardnew/sdhost/pkg"
)

const namespace = "sdhost"

// Hook results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collector records the state of one host device.
type Collector struct {
	present  prometheus.Gauge
	posture  prometheus.Gauge
	changes  *prometheus.CounterVec
	hooks    *prometheus.CounterVec
	inserted prometheus.Counter
	removed  prometheus.Counter
}

var _ host.Observer = (*Collector)(nil)

// NewCollector creates the metrics of the device named device.
func NewCollector(device string) *Collector {
	labels := prometheus.Labels{"device": device}
	c := &Collector{
		present: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "card_present",
			Help:        "Whether a card is in the slot (1) or not (0).",
			ConstLabels: labels,
		}),
		posture: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "power_on",
			Help:        "Whether the device is powered on (1) or off (0).",
			ConstLabels: labels,
		}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "card_events_total",
			Help:        "Card insert and remove upcalls.",
			ConstLabels: labels,
		}, []string{"event"}),
		hooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "request_hooks_total",
			Help:        "Request hook invocations by stage and result.",
			ConstLabels: labels,
		}, []string{"stage", "result"}),
	}
	// Resolved up front so the gated path only touches atomics.
	c.inserted = c.changes.WithLabelValues("inserted")
	c.removed = c.changes.WithLabelValues("removed")
	return c
}

// Register adds the collector's metrics to r.
func (c *Collector) Register(r prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{c.present, c.posture, c.changes, c.hooks} {
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// PresenceChanged updates the presence gauge. It is safe in a gate.
func (c *Collector) PresenceChanged(p host.Presence) {
	if p == host.Present {
		c.present.Set(1)
		c.inserted.Inc()
		return
	}
	c.present.Set(0)
	c.removed.Inc()
}

// PostureChanged updates the power gauge.
func (c *Collector) PostureChanged(p power.Posture) {
	if p == power.On {
		c.posture.Set(1)
		return
	}
	c.posture.Set(0)
}

// RequestHook counts one hook invocation.
func (c *Collector) RequestHook(stage pkg.Stage, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	c.hooks.WithLabelValues(stage.String(), result).Inc()
}
