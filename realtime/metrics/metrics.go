// Package metrics exposes realtime client activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/abase/abase-manager/realtime"
)

var _ realtime.Observer = (*Metrics)(nil)

// Metrics implements realtime.Observer.
type Metrics struct {
	State               prometheus.Gauge
	Dials               *prometheus.CounterVec
	ReconnectsScheduled prometheus.Counter
	GiveUps             prometheus.Counter
	EventsDispatched    *prometheus.CounterVec
	EventsMalformed     prometheus.Counter
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer to
// serve them from the default handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		State: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "abase_realtime_connection_state",
				Help: "Current realtime connection state (0 idle, 1 connecting, 2 open, 3 closed)",
			},
		),
		Dials: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "abase_realtime_dials_total",
				Help: "Total number of realtime dial attempts by result",
			},
			[]string{"result"},
		),
		ReconnectsScheduled: f.NewCounter(
			prometheus.CounterOpts{
				Name: "abase_realtime_reconnects_scheduled_total",
				Help: "Total number of reconnects scheduled after a closed stream",
			},
		),
		GiveUps: f.NewCounter(
			prometheus.CounterOpts{
				Name: "abase_realtime_reconnect_give_ups_total",
				Help: "Total number of times reconnect attempts ran out",
			},
		),
		EventsDispatched: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "abase_realtime_events_dispatched_total",
				Help: "Total number of inbound events dispatched by type",
			},
			[]string{"type"},
		),
		EventsMalformed: f.NewCounter(
			prometheus.CounterOpts{
				Name: "abase_realtime_events_malformed_total",
				Help: "Total number of inbound frames dropped as malformed",
			},
		),
	}
}

func (m *Metrics) StateChanged(s realtime.State) {
	m.State.Set(float64(s))
}

func (m *Metrics) Dialed(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.Dials.WithLabelValues(result).Inc()
}

func (m *Metrics) ReconnectScheduled(int) {
	m.ReconnectsScheduled.Inc()
}

func (m *Metrics) GaveUp() {
	m.GiveUps.Inc()
}

func (m *Metrics) EventDispatched(eventType string) {
	m.EventsDispatched.WithLabelValues(eventType).Inc()
}

func (m *Metrics) EventMalformed() {
	m.EventsMalformed.Inc()
}
