// Package metrics exposes the sensor's Prometheus metrics on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/hyst-sensor/internal/logic"
)

const namespace = "hyst_sensor"

// Metrics holds the sensor collectors.
type Metrics struct {
	registry *prometheus.Registry

	transitions   *prometheus.CounterVec
	value         *prometheus.GaugeVec
	state         *prometheus.GaugeVec
	readErrors    prometheus.Counter
	publishErrors prometheus.Counter
	readDuration  prometheus.Histogram
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Debounced channel transitions by target state.",
		}, []string{"channel", "state"}),
		value: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "value",
			Help:      "Last sampled channel value.",
		}, []string{"channel"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Stable channel state (1 = ON, 0 = OFF, -1 = unknown).",
		}, []string{"channel"}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_errors_total",
			Help:      "Failed input reads.",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed MQTT publishes.",
		}),
		readDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "read_duration_seconds",
			Help:      "Time taken by one input read.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	m.registry.MustRegister(
		m.transitions,
		m.value,
		m.state,
		m.readErrors,
		m.publishErrors,
		m.readDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveEvent counts a transition.
func (m *Metrics) ObserveEvent(e logic.Event) {
	m.transitions.WithLabelValues(e.Channel, string(e.State)).Inc()
}

// ObserveSample records the latest values and stable states.
func (m *Metrics) ObserveSample(values map[string]float64, states map[string]logic.State) {
	for name, v := range values {
		m.value.WithLabelValues(name).Set(v)
	}
	for name, s := range states {
		m.state.WithLabelValues(name).Set(stateValue(s))
	}
}

// ObserveRead records the duration of a read and whether it failed.
func (m *Metrics) ObserveRead(d time.Duration, err error) {
	m.readDuration.Observe(d.Seconds())
	if err != nil {
		m.readErrors.Inc()
	}
}

// PublishError counts a failed publish.
func (m *Metrics) PublishError() {
	m.publishErrors.Inc()
}

// BufferStats is implemented by publishers that queue messages while the
// broker is unreachable.
type BufferStats interface {
	Buffered() int
	Dropped() int
}

// WatchBuffer exports the publisher's queue depth and overflow count. Values
// are read at scrape time.
func (m *Metrics) WatchBuffer(b BufferStats) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_buffered",
			Help:      "Messages queued while the broker is unreachable.",
		}, func() float64 { return float64(b.Buffered()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_dropped_total",
			Help:      "Queued messages discarded because the buffer was full.",
		}, func() float64 { return float64(b.Dropped()) }),
	)
}

func stateValue(s logic.State) float64 {
	switch s {
	case logic.StateOn:
		return 1
	case logic.StateOff:
		return 0
	}
	return -1
}
