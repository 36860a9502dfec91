// Package metrics exposes Prometheus metrics for the gesture pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Error kinds used with RecordError.
const (
	KindDevice     = "device"
	KindActionPort = "action_port"
	KindRecognizer = "recognizer"
	KindCamera     = "camera"
)

// Manager owns the pipeline metrics and their registry.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry
	runtime   bool

	dispatched     *prometheus.CounterVec
	suppressed     *prometheus.CounterVec
	errors         *prometheus.CounterVec
	frames         *prometheus.CounterVec
	volumeLevel    prometheus.Gauge
	enabled        prometheus.Gauge
	handleDuration prometheus.Histogram
}

// NewManager creates a Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "mudra",
		buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if m.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	auto := promauto.With(m.registry)

	m.dispatched = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "dispatch_total",
		Help:      "Gesture events that produced an action, by label and action.",
	}, []string{"label", "action"})

	m.suppressed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "suppressed_total",
		Help:      "Gesture events that produced no action, by reason.",
	}, []string{"reason"})

	m.errors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "errors_total",
		Help:      "Pipeline errors by kind.",
	}, []string{"kind"})

	m.frames = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "frames_total",
		Help:      "Camera frames read, by whether they were classified.",
	}, []string{"classified"})

	m.volumeLevel = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "volume_level",
		Help:      "Last volume level written by the dispatcher.",
	})

	m.enabled = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "enabled",
		Help:      "1 when gesture control is enabled.",
	})

	m.handleDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "handle_duration_seconds",
		Help:      "Time spent in the dispatcher per event.",
		Buckets:   m.buckets,
	})

	return m
}

// RecordDispatch counts an event that produced action.
func (m *Manager) RecordDispatch(label, action string) {
	m.dispatched.WithLabelValues(label, action).Inc()
}

// RecordSuppressed counts an event dropped for reason.
func (m *Manager) RecordSuppressed(reason string) {
	m.suppressed.WithLabelValues(reason).Inc()
}

// RecordError counts an error of kind.
func (m *Manager) RecordError(kind string) {
	m.errors.WithLabelValues(kind).Inc()
}

// RecordFrame counts a camera frame.
func (m *Manager) RecordFrame(classified bool) {
	v := "false"
	if classified {
		v = "true"
	}
	m.frames.WithLabelValues(v).Inc()
}

// SetVolume records the last written level.
func (m *Manager) SetVolume(level float64) {
	m.volumeLevel.Set(level)
}

// SetEnabled records whether gesture control is on.
func (m *Manager) SetEnabled(on bool) {
	if on {
		m.enabled.Set(1)
		return
	}
	m.enabled.Set(0)
}

// ObserveHandle records one dispatcher call.
func (m *Manager) ObserveHandle(d time.Duration) {
	m.handleDuration.Observe(d.Seconds())
}

// Registry returns the registry the metrics live in.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
