package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/tavernlight-core/internal/lighting"
)

const namespace = "tavernlight"

// Metrics holds the Prometheus collectors for one service instance.
//
// Counters are updated from session events; gauges and the lighting
// counters are read from their owners at scrape time.
type Metrics struct {
	registry *prometheus.Registry

	scenesStarted   *prometheus.CounterVec
	triggersStarted *prometheus.CounterVec
	triggerDuration *prometheus.HistogramVec
	sessionStops    prometheus.Counter
	volumeChanges   *prometheus.CounterVec
	eventsDropped   prometheus.Counter
	httpRequests    *prometheus.CounterVec
}

// New creates a registry with the service's collectors plus the Go runtime
// and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		scenesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenes_started_total",
			Help:      "Scenes started, by scene ID",
		}, []string{"scene"}),
		triggersStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_started_total",
			Help:      "Trigger sequences started, by trigger ID",
		}, []string{"trigger"}),
		triggerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trigger_duration_seconds",
			Help:      "Wall time of completed trigger sequences, including the lighting restore",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"trigger"}),
		sessionStops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_stops_total",
			Help:      "Stop-all requests",
		}),
		volumeChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "volume_changes_total",
			Help:      "Volume changes, by category",
		}, []string{"category"}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Session events dropped because the fan-out queue was full",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method and status code",
		}, []string{"method", "code"}),
	}

	registry.MustRegister(
		m.scenesStarted,
		m.triggersStarted,
		m.triggerDuration,
		m.sessionStops,
		m.volumeChanges,
		m.eventsDropped,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// SceneStarted counts one scene activation.
func (m *Metrics) SceneStarted(sceneID string) {
	m.scenesStarted.WithLabelValues(sceneID).Inc()
}

// TriggerStarted counts one trigger execution.
func (m *Metrics) TriggerStarted(triggerID string) {
	m.triggersStarted.WithLabelValues(triggerID).Inc()
}

// TriggerCompleted records how long a sequence ran.
func (m *Metrics) TriggerCompleted(triggerID string, d time.Duration) {
	m.triggerDuration.WithLabelValues(triggerID).Observe(d.Seconds())
}

// SessionStopped counts one stop-all.
func (m *Metrics) SessionStopped() {
	m.sessionStops.Inc()
}

// VolumeChanged counts one volume change.
func (m *Metrics) VolumeChanged(category string) {
	m.volumeChanges.WithLabelValues(category).Inc()
}

// EventDropped counts one event lost to a full queue.
func (m *Metrics) EventDropped() {
	m.eventsDropped.Inc()
}

// ObserveHTTP counts one served request.
func (m *Metrics) ObserveHTTP(method string, status int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// RegisterGauge exposes fn as tavernlight_<name>, evaluated at scrape time.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// RegisterLighting exposes the lighting adapter's request counters.
func (m *Metrics) RegisterLighting(stats func() lighting.Stats) {
	counter := func(integration, name, help string, pick func(lighting.Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"integration": integration},
		}, func() float64 { return float64(pick(stats())) })
	}
	m.registry.MustRegister(
		counter("wled", "lighting_requests_total", "Requests sent to a lighting integration",
			func(s lighting.Stats) uint64 { return s.WLEDRequests }),
		counter("wled", "lighting_failures_total", "Failed requests to a lighting integration",
			func(s lighting.Stats) uint64 { return s.WLEDFailures }),
		counter("home_assistant", "lighting_requests_total", "Requests sent to a lighting integration",
			func(s lighting.Stats) uint64 { return s.HubRequests }),
		counter("home_assistant", "lighting_failures_total", "Failed requests to a lighting integration",
			func(s lighting.Stats) uint64 { return s.HubFailures }),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
