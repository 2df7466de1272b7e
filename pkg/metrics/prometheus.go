// Package metrics provides Prometheus metrics for the chronoverse timeline service.
package metrics

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	latencyBuckets  []float64
	enabled         bool
	refreshInterval time.Duration
	constLabels     map[string]string
	metricPrefix    string
	registry        prometheus.Registerer

	// Engine metrics, one observation per timeline query
	queriesByTier   *prometheus.CounterVec
	queryLatency    prometheus.Histogram
	windowEvents    prometheus.Histogram
	clustersEmitted prometheus.Counter
	eventsAbsorbed  prometheus.Counter
	eventsDropped   prometheus.Counter
	spansEmitted    prometheus.Counter
	pointsEmitted   prometheus.Counter
	maxLanes        prometheus.Gauge

	// Dataset metrics
	datasetSize    prometheus.Gauge
	datasetReloads *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// global pairs the process-wide manager with the registry it registers on.
type global struct {
	manager  *Manager
	registry *prometheus.Registry
}

var current atomic.Pointer[global] //nolint:gochecknoglobals // process-wide metrics

func init() { //nolint:gochecknoinits // usable recorders before Setup
	if _, err := Setup(); err != nil {
		panic(err)
	}
}

func manager() *Manager { return current.Load().manager }

var validName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`) //nolint:gochecknoglobals // immutable

// variableLabels are label names used by the collectors themselves; constant
// labels must not reuse them.
var variableLabels = []string{ //nolint:gochecknoglobals // immutable
	"tier", "result", "endpoint", "method", "status_code", "component", "error_type",
}

// Setup replaces the global manager with one built from opts on a fresh
// registry (no default Go collectors) and returns that registry. Call it
// before handlers capture GetRegistry. Invalid names or buckets are rejected
// instead of panicking at registration.
func Setup(opts ...Option) (*prometheus.Registry, error) {
	draft := &Manager{}
	for _, opt := range opts {
		opt(draft)
	}
	if err := validate(draft); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := NewManager(append(slices.Clone(opts), WithPrometheusRegistry(reg))...)
	current.Store(&global{manager: m, registry: reg})
	return reg, nil
}

func validate(m *Manager) error {
	if m.metricPrefix != "" && !validName.MatchString(m.metricPrefix) {
		return fmt.Errorf("metrics: invalid prefix %q", m.metricPrefix)
	}
	for name := range m.constLabels {
		if !validName.MatchString(name) || strings.HasPrefix(name, "__") {
			return fmt.Errorf("metrics: invalid label name %q", name)
		}
		if slices.Contains(variableLabels, name) {
			return fmt.Errorf("metrics: label %q is reserved", name)
		}
	}
	for i := 1; i < len(m.latencyBuckets); i++ {
		if m.latencyBuckets[i] <= m.latencyBuckets[i-1] {
			return fmt.Errorf("metrics: latency buckets must be strictly increasing")
		}
	}
	return nil
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "chronoverse",
		subsystem:       "engine",
		latencyBuckets:  prometheus.DefBuckets,
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts(m.counterOpts(name, help))
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     buckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.queriesByTier = auto.NewCounterVec(
		m.counterOpts("queries_total", "Timeline queries by resolved tier"),
		[]string{"tier"},
	)
	m.queryLatency = auto.NewHistogram(
		m.histogramOpts("query_latency_milliseconds", "Timeline query latency in milliseconds", m.latencyBuckets),
	)
	m.windowEvents = auto.NewHistogram(
		m.histogramOpts("window_events", "Events loaded per query window", prometheus.ExponentialBuckets(1, 4, 10)),
	)
	m.clustersEmitted = auto.NewCounter(m.counterOpts("clusters_emitted_total", "Cluster markers emitted"))
	m.eventsAbsorbed = auto.NewCounter(m.counterOpts("events_clustered_total", "Events folded into cluster markers"))
	m.eventsDropped = auto.NewCounter(m.counterOpts("events_dropped_total", "Events without a resolvable year"))
	m.spansEmitted = auto.NewCounter(m.counterOpts("spans_emitted_total", "Items drawn as duration spans"))
	m.pointsEmitted = auto.NewCounter(m.counterOpts("points_emitted_total", "Items drawn as points"))
	m.maxLanes = auto.NewGauge(m.gaugeOpts("max_lanes", "Widest lane count of the last query"))

	m.datasetSize = auto.NewGauge(m.gaugeOpts("dataset_events", "Events currently held by the store"))
	m.datasetReloads = auto.NewCounterVec(
		m.counterOpts("dataset_reloads_total", "Dataset reloads by result"),
		[]string{"result"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.latencyBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
}

// QueryStats summarizes one timeline query.
type QueryStats struct {
	Tier         int
	Latency      time.Duration
	WindowEvents int
	Clusters     int
	Absorbed     int
	Dropped      int
	Spans        int
	Points       int
	MaxLanes     int
}

// ObserveQuery records the outcome of one timeline query.
func (m *Manager) ObserveQuery(s QueryStats) {
	if !m.enabled {
		return
	}
	m.queriesByTier.WithLabelValues(strconv.Itoa(s.Tier)).Inc()
	m.queryLatency.Observe(float64(s.Latency.Microseconds()) / 1000)
	m.windowEvents.Observe(float64(s.WindowEvents))
	m.clustersEmitted.Add(float64(s.Clusters))
	m.eventsAbsorbed.Add(float64(s.Absorbed))
	m.eventsDropped.Add(float64(s.Dropped))
	m.spansEmitted.Add(float64(s.Spans))
	m.pointsEmitted.Add(float64(s.Points))
	m.maxLanes.Set(float64(s.MaxLanes))
}

// SetDatasetSize sets the number of stored events.
func (m *Manager) SetDatasetSize(n int) {
	if m.enabled {
		m.datasetSize.Set(float64(n))
	}
}

// RecordReload counts a dataset reload; result is "ok" or "error".
func (m *Manager) RecordReload(result string) {
	if m.enabled {
		m.datasetReloads.WithLabelValues(result).Inc()
	}
}

// RecordHTTP records one HTTP request and its duration in milliseconds.
func (m *Manager) RecordHTTP(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordError records an error by component.
func (m *Manager) RecordError(component, errorType string) {
	if m.enabled {
		m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordEndpointError records an error by endpoint.
func (m *Manager) RecordEndpointError(endpoint, method, errorType string) {
	if m.enabled {
		m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// CollectSystem samples memory and goroutine gauges.
func (m *Manager) CollectSystem() {
	if !m.enabled {
		return
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.systemMemoryUsage.Set(float64(ms.HeapInuse))
	m.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// RunSystemCollector samples system gauges every refresh interval until ctx
// is done.
func (m *Manager) RunSystemCollector(ctx context.Context) {
	t := time.NewTicker(m.refreshInterval)
	defer t.Stop()
	m.CollectSystem()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.CollectSystem()
		}
	}
}

// Package-level recorders on the global manager.

// ObserveQuery records a timeline query.
func ObserveQuery(s QueryStats) { manager().ObserveQuery(s) }

// SetDatasetSize sets the number of stored events.
func SetDatasetSize(n int) { manager().SetDatasetSize(n) }

// RecordReload counts a dataset reload.
func RecordReload(result string) { manager().RecordReload(result) }

// RecordHTTPRequest records an HTTP request with its duration in milliseconds.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	manager().RecordHTTP(endpoint, method, statusCode, durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	manager().RecordError(component, errorType)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	manager().RecordEndpointError(endpoint, method, errorType)
}

// RunSystemCollector samples system gauges on the global manager.
func RunSystemCollector(ctx context.Context) { manager().RunSystemCollector(ctx) }

// GetRegistry returns the registry of the current global manager.
func GetRegistry() *prometheus.Registry {
	return current.Load().registry
}
