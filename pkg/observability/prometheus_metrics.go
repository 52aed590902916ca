package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsClient implements MetricsClient using dynamically
// registered Prometheus collectors, keyed by metric name. Collectors are
// created lazily on first use since the MetricsClient interface accepts
// arbitrary metric names rather than a fixed, pre-declared set.
type PrometheusMetricsClient struct {
	namespace string
	subsystem string

	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec

	mu sync.RWMutex

	commonLabels prometheus.Labels
}

// NewPrometheusMetricsClient creates a new Prometheus-backed MetricsClient.
func NewPrometheusMetricsClient(namespace, subsystem string, commonLabels map[string]string) *PrometheusMetricsClient {
	labels := prometheus.Labels{}
	for k, v := range commonLabels {
		labels[k] = v
	}

	return &PrometheusMetricsClient{
		namespace:    namespace,
		subsystem:    subsystem,
		counters:     make(map[string]*prometheus.CounterVec),
		gauges:       make(map[string]*prometheus.GaugeVec),
		histograms:   make(map[string]*prometheus.HistogramVec),
		commonLabels: labels,
	}
}

// RecordEvent records a one-off event as a counter labeled by source/type.
func (c *PrometheusMetricsClient) RecordEvent(source, eventType string) {
	c.IncrementCounterWithLabels("events_total", 1, map[string]string{
		"source": source,
		"type":   eventType,
	})
}

// RecordLatency records an operation's latency as a histogram in seconds.
func (c *PrometheusMetricsClient) RecordLatency(operation string, duration time.Duration) {
	c.RecordHistogram("operation_latency_seconds", duration.Seconds(), map[string]string{
		"operation": operation,
	})
}

// RecordCounter records a counter metric
func (c *PrometheusMetricsClient) RecordCounter(name string, value float64, labels map[string]string) {
	counter := c.getOrCreateCounter(name, c.getLabelNames(labels))
	counter.With(c.mergeLabelValues(labels)).Add(value)
}

// RecordGauge records a gauge metric
func (c *PrometheusMetricsClient) RecordGauge(name string, value float64, labels map[string]string) {
	gauge := c.getOrCreateGauge(name, c.getLabelNames(labels))
	gauge.With(c.mergeLabelValues(labels)).Set(value)
}

// RecordHistogram records a histogram metric
func (c *PrometheusMetricsClient) RecordHistogram(name string, value float64, labels map[string]string) {
	histogram := c.getOrCreateHistogram(name, c.getLabelNames(labels), prometheus.DefBuckets)
	histogram.With(c.mergeLabelValues(labels)).Observe(value)
}

// RecordTimer records a pre-measured duration against a histogram.
func (c *PrometheusMetricsClient) RecordTimer(name string, duration time.Duration, labels map[string]string) {
	c.RecordHistogram(name, duration.Seconds(), labels)
}

// RecordCacheOperation records a cache hit/miss and its duration.
func (c *PrometheusMetricsClient) RecordCacheOperation(operation string, success bool, durationSeconds float64) {
	result := "miss"
	if success {
		result = "hit"
	}
	c.IncrementCounterWithLabels("cache_operations_total", 1, map[string]string{
		"operation": operation,
		"result":    result,
	})
	c.RecordHistogram("cache_operation_duration_seconds", durationSeconds, map[string]string{
		"operation": operation,
	})
}

// RecordOperation records a generic component operation outcome.
func (c *PrometheusMetricsClient) RecordOperation(component, operation string, success bool, durationSeconds float64, labels map[string]string) {
	merged := map[string]string{
		"component": component,
		"operation": operation,
		"status":    statusLabel(success),
	}
	for k, v := range labels {
		merged[k] = v
	}
	c.IncrementCounterWithLabels("component_operations_total", 1, merged)
	c.RecordHistogram("component_operation_duration_seconds", durationSeconds, map[string]string{
		"component": component,
		"operation": operation,
	})
}

// RecordAPIOperation records an outbound API call outcome (e.g. a tool
// invocation over the tool-invocation port).
func (c *PrometheusMetricsClient) RecordAPIOperation(api, operation string, success bool, durationSeconds float64) {
	labels := map[string]string{
		"api":       api,
		"operation": operation,
		"status":    statusLabel(success),
	}
	c.IncrementCounterWithLabels("api_operations_total", 1, labels)
	c.RecordHistogram("api_operation_duration_seconds", durationSeconds, map[string]string{
		"api":       api,
		"operation": operation,
	})
}

// RecordDatabaseOperation is kept for interface parity with the codebase's
// observability contract; the mesh coordinator has no SQL database, and
// nothing in this module calls it.
func (c *PrometheusMetricsClient) RecordDatabaseOperation(operation string, success bool, durationSeconds float64) {
	labels := map[string]string{
		"operation": operation,
		"status":    statusLabel(success),
	}
	c.IncrementCounterWithLabels("database_operations_total", 1, labels)
	c.RecordHistogram("database_operation_duration_seconds", durationSeconds, map[string]string{
		"operation": operation,
	})
}

// StartTimer starts a timer and returns a function to stop it and record
// the elapsed duration against a histogram.
func (c *PrometheusMetricsClient) StartTimer(name string, labels map[string]string) func() {
	start := time.Now()
	return func() {
		c.RecordHistogram(name, time.Since(start).Seconds(), labels)
	}
}

// IncrementCounter increments an unlabeled counter.
func (c *PrometheusMetricsClient) IncrementCounter(name string, value float64) {
	c.RecordCounter(name, value, nil)
}

// IncrementCounterWithLabels increments a counter with labels.
func (c *PrometheusMetricsClient) IncrementCounterWithLabels(name string, value float64, labels map[string]string) {
	c.RecordCounter(name, value, labels)
}

// RecordDuration records a duration in seconds against an unlabeled
// histogram.
func (c *PrometheusMetricsClient) RecordDuration(name string, duration time.Duration) {
	c.RecordHistogram(name, duration.Seconds(), nil)
}

// Close is a no-op: collectors are registered against the default
// Prometheus registry and outlive any single client's lifecycle.
func (c *PrometheusMetricsClient) Close() error {
	return nil
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func (c *PrometheusMetricsClient) getOrCreateCounter(name string, labels []string) *prometheus.CounterVec {
	c.mu.RLock()
	if counter, exists := c.counters[name]; exists {
		c.mu.RUnlock()
		return counter
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, exists := c.counters[name]; exists {
		return counter
	}

	counter := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      name,
		Help:      "counter: " + name,
	}, labels)

	c.counters[name] = counter
	return counter
}

func (c *PrometheusMetricsClient) getOrCreateGauge(name string, labels []string) *prometheus.GaugeVec {
	c.mu.RLock()
	if gauge, exists := c.gauges[name]; exists {
		c.mu.RUnlock()
		return gauge
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if gauge, exists := c.gauges[name]; exists {
		return gauge
	}

	gauge := promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      name,
		Help:      "gauge: " + name,
	}, labels)

	c.gauges[name] = gauge
	return gauge
}

func (c *PrometheusMetricsClient) getOrCreateHistogram(name string, labels []string, buckets []float64) *prometheus.HistogramVec {
	c.mu.RLock()
	if histogram, exists := c.histograms[name]; exists {
		c.mu.RUnlock()
		return histogram
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if histogram, exists := c.histograms[name]; exists {
		return histogram
	}

	histogram := promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      name,
		Help:      "histogram: " + name,
		Buckets:   buckets,
	}, labels)

	c.histograms[name] = histogram
	return histogram
}

// getLabelNames returns a stable label-name slice for a Prometheus vector.
// Every call site for a given metric name must pass the same label keys;
// mismatched label sets across calls panic inside the client_golang vector,
// same as the upstream library's own contract.
func (c *PrometheusMetricsClient) getLabelNames(labels map[string]string) []string {
	names := make([]string, 0, len(c.commonLabels)+len(labels))
	for name := range c.commonLabels {
		names = append(names, name)
	}
	for name := range labels {
		if _, common := c.commonLabels[name]; !common {
			names = append(names, name)
		}
	}
	return names
}

func (c *PrometheusMetricsClient) mergeLabelValues(labels map[string]string) prometheus.Labels {
	merged := prometheus.Labels{}

	for k, v := range c.commonLabels {
		merged[k] = v
	}
	for k, v := range labels {
		merged[k] = v
	}

	return merged
}
