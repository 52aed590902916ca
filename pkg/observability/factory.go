package observability

// MetricsOptions configures a production MetricsClient.
type MetricsOptions struct {
	Namespace    string
	Subsystem    string
	CommonLabels map[string]string
}

// NewMetricsClient creates the default MetricsClient for production use: a
// Prometheus-backed client registered against the default registry.
func NewMetricsClient(namespace string) MetricsClient {
	return NewPrometheusMetricsClient(namespace, "", nil)
}

// NewMetricsClientWithOptions creates a MetricsClient with a subsystem and
// common labels applied to every recorded metric.
func NewMetricsClientWithOptions(opts MetricsOptions) MetricsClient {
	return NewPrometheusMetricsClient(opts.Namespace, opts.Subsystem, opts.CommonLabels)
}
