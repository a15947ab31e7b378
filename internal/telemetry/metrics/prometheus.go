package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// SetupPrometheus creates the registry served on the metrics endpoint. Go
// runtime metrics are limited to GC and scheduler ones. extraCollectors, like
// the db pool collector, get a constant "service" label.
func SetupPrometheus(service string, extraCollectors ...prometheus.Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(
			collectors.WithGoCollectorRuntimeMetrics(collectors.MetricsGC, collectors.MetricsScheduler),
		),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	labeled := prometheus.WrapRegistererWith(prometheus.Labels{"service": service}, registry)
	for _, c := range extraCollectors {
		labeled.MustRegister(c)
	}

	return registry
}
