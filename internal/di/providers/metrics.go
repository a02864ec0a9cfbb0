package providers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do/v2"

	"github.com/booksheet/booksheet-server/internal/metrics"
)

// MetricsHandle pairs the Prometheus registry with the collectors registered on it.
type MetricsHandle struct {
	Registry *prometheus.Registry
	*metrics.Metrics
}

// ProvideMetrics provides a registry carrying runtime and sheet metrics.
func ProvideMetrics(i do.Injector) (*MetricsHandle, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &MetricsHandle{
		Registry: reg,
		Metrics:  metrics.New(reg),
	}, nil
}
