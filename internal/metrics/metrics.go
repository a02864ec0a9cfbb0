// Package metrics exposes Prometheus collectors for sheet activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "booksheet"

// Load sources.
const (
	SourceImport   = "import"
	SourceGenerate = "generate"
	SourceSample   = "sample"
)

// Load results.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultConflict = "conflict"
)

// Metrics groups the collectors the service reports to.
type Metrics struct {
	Loads         *prometheus.CounterVec
	RowsLoaded    prometheus.Counter
	Edits         *prometheus.CounterVec
	Resets        prometheus.Counter
	QueryDuration prometheus.Histogram
	Sessions      prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Record loads by source and result.",
		}, []string{"source", "result"}),
		RowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Records installed by successful loads.",
		}),
		Edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edits_total",
			Help:      "Cell edits by whether they were applied.",
		}, []string{"applied"}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Sheets reset to their baseline.",
		}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "view_duration_seconds",
			Help:      "Time spent deriving a sheet view.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Open sheet sessions.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Loads, m.RowsLoaded, m.Edits, m.Resets, m.QueryDuration, m.Sessions)
	}
	return m
}

// ObserveLoad records the outcome of an import or generation.
func (m *Metrics) ObserveLoad(source, result string, rows int) {
	m.Loads.WithLabelValues(source, result).Inc()
	if result == ResultOK && rows > 0 {
		m.RowsLoaded.Add(float64(rows))
	}
}

// ObserveEdit records an edit attempt.
func (m *Metrics) ObserveEdit(applied bool) {
	label := "false"
	if applied {
		label = "true"
	}
	m.Edits.WithLabelValues(label).Inc()
}

// ObserveView records how long a view derivation took.
func (m *Metrics) ObserveView(start time.Time) {
	m.QueryDuration.Observe(time.Since(start).Seconds())
}
