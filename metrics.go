package calc

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "calc"
	metricsSubsystem = "engine"
)

// Metrics holds prometheus metrics for formula evaluation. A nil *Metrics
// records nothing.
type Metrics struct {
	evaluationTime      *prometheus.HistogramVec
	recalculationTime   prometheus.Histogram
	circularReferences  prometheus.Counter
	structuralEdits     *prometheus.CounterVec
	invalidatedFormulas prometheus.Histogram
}

// NewMetrics creates an unregistered set of engine metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		evaluationTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "cell_evaluation_duration_seconds",
				Help:      "Formula cell evaluation time in seconds, precedents included.",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10), // 1µs to ~0.26s
			},
			[]string{"result"}, // "success" or "error"
		),
		recalculationTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "recalculation_duration_seconds",
				Help:      "Full workbook recalculation time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
		),
		circularReferences: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "circular_references_total",
				Help:      "Number of reads that closed a reference cycle.",
			},
		),
		structuralEdits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "structural_edits_total",
				Help:      "Number of row, column and sheet structural edits.",
			},
			[]string{"kind"}, // insert_rows, delete_rows, insert_columns, delete_columns, delete_sheet
		),
		invalidatedFormulas: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "invalidated_formulas",
				Help:      "Number of formula cells marked dirty by one edit.",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
	}
}

// MustRegister registers the metrics with the given Prometheus registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.evaluationTime)
	registry.MustRegister(m.recalculationTime)
	registry.MustRegister(m.circularReferences)
	registry.MustRegister(m.structuralEdits)
	registry.MustRegister(m.invalidatedFormulas)
}

func (m *Metrics) observeEvaluation(durationSeconds float64, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.evaluationTime.WithLabelValues(result).Observe(durationSeconds)
}

func (m *Metrics) observeRecalculation(durationSeconds float64) {
	if m == nil {
		return
	}
	m.recalculationTime.Observe(durationSeconds)
}

func (m *Metrics) observeCircular() {
	if m == nil {
		return
	}
	m.circularReferences.Inc()
}

func (m *Metrics) observeStructuralEdit(kind string) {
	if m == nil {
		return
	}
	m.structuralEdits.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeInvalidation(count int) {
	if m == nil {
		return
	}
	m.invalidatedFormulas.Observe(float64(count))
}
