package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"marginalia/internal/application/reconcile"
)

type reconcileMetrics struct {
	outcomes     *prometheus.CounterVec
	passes       prometheus.Counter
	passExamined prometheus.Histogram
	passDuration prometheus.Histogram
	moveDuration *prometheus.HistogramVec
}

// NewReconcileMetrics registers reconciliation collectors on reg. A nil
// reg returns nil, which the engine treats as disabled.
func NewReconcileMetrics(reg *prometheus.Registry) reconcile.Metrics {
	if reg == nil {
		return nil
	}
	return &reconcileMetrics{
		outcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "marginalia_reconcile_changes_total",
				Help: "Change log entries processed by outcome",
			},
			[]string{"outcome"},
		),
		passes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "marginalia_reconcile_passes_total",
				Help: "Reconciliation passes run",
			},
		),
		passExamined: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marginalia_reconcile_pass_examined",
				Help:    "Change log entries examined per pass",
				Buckets: []float64{0, 1, 10, 50, 100, 500, 1000},
			},
		),
		passDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marginalia_reconcile_pass_duration_seconds",
				Help:    "Duration of reconciliation passes",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
		moveDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "marginalia_reconcile_move_duration_seconds",
				Help: "Duration of filesystem moves by status",
				Buckets: []float64{
					0.0001, // 100µs
					0.001,  // 1ms
					0.01,   // 10ms
					0.1,    // 100ms
					1,      // 1s
					10,     // 10s
				},
			},
			[]string{"status"},
		),
	}
}

func (m *reconcileMetrics) RecordOutcome(outcome string) {
	m.outcomes.WithLabelValues(outcome).Inc()
}

func (m *reconcileMetrics) ObservePass(examined int, d time.Duration) {
	m.passes.Inc()
	m.passExamined.Observe(float64(examined))
	m.passDuration.Observe(d.Seconds())
}

func (m *reconcileMetrics) ObserveMove(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.moveDuration.WithLabelValues(status).Observe(d.Seconds())
}
