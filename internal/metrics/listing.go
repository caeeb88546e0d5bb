package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"marginalia/internal/application/listing"
)

type listingMetrics struct {
	lookups   *prometheus.CounterVec
	evictions *prometheus.CounterVec
	size      prometheus.Gauge
}

// NewListingMetrics registers listing cache collectors on reg. A nil reg
// returns nil, which the cache treats as disabled.
func NewListingMetrics(reg *prometheus.Registry) listing.Metrics {
	if reg == nil {
		return nil
	}
	return &listingMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "marginalia_listing_cache_lookups_total",
				Help: "Listing cache lookups by result",
			},
			[]string{"result"},
		),
		evictions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "marginalia_listing_cache_evictions_total",
				Help: "Listings dropped from the cache by reason",
			},
			[]string{"reason"},
		),
		size: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "marginalia_listing_cache_entries",
				Help: "Listings currently cached",
			},
		),
	}
}

func (m *listingMetrics) RecordHit() {
	m.lookups.WithLabelValues("hit").Inc()
}

func (m *listingMetrics) RecordMiss() {
	m.lookups.WithLabelValues("miss").Inc()
}

func (m *listingMetrics) RecordEvictions(reason string, n int) {
	m.evictions.WithLabelValues(reason).Add(float64(n))
}

func (m *listingMetrics) RecordSize(n int) {
	m.size.Set(float64(n))
}
