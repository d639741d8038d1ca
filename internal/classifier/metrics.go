package classifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK       = "ok"
	outcomeFallback = "fallback"
	outcomeCacheHit = "cache_hit"
)

var (
	classificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "utgifter_classifications_total",
			Help: "Expense descriptions classified, by outcome",
		},
		[]string{"outcome"},
	)
	classificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "utgifter_classification_duration_seconds",
			Help:    "Latency of inference requests",
			Buckets: prometheus.DefBuckets,
		},
	)
)
