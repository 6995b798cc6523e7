package bundlecache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bundleRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monacoworkers_bundle_requests_total",
			Help: "Worker bundle lookups by outcome (hit, miss, error)",
		},
		[]string{"result"},
	)
	bundleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "monacoworkers_bundle_duration_seconds",
			Help:    "Time spent bundling a worker entry",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)
