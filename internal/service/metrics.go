package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// insightRunsTotal counts analysis runs by operation and result
	insightRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_runs_total",
		Help: "Total analysis runs by operation and result",
	}, []string{"operation", "result"})

	// insightRunDuration tracks analysis latency, snapshot load included
	insightRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "insights_run_duration_seconds",
		Help:    "Analysis run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	}, []string{"operation"})

	// reportCacheTotal counts report cache lookups by outcome
	reportCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_report_cache_total",
		Help: "Report cache lookups by result (hit, miss, error)",
	}, []string{"result"})
)

func observe(operation string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	insightRunsTotal.WithLabelValues(operation, result).Inc()
	insightRunDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
