package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	rateFetchCounter      *prometheus.CounterVec
	rateCacheCounter      *prometheus.CounterVec
	conversionCounter     *prometheus.CounterVec
	activeSessionsGauge   prometheus.Gauge
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		rateFetchCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_fetches_total",
			Help: "Calls to the upstream rates API by outcome",
		}, []string{"result"})

		rateCacheCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_cache_lookups_total",
			Help: "Rate store lookups by outcome",
		}, []string{"outcome"})

		conversionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conversions_total",
			Help: "Row conversions by outcome",
		}, []string{"result"})

		activeSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "converter_sessions_active",
			Help: "Number of open conversion sessions",
		})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			rateFetchCounter,
			rateCacheCounter,
			conversionCounter,
			activeSessionsGauge,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementRateFetch(result string) {
	if rateFetchCounter == nil {
		return
	}
	rateFetchCounter.WithLabelValues(result).Inc()
}

func IncrementRateCache(outcome string) {
	if rateCacheCounter == nil {
		return
	}
	rateCacheCounter.WithLabelValues(outcome).Inc()
}

func IncrementConversion(result string) {
	if conversionCounter == nil {
		return
	}
	conversionCounter.WithLabelValues(result).Inc()
}

func SetActiveSessions(n int) {
	if activeSessionsGauge == nil {
		return
	}
	activeSessionsGauge.Set(float64(n))
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
