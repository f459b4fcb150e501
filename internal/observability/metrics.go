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
	reductionCounter      *prometheus.CounterVec
	reductionLeaves       prometheus.Histogram
	rateLookupCounter     *prometheus.CounterVec
	rateRegisterCounter   *prometheus.CounterVec
	rateTableGauge        prometheus.Gauge
	idempotencyCounter    *prometheus.CounterVec
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

		reductionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "money_reductions_total",
			Help: "Expression reductions by target currency and outcome",
		}, []string{"currency", "result"})

		reductionLeaves = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "money_reduction_leaves",
			Help:    "Number of money leaves per reduced expression",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		})

		rateLookupCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_rate_lookups_total",
			Help: "Exchange rate lookups by outcome",
		}, []string{"result"})

		rateRegisterCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_rate_registrations_total",
			Help: "Exchange rate registrations by outcome",
		}, []string{"result"})

		rateTableGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "exchange_rate_table_size",
			Help: "Number of registered directional rates",
		})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			reductionCounter,
			reductionLeaves,
			rateLookupCounter,
			rateRegisterCounter,
			rateTableGauge,
			idempotencyCounter,
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

func ObserveReduction(currency, result string, leaves int) {
	if reductionCounter == nil {
		return
	}
	reductionCounter.WithLabelValues(currency, result).Inc()
	reductionLeaves.Observe(float64(leaves))
}

func IncrementRateLookup(result string) {
	if rateLookupCounter == nil {
		return
	}
	rateLookupCounter.WithLabelValues(result).Inc()
}

func IncrementRateRegistration(result string) {
	if rateRegisterCounter == nil {
		return
	}
	rateRegisterCounter.WithLabelValues(result).Inc()
}

func SetRateTableSize(size int) {
	if rateTableGauge == nil {
		return
	}
	rateTableGauge.Set(float64(size))
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
