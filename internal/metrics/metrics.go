package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Job metrics
	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eds_job_runs_total",
			Help: "Total number of pipeline job runs",
		},
		[]string{"job", "status"}, // status: success|error
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eds_job_duration_seconds",
			Help:    "Pipeline job duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"job"},
	)

	JobLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eds_job_last_run_timestamp",
			Help: "Unix timestamp of last job run",
		},
		[]string{"job"},
	)

	// Symbol metrics
	SymbolsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eds_symbols_processed_total",
			Help: "Symbols that produced a signal bundle",
		},
		[]string{"job"},
	)

	SymbolsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eds_symbols_dropped_total",
			Help: "Symbols dropped during a run",
		},
		[]string{"job", "stage"}, // stage: filter|signals|persist
	)

	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eds_decisions_total",
			Help: "Scored decisions by job",
		},
		[]string{"job", "decision"},
	)

	// Provider metrics
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eds_provider_calls_total",
			Help: "Total number of market data provider calls",
		},
		[]string{"provider", "endpoint", "status"},
	)

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eds_provider_latency_seconds",
			Help:    "Market data provider latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "endpoint"},
	)
)

var registerOnce sync.Once

// Init registers all metrics with Prometheus. 여러 번 호출해도 안전
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(JobRuns)
		prometheus.MustRegister(JobDuration)
		prometheus.MustRegister(JobLastRun)

		prometheus.MustRegister(SymbolsProcessed)
		prometheus.MustRegister(SymbolsDropped)
		prometheus.MustRegister(Decisions)

		prometheus.MustRegister(ProviderCalls)
		prometheus.MustRegister(ProviderLatency)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordJobRun records one job execution
func RecordJobRun(job string, duration time.Duration, err error) {
	JobRuns.WithLabelValues(job, status(err)).Inc()
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
	JobLastRun.WithLabelValues(job).SetToCurrentTime()
}

// RecordSymbols records processed and dropped symbol counts of a run stage
func RecordSymbols(job, stage string, processed, dropped int) {
	if processed > 0 {
		SymbolsProcessed.WithLabelValues(job).Add(float64(processed))
	}
	if dropped > 0 {
		SymbolsDropped.WithLabelValues(job, stage).Add(float64(dropped))
	}
}

// RecordDecision counts one scored decision
func RecordDecision(job, decision string) {
	Decisions.WithLabelValues(job, decision).Inc()
}

// RecordProviderCall records one provider API call
func RecordProviderCall(provider, endpoint string, latency time.Duration, err error) {
	ProviderCalls.WithLabelValues(provider, endpoint, status(err)).Inc()
	ProviderLatency.WithLabelValues(provider, endpoint).Observe(latency.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
