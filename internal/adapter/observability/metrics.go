package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcp_connections_active",
			Help: "Number of currently attached client connections",
		},
	)
	ConnectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tcp_connections_total",
			Help: "Total number of accepted client connections",
		},
	)
	ConnectionsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tcp_connections_rejected_total",
			Help: "Total number of connections rejected because the pool was full",
		},
	)
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "client_commands_total",
			Help: "Total number of client commands by kind",
		},
		[]string{"command"},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipeline_queue_depth",
			Help: "Current number of items resident in a pipeline queue",
		},
		[]string{"queue"},
	)
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Pipeline stage transform duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)
	RequestsSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plan_requests_submitted_total",
			Help: "Total number of plan requests admitted to the pipeline",
		},
	)
	RequestsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plan_requests_rejected_total",
			Help: "Total number of plan requests rejected at admission (queue full)",
		},
	)
	PlansGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plans_generated_total",
			Help: "Total number of energy plans generated",
		},
	)

	FetchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_attempts_total",
			Help: "Total number of upstream fetch attempts by outcome",
		},
		[]string{"outcome"},
	)
	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fetch_duration_seconds",
			Help:    "Upstream fetch duration in seconds including retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 90},
		},
	)

	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fetch_cache_hits_total",
			Help: "Total number of fetch-body cache hits",
		},
	)
	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fetch_cache_misses_total",
			Help: "Total number of fetch-body cache misses",
		},
	)
)

// InitMetrics registers all collectors with the default registry. Call once
// per process.
func InitMetrics() {
	prometheus.MustRegister(ConnectionsActive)
	prometheus.MustRegister(ConnectionsTotal)
	prometheus.MustRegister(ConnectionsRejectedTotal)
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(RequestsSubmittedTotal)
	prometheus.MustRegister(RequestsRejectedTotal)
	prometheus.MustRegister(PlansGeneratedTotal)
	prometheus.MustRegister(FetchAttemptsTotal)
	prometheus.MustRegister(FetchDuration)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
}
