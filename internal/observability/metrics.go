package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec

	scheduleRunsTotal       *prometheus.CounterVec
	chunksPlacedTotal       prometheus.Counter
	scheduleShortfall       prometheus.Histogram
	scheduleDurationSeconds prometheus.Histogram
	scheduleStreamsActive   prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hwplan_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hwplan_http_request_duration_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		scheduleRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hwplan_schedule_runs_total",
			Help: "Scheduling passes by outcome.",
		}, []string{"outcome"})

		chunksPlacedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hwplan_chunks_placed_total",
			Help: "Total number of chunks written by the scheduler.",
		})

		scheduleShortfall = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hwplan_schedule_shortfall_minutes",
			Help:    "Minutes left unplaced when a pass reaches the deadline.",
			Buckets: []float64{15, 30, 60, 120, 240, 480, 960},
		})

		scheduleDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hwplan_schedule_duration_seconds",
			Help:    "Wall time of a scheduling pass including lock wait.",
			Buckets: prometheus.DefBuckets,
		})

		scheduleStreamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hwplan_schedule_streams_active",
			Help: "Open schedule event websocket connections.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			scheduleRunsTotal,
			chunksPlacedTotal,
			scheduleShortfall,
			scheduleDurationSeconds,
			scheduleStreamsActive,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// ScheduleRuns exposes the scheduling pass counter.
func ScheduleRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return scheduleRunsTotal
}

// ChunksPlaced exposes the placed chunk counter.
func ChunksPlaced() prometheus.Counter {
	RegisterMetrics()
	return chunksPlacedTotal
}

// ScheduleShortfall exposes the shortfall histogram.
func ScheduleShortfall() prometheus.Histogram {
	RegisterMetrics()
	return scheduleShortfall
}

// ScheduleDuration exposes the scheduling latency histogram.
func ScheduleDuration() prometheus.Histogram {
	RegisterMetrics()
	return scheduleDurationSeconds
}

// ScheduleStreamsActive exposes the websocket connection gauge.
func ScheduleStreamsActive() prometheus.Gauge {
	RegisterMetrics()
	return scheduleStreamsActive
}
