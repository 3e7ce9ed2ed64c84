package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dispatchTotal  *prometheus.CounterVec
	stageLatency   *prometheus.HistogramVec
	stageFailures  *prometheus.CounterVec
	candidateCount prometheus.Histogram
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, *prometheus.CounterVec, prometheus.Histogram) {
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_total",
			Help: "Number of emergencies handled by outcome",
		},
		[]string{"outcome"},
	)
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_stage_latency_seconds",
			Help:    "Latency of each dispatch pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	fail := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_stage_failures_total",
			Help: "Number of dispatches aborted per pipeline stage",
		},
		[]string{"stage"},
	)
	cand := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_candidates",
			Help:    "Number of available vehicles considered per dispatch",
			Buckets: prometheus.LinearBuckets(0, 2, 10),
		},
	)
	return total, lat, fail, cand
}

func init() {
	dispatchTotal, stageLatency, stageFailures, candidateCount = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(dispatchTotal, stageLatency, stageFailures, candidateCount)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	dispatchTotal, stageLatency, stageFailures, candidateCount = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
