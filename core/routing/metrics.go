package routing

import "github.com/prometheus/client_golang/prometheus"

var routeCandidates prometheus.Histogram

func newCollectors() prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "routing_candidates",
		Help:    "Number of route candidates returned by the routing provider",
		Buckets: []float64{1, 2, 3, 4, 5},
	})
}

func init() {
	routeCandidates = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers routing metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(routeCandidates)
}

// ResetMetrics reinitializes collectors for testing purposes and registers
// them on reg if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	routeCandidates = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
