package autonomy

import "github.com/prometheus/client_golang/prometheus"

var (
	pollsTotal     prometheus.Counter
	incidentsTotal *prometheus.CounterVec
	sourceErrors   prometheus.Counter
	running        prometheus.Gauge
)

func newCollectors() (prometheus.Counter, *prometheus.CounterVec, prometheus.Counter, prometheus.Gauge) {
	polls := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autonomy_polls_total",
		Help: "Number of incident source polls",
	})
	incidents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autonomy_incidents_total",
		Help: "Incidents handled by the autonomous loop by outcome",
	}, []string{"outcome"})
	srcErr := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autonomy_source_errors_total",
		Help: "Errors returned by the incident source",
	})
	run := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "autonomy_running",
		Help: "1 while the autonomous loop is running",
	})
	return polls, incidents, srcErr, run
}

func init() {
	pollsTotal, incidentsTotal, sourceErrors, running = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers loop metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(pollsTotal, incidentsTotal, sourceErrors, running)
}

// ResetMetrics reinitializes collectors for testing purposes and registers
// them on reg if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	pollsTotal, incidentsTotal, sourceErrors, running = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
