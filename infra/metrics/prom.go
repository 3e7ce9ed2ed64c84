package metrics

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/erdispatch/core/metrics"
	"github.com/kilianp07/erdispatch/core/model"
)

// PromSink records dispatch events in Prometheus metrics.
type PromSink struct {
	events  *prometheus.CounterVec
	eta     *prometheus.HistogramVec
	latency *prometheus.HistogramVec
	status  *prometheus.GaugeVec
	system  *prometheus.CounterVec
}

// NewPromSink registers dispatch metrics on the default Prometheus registerer.
// The HTTP endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "emergency_dispatch_events_total",
			Help: "Handled emergencies by category, severity and outcome",
		}, []string{"category", "severity", "outcome"}),
		eta: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "emergency_dispatch_eta_minutes",
			Help:    "Estimated arrival time of dispatched vehicles",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 45, 60},
		}, []string{"category"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "emergency_dispatch_latency_seconds",
			Help:    "Time spent handling one emergency",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleet_vehicle_status",
			Help: "1 when the vehicle is in the labelled status",
		}, []string{"vehicle_id", "status"}),
		system: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "system_state_changes_total",
			Help: "Autonomous loop state transitions",
		}, []string{"state"}),
	}
	var err error
	if s.events, err = register(reg, s.events); err != nil {
		return nil, err
	}
	if s.eta, err = register(reg, s.eta); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, s.latency); err != nil {
		return nil, err
	}
	if s.status, err = register(reg, s.status); err != nil {
		return nil, err
	}
	if s.system, err = register(reg, s.system); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDispatch implements coremetrics.MetricsSink.
func (s *PromSink) RecordDispatch(ev coremetrics.DispatchEvent) error {
	sev := string(ev.Severity)
	if sev == "" {
		sev = "unknown"
	}
	s.events.WithLabelValues(string(ev.Category), sev, ev.Outcome).Inc()
	s.latency.WithLabelValues(ev.Outcome).Observe(ev.Latency.Seconds())
	if ev.Outcome == coremetrics.OutcomeDispatched {
		s.eta.WithLabelValues(string(ev.Category)).Observe(float64(ev.ETAMinutes))
	}
	return nil
}

// RecordVehicleState moves the vehicle gauge to its new status.
func (s *PromSink) RecordVehicleState(ev coremetrics.VehicleStateEvent) error {
	for _, st := range []model.Status{model.StatusAvailable, model.StatusDispatched, model.StatusEnRoute, model.StatusOnScene} {
		v := 0.0
		if st == ev.Vehicle.Status {
			v = 1
		}
		s.status.WithLabelValues(ev.Vehicle.ID, string(st)).Set(v)
	}
	return nil
}

// RecordSystemState counts loop transitions.
func (s *PromSink) RecordSystemState(ev coremetrics.SystemStateEvent) error {
	s.system.WithLabelValues(strings.ToLower(ev.State)).Inc()
	return nil
}
