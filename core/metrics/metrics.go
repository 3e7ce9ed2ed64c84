package metrics

import (
	"time"

	"github.com/kilianp07/erdispatch/core/factory"
	"github.com/kilianp07/erdispatch/core/model"
)

// Dispatch outcomes.
const (
	OutcomeDispatched = "dispatched"
	OutcomeFailed     = "failed"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusAddr is the listen address of the /metrics endpoint. Empty
	// disables the HTTP server.
	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr"`
}

// DispatchEvent describes the outcome of one emergency handled by the
// orchestrator.
type DispatchEvent struct {
	IncidentID string
	Category   model.Category
	Severity   model.Severity
	VehicleID  string
	Outcome    string
	// Stage names the pipeline stage that failed, empty on success.
	Stage          string
	ETAMinutes     int
	RouteDurationS float64
	RouteDistanceM float64
	Latency        time.Duration
	Time           time.Time
}

// MetricsSink records dispatch events.
type MetricsSink interface {
	RecordDispatch(ev DispatchEvent) error
}

// VehicleStateEvent is a snapshot of a vehicle after a status change.
type VehicleStateEvent struct {
	Vehicle model.Vehicle
	From    model.Status
	Time    time.Time
}

// VehicleStateRecorder records vehicle state snapshots.
type VehicleStateRecorder interface {
	RecordVehicleState(ev VehicleStateEvent) error
}

// SystemStateEvent records the autonomous loop switching state.
type SystemStateEvent struct {
	State string
	Time  time.Time
}

// SystemStateRecorder records loop state changes.
type SystemStateRecorder interface {
	RecordSystemState(ev SystemStateEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDispatch(DispatchEvent) error         { return nil }
func (NopSink) RecordVehicleState(VehicleStateEvent) error { return nil }
func (NopSink) RecordSystemState(SystemStateEvent) error   { return nil }
