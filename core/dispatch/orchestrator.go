// Package dispatch turns an incident into a dispatch decision: it assesses
// the incident, picks the best available vehicle, plans its route and claims
// the vehicle in the fleet registry.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kilianp07/erdispatch/core/logger"
	"github.com/kilianp07/erdispatch/core/metrics"
	"github.com/kilianp07/erdispatch/core/model"
)

// Pipeline stage names, used in errors, metrics and spans.
const (
	StageAssess   = "assess"
	StageSnapshot = "snapshot"
	StageSelect   = "select"
	StageRoute    = "route"
	StageClaim    = "claim"
)

const tracerName = "github.com/kilianp07/erdispatch/core/dispatch"

// Assessor classifies an incident.
type Assessor interface {
	Assess(ctx context.Context, category model.Category, description string) (model.Assessment, error)
}

// Fleet is the part of the registry the orchestrator needs.
type Fleet interface {
	ListAvailable() []model.Vehicle
	Claim(id, incidentID string, loc model.Location) error
	Get(id string) (model.Vehicle, bool)
}

// VehicleSelector picks a vehicle among candidates.
type VehicleSelector interface {
	SelectVehicle(ctx context.Context, candidates []model.Vehicle, incident model.Incident) (model.Vehicle, error)
}

// RoutePlanner plans the route of the selected vehicle.
type RoutePlanner interface {
	OptimalRoute(ctx context.Context, origin, destination model.Location, priority model.Severity) (model.RouteCandidate, error)
}

// StageError reports the pipeline stage that aborted a dispatch.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// Orchestrator runs the dispatch pipeline.
type Orchestrator struct {
	assessor Assessor
	fleet    Fleet
	selector VehicleSelector
	router   RoutePlanner
	sink     metrics.MetricsSink
	log      logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMetricsSink records every dispatch outcome on sink.
func WithMetricsSink(sink metrics.MetricsSink) OrchestratorOption {
	return func(o *Orchestrator) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator wires the pipeline collaborators.
func NewOrchestrator(a Assessor, f Fleet, s VehicleSelector, r RoutePlanner, log logger.Logger, opts ...OrchestratorOption) (*Orchestrator, error) {
	if a == nil || f == nil || s == nil || r == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewOrchestrator")
	}
	o := &Orchestrator{
		assessor: a,
		fleet:    f,
		selector: s,
		router:   r,
		sink:     metrics.NopSink{},
		log:      logger.OrNop(log),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// HandleEmergency runs assess, snapshot, select, route and claim in order.
// The first failing stage aborts the dispatch and is returned as a
// *StageError. The vehicle is only claimed once a route exists.
func (o *Orchestrator) HandleEmergency(ctx context.Context, incident model.Incident) (res model.DispatchResult, err error) {
	start := o.now()
	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	if incident.CreatedAt.IsZero() {
		incident.CreatedAt = start
	}
	ctx, span := o.tracer.Start(ctx, "dispatch.HandleEmergency", trace.WithAttributes(
		attribute.String("incident.id", incident.ID),
		attribute.String("incident.category", string(incident.Category)),
	))
	defer span.End()

	failed := ""
	defer func() {
		o.record(incident, res, failed, time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	fail := func(stage string, cause error) error {
		failed = stage
		return &StageError{Stage: stage, Err: cause}
	}

	var assessment model.Assessment
	if err := o.stage(ctx, StageAssess, func(ctx context.Context) (e error) {
		assessment, e = o.assessor.Assess(ctx, incident.Category, incident.Description)
		return e
	}); err != nil {
		return res, fail(StageAssess, err)
	}
	incident = incident.Assessed(assessment)
	span.SetAttributes(attribute.String("incident.severity", string(incident.Severity)))

	var candidates []model.Vehicle
	if err := o.stage(ctx, StageSnapshot, func(context.Context) error {
		candidates = o.fleet.ListAvailable()
		candidateCount.Observe(float64(len(candidates)))
		return nil
	}); err != nil {
		return res, fail(StageSnapshot, err)
	}

	var vehicle model.Vehicle
	if err := o.stage(ctx, StageSelect, func(ctx context.Context) (e error) {
		vehicle, e = o.selector.SelectVehicle(ctx, candidates, incident)
		return e
	}); err != nil {
		return res, fail(StageSelect, err)
	}

	var route model.RouteCandidate
	if err := o.stage(ctx, StageRoute, func(ctx context.Context) (e error) {
		route, e = o.router.OptimalRoute(ctx, vehicle.Location, incident.Location, incident.Severity)
		return e
	}); err != nil {
		return res, fail(StageRoute, err)
	}

	if err := o.stage(ctx, StageClaim, func(context.Context) error {
		return o.fleet.Claim(vehicle.ID, incident.ID, vehicle.Location)
	}); err != nil {
		return res, fail(StageClaim, err)
	}
	if claimed, ok := o.fleet.Get(vehicle.ID); ok {
		vehicle = claimed
	}

	incident = incident.Annotate("status", "dispatched").Annotate("vehicle_id", vehicle.ID)
	res = model.DispatchResult{
		Incident:  incident,
		Vehicle:   vehicle,
		Route:     route,
		Timestamp: o.now(),
	}
	o.log.Infof("incident %s (%s/%s) dispatched %s, eta %d min",
		incident.ID, incident.Category, incident.Severity, vehicle.ID, res.ETAMinutes())
	return res, nil
}

// stage runs fn inside its own span after checking for cancellation.
func (o *Orchestrator) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := o.tracer.Start(ctx, "dispatch."+name)
	defer span.End()
	begin := time.Now()
	err := fn(ctx)
	stageLatency.WithLabelValues(name).Observe(time.Since(begin).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (o *Orchestrator) record(incident model.Incident, res model.DispatchResult, failedStage string, latency time.Duration, err error) {
	ev := metrics.DispatchEvent{
		IncidentID: incident.ID,
		Category:   incident.Category,
		Severity:   incident.Severity,
		Latency:    latency,
		Time:       o.now(),
	}
	if err != nil {
		ev.Outcome = metrics.OutcomeFailed
		ev.Stage = failedStage
		stageFailures.WithLabelValues(failedStage).Inc()
		o.log.Warnf("incident %s not dispatched: %v", incident.ID, err)
	} else {
		ev.Outcome = metrics.OutcomeDispatched
		ev.Severity = res.Incident.Severity
		ev.VehicleID = res.Vehicle.ID
		ev.ETAMinutes = res.ETAMinutes()
		ev.RouteDurationS = res.Route.Duration
		ev.RouteDistanceM = res.Route.Distance
	}
	dispatchTotal.WithLabelValues(ev.Outcome).Inc()
	if serr := o.sink.RecordDispatch(ev); serr != nil {
		o.log.Errorf("metrics sink error: %v", serr)
	}
}
