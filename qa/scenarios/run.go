package scenarios

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/erdispatch/core/assessment"
	"github.com/kilianp07/erdispatch/core/dispatch"
	"github.com/kilianp07/erdispatch/core/fleet"
	coremetrics "github.com/kilianp07/erdispatch/core/metrics"
	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/routing"
	"github.com/kilianp07/erdispatch/infra/logger"
	"github.com/kilianp07/erdispatch/infra/metrics"
)

func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	vehicles := make([]model.Vehicle, len(sc.Vehicles))
	for i, v := range sc.Vehicles {
		vehicles[i] = v.ToModel()
	}
	registry, err := fleet.NewRegistry(vehicles...)
	if err != nil {
		t.Fatalf("fleet: %v", err)
	}
	orch, err := dispatch.NewOrchestrator(
		assessment.New(),
		registry,
		dispatch.NewScorer(),
		routing.NewOptimizer(routing.NewStraightLineProvider(0), logger.NopLogger{}),
		logger.NopLogger{},
		dispatch.WithMetricsSink(sink),
	)
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}

	ctx := context.Background()
	for i, def := range sc.Incidents {
		for vid, before := range sc.ReleaseBefore {
			if before == i {
				if err := complete(registry, vid); err != nil {
					t.Fatalf("release %s: %v", vid, err)
				}
			}
		}
		incident, err := def.ToModel(fmt.Sprintf("%s-%d", sc.Name, i))
		if err != nil {
			t.Fatalf("incident %d: %v", i, err)
		}
		res, err := orch.HandleEmergency(ctx, incident)
		want := sc.Expected.Vehicles[i]
		switch {
		case want == "" && !errors.Is(err, dispatch.ErrNoSuitableVehicle):
			t.Errorf("incident %d: expected no suitable vehicle, got %v (%s)", i, err, res.Vehicle.ID)
		case want != "" && err != nil:
			t.Errorf("incident %d: expected %s, got error %v", i, want, err)
		case want != "" && res.Vehicle.ID != want:
			t.Errorf("incident %d: expected %s, got %s", i, want, res.Vehicle.ID)
		}
	}

	if got := dispatchedCount(t, reg); got != sc.Expected.Dispatched() {
		t.Errorf("scenario %s expected %d dispatched, got %d", sc.Name, sc.Expected.Dispatched(), got)
	}
}

// complete walks the vehicle through the rest of its mission back to
// Available at its current location.
func complete(reg *fleet.Registry, id string) error {
	for {
		v, ok := reg.Get(id)
		if !ok {
			return fmt.Errorf("unknown vehicle %s", id)
		}
		if v.Status == model.StatusAvailable {
			return nil
		}
		if err := reg.Transition(id, v.Status.Next(), v.Location); err != nil {
			return err
		}
	}
}

func dispatchedCount(t *testing.T, reg *prometheus.Registry) int {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	total := 0.0
	for _, mf := range mfs {
		if mf.GetName() != "emergency_dispatch_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == coremetrics.OutcomeDispatched {
					total += m.GetCounter().GetValue()
				}
			}
		}
	}
	return int(total)
}
