package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/erdispatch/core/events"
	coremetrics "github.com/kilianp07/erdispatch/core/metrics"
	"github.com/kilianp07/erdispatch/infra/logger"
	"github.com/kilianp07/erdispatch/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records vehicle state
// changes on sinks implementing VehicleStateRecorder. Loop state is recorded
// by the loop itself. It stops when the context is canceled or the bus is
// closed.
func StartEventCollector(ctx context.Context, bus eventbus.Bus[events.Event], sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	vr, ok := sink.(coremetrics.VehicleStateRecorder)
	if !ok {
		return
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := collect(ev, vr); err != nil {
					log.Warnf("record %s: %v", ev.Type, err)
				}
			}
		}
	}()
}

func collect(ev events.Event, vr coremetrics.VehicleStateRecorder) error {
	p, ok := ev.Payload.(events.VehicleUpdate)
	if !ok {
		return nil
	}
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return vr.RecordVehicleState(coremetrics.VehicleStateEvent{Vehicle: p.Vehicle, From: p.From, Time: ts})
}
