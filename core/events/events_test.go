package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/erdispatch/core/model"
)

func TestNewEmergencyResponse(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := NewEmergencyResponse(model.DispatchResult{
		Incident:  model.Incident{ID: "inc-1"},
		Vehicle:   model.Vehicle{ID: "AMB-001"},
		Route:     model.RouteCandidate{Duration: 450, Geometry: model.Geometry{Type: "LineString"}},
		Timestamp: ts,
	})
	assert.Equal(t, TypeEmergencyResponse, ev.Type)
	assert.Equal(t, ts, ev.Time)
	p := ev.Payload.(EmergencyResponse)
	assert.Equal(t, 8, p.ETAMinutes)
	assert.Equal(t, "AMB-001", p.VehicleID)

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"NEW_EMERGENCY_RESPONSE"`)
	assert.Contains(t, string(data), `"eta_minutes":8`)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "vehicle_update", TypeVehicleUpdate.Topic())
	assert.Equal(t, "system_status", TypeSystemStatus.Topic())
}

type recordingForwarder struct {
	mu  sync.Mutex
	got []Type
}

func (r *recordingForwarder) Name() string { return "rec" }
func (r *recordingForwarder) Forward(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev.Type)
	if ev.Type == TypeVehicleUpdate {
		return errors.New("broker down")
	}
	return nil
}
func (r *recordingForwarder) Close() error { return nil }

func TestPumpForwardsUntilClosed(t *testing.T) {
	sub := make(chan Event, 3)
	sub <- NewSystemStatus(StateRunning, time.Now())
	sub <- NewVehicleUpdate(model.Vehicle{ID: "A"}, model.StatusAvailable, time.Now())
	sub <- NewSystemStatus(StateStopped, time.Now())
	close(sub)

	f := &recordingForwarder{}
	Pump(context.Background(), sub, f, nil)
	assert.Equal(t, []Type{TypeSystemStatus, TypeVehicleUpdate, TypeSystemStatus}, f.got)
}

func TestPumpStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Pump(ctx, make(chan Event), &recordingForwarder{}, nil)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not stop")
	}
}
