package autonomy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/erdispatch/core/dispatch"
	"github.com/kilianp07/erdispatch/core/events"
	"github.com/kilianp07/erdispatch/core/metrics"
	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/internal/eventbus"
)

type fakeHandler struct {
	mu    sync.Mutex
	calls []model.Incident
	fn    func(n int, inc model.Incident) (model.DispatchResult, error)
}

func (f *fakeHandler) HandleEmergency(_ context.Context, inc model.Incident) (model.DispatchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, inc)
	n := len(f.calls)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(n, inc)
	}
	return okResult(inc), nil
}

func (f *fakeHandler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func okResult(inc model.Incident) model.DispatchResult {
	return model.DispatchResult{
		Incident: inc,
		Vehicle:  model.Vehicle{ID: "AMB-001"},
		Route:    model.RouteCandidate{Duration: 300},
	}
}

func incidents(n int) []model.Incident {
	out := make([]model.Incident, n)
	for i := range out {
		out[i] = model.Incident{ID: string(rune('a' + i)), Category: model.CategoryMedical}
	}
	return out
}

func setup(t *testing.T) (*eventbus.TypedBus[events.Event], <-chan events.Event) {
	t.Helper()
	ResetMetrics(prometheus.NewRegistry())
	t.Cleanup(func() { ResetMetrics(nil) })
	bus := eventbus.NewTypedWithBuffer[events.Event](64)
	t.Cleanup(bus.Close)
	return bus, bus.Subscribe()
}

func drain(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestLoopPublishesResponses(t *testing.T) {
	bus, sub := setup(t)
	h := &fakeHandler{}
	src := NewSequenceSource(incidents(3)...)
	l := New(h, src, bus, WithInterval(5*time.Millisecond))

	l.Start(context.Background())
	l.Start(context.Background())
	assert.Equal(t, events.StateRunning, l.State())
	require.Eventually(t, func() bool { return h.count() == 3 }, 2*time.Second, 5*time.Millisecond)
	l.Stop()
	l.Stop()
	assert.Equal(t, events.StateStopped, l.State())

	evs := drain(sub)
	require.Len(t, evs, 5)
	assert.Equal(t, events.TypeSystemStatus, evs[0].Type)
	assert.Equal(t, events.SystemStatus{State: events.StateRunning}, evs[0].Payload)
	for i, ev := range evs[1:4] {
		require.Equal(t, events.TypeEmergencyResponse, ev.Type)
		p := ev.Payload.(events.EmergencyResponse)
		assert.Equal(t, incidents(3)[i].ID, p.Incident.ID)
		assert.Equal(t, 5, p.ETAMinutes)
		assert.Equal(t, "AMB-001", p.VehicleID)
	}
	assert.Equal(t, events.SystemStatus{State: events.StateStopped}, evs[4].Payload)
	assert.Equal(t, 3.0, testutil.ToFloat64(incidentsTotal.WithLabelValues("dispatched")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(pollsTotal), 3.0)
}

func TestLoopSurvivesFailures(t *testing.T) {
	bus, sub := setup(t)
	h := &fakeHandler{fn: func(n int, inc model.Incident) (model.DispatchResult, error) {
		switch n {
		case 1:
			return model.DispatchResult{}, &dispatch.StageError{Stage: dispatch.StageSelect, Err: dispatch.ErrNoSuitableVehicle}
		case 2:
			panic("nil vehicle")
		default:
			return okResult(inc), nil
		}
	}}
	l := New(h, NewSequenceSource(incidents(3)...), bus, WithInterval(time.Millisecond))
	l.Start(context.Background())
	require.Eventually(t, func() bool { return h.count() == 3 }, 2*time.Second, time.Millisecond)
	l.Stop()

	var responses int
	for _, ev := range drain(sub) {
		if ev.Type == events.TypeEmergencyResponse {
			responses++
		}
	}
	assert.Equal(t, 1, responses)
	assert.Equal(t, 1.0, testutil.ToFloat64(incidentsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(incidentsTotal.WithLabelValues("panic")))
}

type errSource struct{ n int32 }

func (e *errSource) Next(context.Context) (*model.Incident, error) {
	atomic.AddInt32(&e.n, 1)
	return nil, errors.New("feed offline")
}

func TestLoopSurvivesSourceErrors(t *testing.T) {
	bus, _ := setup(t)
	src := &errSource{}
	l := New(&fakeHandler{}, src, bus, WithInterval(time.Millisecond))
	l.Start(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&src.n) >= 3 }, 2*time.Second, time.Millisecond)
	l.Stop()
	assert.GreaterOrEqual(t, testutil.ToFloat64(sourceErrors), 3.0)
}

func TestStopWaitsForInFlightDispatch(t *testing.T) {
	bus, sub := setup(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	h := &fakeHandler{fn: func(_ int, inc model.Incident) (model.DispatchResult, error) {
		close(entered)
		<-release
		finished.Store(true)
		return okResult(inc), nil
	}}
	l := New(h, NewSequenceSource(incidents(1)...), bus, WithInterval(time.Hour))
	l.Start(context.Background())
	<-entered

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while a dispatch was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-stopped
	assert.True(t, finished.Load())

	evs := drain(sub)
	require.NotEmpty(t, evs)
	assert.Equal(t, events.SystemStatus{State: events.StateStopped}, evs[len(evs)-1].Payload)
}

func TestLoopStopsOnContextCancel(t *testing.T) {
	bus, sub := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	l := New(&fakeHandler{}, NewSequenceSource(), bus, WithInterval(time.Millisecond))
	l.Start(ctx)
	cancel()
	require.Eventually(t, func() bool { return l.State() == events.StateStopped }, time.Second, time.Millisecond)
	l.Stop()

	var stops int
	for _, ev := range drain(sub) {
		if ev.Payload == (events.SystemStatus{State: events.StateStopped}) {
			stops++
		}
	}
	assert.Equal(t, 1, stops)

	l.Start(context.Background())
	assert.Equal(t, events.StateRunning, l.State())
	l.Stop()
}

type stateSpy struct {
	mu     sync.Mutex
	states []string
}

func (s *stateSpy) RecordSystemState(ev metrics.SystemStateEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, ev.State)
	return nil
}

func TestLoopRecordsState(t *testing.T) {
	spy := &stateSpy{}
	l := New(&fakeHandler{}, NewSequenceSource(), nil, WithInterval(time.Millisecond), WithStateRecorder(spy))
	l.Start(context.Background())
	l.Stop()
	assert.Equal(t, []string{"Running", "Stopped"}, spy.states)
}

type gatedRecorder struct {
	stateSpy
	once     sync.Once
	stopping chan struct{}
	release  chan struct{}
}

func (g *gatedRecorder) RecordSystemState(ev metrics.SystemStateEvent) error {
	_ = g.stateSpy.RecordSystemState(ev)
	if ev.State == string(events.StateStopped) {
		g.once.Do(func() {
			close(g.stopping)
			<-g.release
		})
	}
	return nil
}

func TestRestartDuringCancelledShutdown(t *testing.T) {
	rec := &gatedRecorder{stopping: make(chan struct{}), release: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	l := New(&fakeHandler{}, NewSequenceSource(), nil, WithInterval(time.Millisecond), WithStateRecorder(rec))
	l.Start(ctx)
	cancel()

	select {
	case <-rec.stopping:
	case <-time.After(time.Second):
		t.Fatal("loop did not observe cancellation")
	}
	assert.Equal(t, events.StateStopped, l.State())

	started := make(chan struct{})
	go func() {
		l.Start(context.Background())
		close(started)
	}()
	close(rec.release)
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("Start did not return")
	}
	assert.Equal(t, events.StateRunning, l.State())
	l.Stop()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"Running", "Stopped", "Running", "Stopped"}, rec.states)
}
