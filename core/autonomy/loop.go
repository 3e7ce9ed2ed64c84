// Package autonomy runs the dispatch pipeline unattended: it polls an
// incident source on a fixed interval, hands every incident to the
// orchestrator and publishes the outcome.
package autonomy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kilianp07/erdispatch/core/dispatch"
	"github.com/kilianp07/erdispatch/core/events"
	"github.com/kilianp07/erdispatch/core/logger"
	"github.com/kilianp07/erdispatch/core/metrics"
	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/monitoring"
)

// DefaultInterval is the pause between two polls.
const DefaultInterval = 5 * time.Second

// Handler dispatches one incident.
type Handler interface {
	HandleEmergency(ctx context.Context, incident model.Incident) (model.DispatchResult, error)
}

// IncidentSource yields the next incident, or nil when there is none.
type IncidentSource interface {
	Next(ctx context.Context) (*model.Incident, error)
}

// Option configures a Loop.
type Option func(*Loop)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option { return func(l *Loop) { l.log = logger.OrNop(log) } }

// WithStateRecorder records loop state changes, typically a metrics sink.
func WithStateRecorder(r metrics.SystemStateRecorder) Option {
	return func(l *Loop) { l.recorder = r }
}

// Loop is the autonomous control loop.
type Loop struct {
	handler  Handler
	source   IncidentSource
	pub      events.Publisher
	interval time.Duration
	log      logger.Logger
	recorder metrics.SystemStateRecorder
	now      func() time.Time

	ctl   sync.Mutex // serialises Start and Stop
	mu    sync.Mutex
	state events.SystemState
	stop  chan struct{}
	done  chan struct{}
}

// New returns a stopped loop.
func New(h Handler, src IncidentSource, pub events.Publisher, opts ...Option) *Loop {
	l := &Loop{
		handler:  h,
		source:   src,
		pub:      pub,
		interval: DefaultInterval,
		log:      logger.Nop{},
		now:      time.Now,
		state:    events.StateStopped,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// State reports whether the loop is running.
func (l *Loop) State() events.SystemState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start launches the loop in the background. Calling Start on a running loop
// does nothing. ctx is handed to every dispatch: cancelling it ends the loop
// and aborts the in-flight dispatch, so callers wanting a cooperative
// shutdown pass a context that is never cancelled and call Stop.
func (l *Loop) Start(ctx context.Context) {
	l.ctl.Lock()
	defer l.ctl.Unlock()
	l.mu.Lock()
	if l.state == events.StateRunning {
		l.mu.Unlock()
		return
	}
	prev := l.done
	l.mu.Unlock()
	if prev != nil {
		<-prev
	}

	l.mu.Lock()
	l.state = events.StateRunning
	stop, done := make(chan struct{}), make(chan struct{})
	l.stop, l.done = stop, done
	l.mu.Unlock()

	running.Set(1)
	l.announce(events.StateRunning)
	l.log.Infof("autonomous loop started, polling every %s", l.interval)
	go l.run(ctx, stop, done)
}

// Stop halts polling and waits for the in-flight dispatch to complete.
// Stopping a stopped loop only waits for its goroutine to exit.
func (l *Loop) Stop() {
	l.ctl.Lock()
	defer l.ctl.Unlock()
	l.mu.Lock()
	stop, done := l.stop, l.done
	l.stop = nil
	l.mu.Unlock()
	if stop == nil {
		// already stopped, or ctx ended: wait for the goroutine to exit
		if done != nil {
			<-done
		}
		return
	}
	close(stop)
	<-done
	l.stopped()
}

func (l *Loop) stopped() {
	l.mu.Lock()
	if l.state == events.StateStopped {
		l.mu.Unlock()
		return
	}
	l.state = events.StateStopped
	l.mu.Unlock()
	l.announceStopped()
}

func (l *Loop) announceStopped() {
	running.Set(0)
	l.announce(events.StateStopped)
	l.log.Infof("autonomous loop stopped")
}

func (l *Loop) announce(s events.SystemState) {
	now := l.now()
	if l.pub != nil {
		l.pub.Publish(events.NewSystemStatus(s, now))
	}
	if l.recorder != nil {
		if err := l.recorder.RecordSystemState(metrics.SystemStateEvent{State: string(s), Time: now}); err != nil {
			l.log.Errorf("record system state: %v", err)
		}
	}
}

func (l *Loop) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			l.cancelled(stop)
			return
		default:
		}
		l.poll(ctx)

		timer := time.NewTimer(l.interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			l.cancelled(stop)
			return
		case <-timer.C:
		}
	}
}

// cancelled marks the loop stopped when ctx ends before Stop is called.
func (l *Loop) cancelled(stop <-chan struct{}) {
	l.mu.Lock()
	own := l.stop != nil && (<-chan struct{})(l.stop) == stop
	if own {
		l.stop = nil
		l.state = events.StateStopped
	}
	l.mu.Unlock()
	if own {
		l.announceStopped()
	}
}

// poll handles at most one incident. Failures are logged and reported but
// never stop the loop.
func (l *Loop) poll(ctx context.Context) {
	pollsTotal.Inc()
	inc, err := l.source.Next(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			sourceErrors.Inc()
			l.log.Warnf("incident source: %v", err)
		}
		return
	}
	if inc == nil {
		return
	}
	l.handle(ctx, *inc)
}

func (l *Loop) handle(ctx context.Context, inc model.Incident) {
	defer func() {
		if r := recover(); r != nil {
			incidentsTotal.WithLabelValues("panic").Inc()
			monitoring.CapturePanic(r, map[string]string{"component": "autonomy", "incident": inc.ID})
			l.log.Errorf("dispatch of incident %s panicked: %v", inc.ID, r)
		}
	}()
	res, err := l.handler.HandleEmergency(ctx, inc)
	if err != nil {
		incidentsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		tags := map[string]string{"component": "autonomy", "incident": inc.ID}
		var se *dispatch.StageError
		if errors.As(err, &se) {
			tags["stage"] = se.Stage
		}
		if !errors.Is(err, dispatch.ErrNoSuitableVehicle) {
			monitoring.CaptureException(err, tags)
		}
		l.log.Errorf("error handling emergency %s: %v", inc.ID, err)
		return
	}
	incidentsTotal.WithLabelValues(metrics.OutcomeDispatched).Inc()
	if l.pub != nil {
		l.pub.Publish(events.NewEmergencyResponse(res))
	}
}
