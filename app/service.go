// Package app assembles the dispatch engine from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/erdispatch/app/plugins"
	"github.com/kilianp07/erdispatch/config"
	"github.com/kilianp07/erdispatch/core/assessment"
	"github.com/kilianp07/erdispatch/core/autonomy"
	"github.com/kilianp07/erdispatch/core/calllog"
	"github.com/kilianp07/erdispatch/core/dispatch"
	"github.com/kilianp07/erdispatch/core/events"
	"github.com/kilianp07/erdispatch/core/fleet"
	coremetrics "github.com/kilianp07/erdispatch/core/metrics"
	"github.com/kilianp07/erdispatch/core/model"
	coremqtt "github.com/kilianp07/erdispatch/core/mqtt"
	"github.com/kilianp07/erdispatch/core/routing"
	"github.com/kilianp07/erdispatch/infra/logger"
	"github.com/kilianp07/erdispatch/infra/metrics"
	"github.com/kilianp07/erdispatch/internal/eventbus"
)

// Option customises a Service, mostly for tests.
type Option func(*Service)

// WithIncidentSource replaces the simulated incident feed.
func WithIncidentSource(src autonomy.IncidentSource) Option {
	return func(s *Service) { s.source = src }
}

// WithForwarders replaces the forwarders built from the events section.
func WithForwarders(f ...events.Forwarder) Option {
	return func(s *Service) { s.forwarders = f; s.customForwarders = true }
}

// Service wires the fleet, the dispatch pipeline and the autonomous loop.
type Service struct {
	Fleet        *fleet.Registry
	Assessor     *assessment.Assessor
	Orchestrator *dispatch.Orchestrator
	Loop         *autonomy.Loop
	Bus          *eventbus.TypedBus[events.Event]

	cfg              *config.Config
	sink             coremetrics.MetricsSink
	callLog          calllog.Store
	source           autonomy.IncidentSource
	forwarders       []events.Forwarder
	customForwarders bool
	log              logger.Logger

	closeOnce sync.Once
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{cfg: cfg, log: logger.New("service")}
	for _, o := range opts {
		o(s)
	}

	var err error
	if s.callLog, err = calllog.Open(cfg.CallLog.Options()); err != nil {
		return nil, fmt.Errorf("calllog: %w", err)
	}
	if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		_ = s.callLog.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	s.Bus = eventbus.NewTypedWithBuffer[events.Event](cfg.Events.BufferSize)
	if s.Fleet, err = fleet.NewRegistry(cfg.Fleet.Vehicles...); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("fleet: %w", err)
	}
	s.Fleet.SetObserver(fleet.ObserverFunc(func(v model.Vehicle, from model.Status) {
		s.Bus.Publish(events.NewVehicleUpdate(v, from, time.Now()))
	}))

	if s.Assessor, err = s.newAssessor(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	provider, err := plugins.NewRoutingProvider(cfg.Routing, s.callLog)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("routing: %w", err)
	}
	router := routing.NewOptimizer(provider, logger.New("routing"))

	s.Orchestrator, err = dispatch.NewOrchestrator(s.Assessor, s.Fleet, dispatch.NewScorer(), router,
		logger.New("dispatch"), dispatch.WithMetricsSink(s.sink))
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	if s.source == nil {
		s.source = autonomy.NewRandomSource(autonomy.RandomSourceConfig{
			Seed:        cfg.Loop.Seed,
			Probability: cfg.Loop.IncidentProbability,
			Center:      cfg.Map.Center(),
			Spread:      cfg.Loop.SpreadDegrees,
		})
	}
	loopOpts := []autonomy.Option{
		autonomy.WithInterval(cfg.Loop.Interval()),
		autonomy.WithLogger(logger.New("autonomy")),
	}
	if r, ok := s.sink.(coremetrics.SystemStateRecorder); ok {
		loopOpts = append(loopOpts, autonomy.WithStateRecorder(r))
	}
	s.Loop = autonomy.New(s.Orchestrator, s.source, s.Bus, loopOpts...)

	if !s.customForwarders {
		if s.forwarders, err = plugins.NewForwarders(ctx, cfg.Events); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Service) newAssessor(ctx context.Context) (*assessment.Assessor, error) {
	opts := []assessment.Option{
		assessment.WithLogger(logger.New("assessment")),
		assessment.WithTimeout(s.cfg.Assessment.Timeout()),
	}
	switch {
	case s.cfg.Assessment.Active():
		p, err := plugins.AssessmentProviders["llm"](ctx, s.cfg.Assessment, s.callLog)
		if err != nil {
			return nil, fmt.Errorf("assessment: %w", err)
		}
		opts = append(opts, assessment.WithProvider(p))
	case s.cfg.Assessment.Enabled:
		s.log.Warnf("assessment provider enabled without credentials, using keywords only")
	}
	return assessment.New(opts...), nil
}

// HandleEmergency dispatches a single incident outside the loop.
func (s *Service) HandleEmergency(ctx context.Context, incident model.Incident) (model.DispatchResult, error) {
	res, err := s.Orchestrator.HandleEmergency(ctx, incident)
	if err != nil {
		return res, err
	}
	s.Bus.Publish(events.NewEmergencyResponse(res))
	return res, nil
}

// Command applies a remote control command to the loop.
func (s *Service) Command(ctx context.Context, cmd coremqtt.Command) error {
	switch cmd.Action {
	case coremqtt.ActionStart:
		s.Loop.Start(ctx)
	case coremqtt.ActionStop:
		s.Loop.Stop()
	default:
		return fmt.Errorf("%w: %q", coremqtt.ErrUnknownAction, cmd.Action)
	}
	return nil
}

// Run starts the forwarders, the metrics collector and server, and the loop
// when auto_start is set. It blocks until ctx is cancelled, then stops the
// loop, letting the in-flight dispatch finish, and drains the forwarders.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	loopCtx := context.WithoutCancel(ctx)
	pumpCtx, stopPumps := context.WithCancel(loopCtx)
	defer stopPumps()

	for _, f := range s.forwarders {
		sub := s.Bus.Subscribe()
		wg.Add(1)
		go func(f events.Forwarder) {
			defer wg.Done()
			events.Pump(pumpCtx, sub, f, logger.New("forwarder"))
		}(f)
		if c, ok := f.(interface{ OnCommand(coremqtt.CommandHandler) }); ok {
			c.OnCommand(func(_ context.Context, cmd coremqtt.Command) error { return s.Command(loopCtx, cmd) })
		}
		s.log.Infof("forwarding events to %s", f.Name())
	}
	metrics.StartEventCollector(ctx, s.Bus, s.sink)
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.Loop.AutoStart {
		s.Loop.Start(loopCtx)
	}

	<-ctx.Done()
	s.Loop.Stop()
	// Close ends every subscription, which lets the pumps return once the
	// buffered events are forwarded.
	s.Bus.Close()
	wg.Wait()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		if s.Loop != nil {
			s.Loop.Stop()
		}
		if s.Bus != nil {
			s.Bus.Close()
		}
		for _, f := range s.forwarders {
			if err := f.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", f.Name(), err))
			}
		}
		if c, ok := s.sink.(interface{ Close() }); ok {
			c.Close()
		}
		if s.callLog != nil {
			if err := s.callLog.Close(); err != nil {
				errs = append(errs, fmt.Errorf("calllog: %w", err))
			}
		}
	})
	return errors.Join(errs...)
}
