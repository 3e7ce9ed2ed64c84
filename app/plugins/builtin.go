package plugins

import (
	"context"

	"github.com/kilianp07/erdispatch/config"
	"github.com/kilianp07/erdispatch/core/assessment"
	"github.com/kilianp07/erdispatch/core/calllog"
	"github.com/kilianp07/erdispatch/core/events"
	"github.com/kilianp07/erdispatch/core/routing"
	"github.com/kilianp07/erdispatch/infra/llm"
	"github.com/kilianp07/erdispatch/infra/mapbox"
	"github.com/kilianp07/erdispatch/infra/mqtt"
	"github.com/kilianp07/erdispatch/infra/redisq"
)

func init() {
	RegisterRouting(config.RoutingMapbox, func(cfg config.RoutingConfig, store calllog.Store) (routing.Provider, error) {
		return mapbox.New(mapbox.Config{BaseURL: cfg.BaseURL, Token: cfg.Token, Timeout: cfg.Timeout()}, store)
	})
	RegisterRouting(config.RoutingStraight, func(cfg config.RoutingConfig, _ calllog.Store) (routing.Provider, error) {
		return routing.NewStraightLineProvider(cfg.SpeedKmh), nil
	})

	RegisterAssessment("llm", func(ctx context.Context, cfg config.AssessmentConfig, store calllog.Store) (assessment.Provider, error) {
		return llm.New(ctx, llm.Config{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Auth:        cfg.Credentials(),
			Timeout:     cfg.Timeout(),
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
		}, store)
	})

	RegisterForwarder("mqtt", func(_ context.Context, cfg config.EventsConfig) (events.Forwarder, error) {
		if cfg.MQTT.Broker == "" {
			return nil, nil
		}
		return mqtt.NewForwarder(cfg.MQTT)
	})
	RegisterForwarder("redis", func(ctx context.Context, cfg config.EventsConfig) (events.Forwarder, error) {
		if cfg.Redis.Addr == "" {
			return nil, nil
		}
		return redisq.NewForwarder(ctx, cfg.Redis)
	})
}
