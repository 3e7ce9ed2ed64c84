package plugins

import (
	"context"
	"fmt"
	"sort"

	"github.com/kilianp07/erdispatch/config"
	"github.com/kilianp07/erdispatch/core/assessment"
	"github.com/kilianp07/erdispatch/core/calllog"
	"github.com/kilianp07/erdispatch/core/events"
	"github.com/kilianp07/erdispatch/core/routing"
)

// RoutingFactory builds a routing provider from its configuration section.
type RoutingFactory func(cfg config.RoutingConfig, store calllog.Store) (routing.Provider, error)

// AssessmentFactory builds a severity provider.
type AssessmentFactory func(ctx context.Context, cfg config.AssessmentConfig, store calllog.Store) (assessment.Provider, error)

// ForwarderFactory builds an event forwarder. It returns nil when the
// forwarder is not configured.
type ForwarderFactory func(ctx context.Context, cfg config.EventsConfig) (events.Forwarder, error)

var (
	RoutingProviders    = map[string]RoutingFactory{}
	AssessmentProviders = map[string]AssessmentFactory{}
	Forwarders          = map[string]ForwarderFactory{}
)

func RegisterRouting(name string, f RoutingFactory)       { RoutingProviders[name] = f }
func RegisterAssessment(name string, f AssessmentFactory) { AssessmentProviders[name] = f }
func RegisterForwarder(name string, f ForwarderFactory)   { Forwarders[name] = f }

// NewRoutingProvider builds the provider named by cfg.Provider.
func NewRoutingProvider(cfg config.RoutingConfig, store calllog.Store) (routing.Provider, error) {
	f, ok := RoutingProviders[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown routing provider %q", cfg.Provider)
	}
	return f(cfg, store)
}

// NewForwarders builds every configured forwarder in name order. Forwarders
// created before a failure are closed.
func NewForwarders(ctx context.Context, cfg config.EventsConfig) ([]events.Forwarder, error) {
	names := make([]string, 0, len(Forwarders))
	for n := range Forwarders {
		names = append(names, n)
	}
	sort.Strings(names)
	var out []events.Forwarder
	for _, n := range names {
		f, err := Forwarders[n](ctx, cfg)
		if err != nil {
			for _, prev := range out {
				_ = prev.Close()
			}
			return nil, fmt.Errorf("%s forwarder: %w", n, err)
		}
		if f != nil {
			out = append(out, f)
		}
	}
	return out, nil
}
