// Package routing selects the route a dispatched vehicle should drive. The
// candidates come from a Provider; the optimizer weighs duration against
// distance depending on the incident priority.
package routing

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/erdispatch/core/logger"
	"github.com/kilianp07/erdispatch/core/model"
)

// ErrRoutingUnavailable is returned when no route could be obtained.
var ErrRoutingUnavailable = errors.New("routing unavailable")

// Request describes a directions query.
type Request struct {
	Origin       model.Location `json:"origin"`
	Destination  model.Location `json:"destination"`
	Priority     model.Severity `json:"priority"`
	LiveTraffic  bool           `json:"live_traffic"`
	Alternatives bool           `json:"alternatives"`
}

// Provider returns candidate routes for a request.
type Provider interface {
	Name() string
	Routes(ctx context.Context, req Request) ([]model.RouteCandidate, error)
}

// Weights balance route duration (seconds) against distance (meters).
type Weights struct {
	Duration float64
	Distance float64
}

func (w Weights) vector() []float64 { return []float64{w.Duration, w.Distance} }

// DefaultWeights favour speed for severe incidents and distance otherwise.
var DefaultWeights = map[model.Severity]Weights{
	model.SeverityHigh:   {Duration: 1, Distance: 0},
	model.SeverityMedium: {Duration: 0.7, Distance: 0.3},
	model.SeverityLow:    {Duration: 0.4, Distance: 0.6},
}

// WeightsFor returns the weights of priority p.
func WeightsFor(p model.Severity) (Weights, error) {
	w, ok := DefaultWeights[p]
	if !ok {
		return Weights{}, fmt.Errorf("unknown priority %q", p)
	}
	return w, nil
}

// Score computes the weighted cost of a candidate; lower is better.
func Score(c model.RouteCandidate, w Weights) float64 {
	return floats.Dot([]float64{c.Duration, c.Distance}, w.vector())
}

// Optimizer picks the lowest scoring candidate from its Provider.
type Optimizer struct {
	provider Provider
	log      logger.Logger
}

// NewOptimizer returns an optimizer querying p.
func NewOptimizer(p Provider, log logger.Logger) *Optimizer {
	return &Optimizer{provider: p, log: logger.OrNop(log)}
}

// OptimalRoute returns the best route from origin to destination. Live
// traffic is requested for High priority incidents. The first candidate wins
// among equal scores.
func (o *Optimizer) OptimalRoute(ctx context.Context, origin, destination model.Location, priority model.Severity) (model.RouteCandidate, error) {
	w, err := WeightsFor(priority)
	if err != nil {
		return model.RouteCandidate{}, err
	}
	if o.provider == nil {
		return model.RouteCandidate{}, fmt.Errorf("%w: no provider configured", ErrRoutingUnavailable)
	}
	req := Request{
		Origin:       origin,
		Destination:  destination,
		Priority:     priority,
		LiveTraffic:  priority == model.SeverityHigh,
		Alternatives: true,
	}
	candidates, err := o.provider.Routes(ctx, req)
	if err != nil {
		return model.RouteCandidate{}, fmt.Errorf("%w: %s: %w", ErrRoutingUnavailable, o.provider.Name(), err)
	}
	if len(candidates) == 0 {
		return model.RouteCandidate{}, fmt.Errorf("%w: %s returned no routes", ErrRoutingUnavailable, o.provider.Name())
	}
	routeCandidates.Observe(float64(len(candidates)))

	best := -1
	for i := range candidates {
		candidates[i].Score = Score(candidates[i], w)
		if best < 0 || candidates[i].Score < candidates[best].Score {
			best = i
		}
	}
	o.log.Debugw("route selected", map[string]any{
		"provider":   o.provider.Name(),
		"priority":   string(priority),
		"candidates": len(candidates),
		"duration_s": candidates[best].Duration,
		"distance_m": candidates[best].Distance,
		"score":      candidates[best].Score,
	})
	return candidates[best], nil
}
