package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/erdispatch/core/geo"
	"github.com/kilianp07/erdispatch/core/model"
)

const (
	// AssumedSpeedKmh converts straight-line distance into travel time.
	AssumedSpeedKmh = 60.0
	// MinTravelHours floors the travel time of a vehicle already at the
	// incident so its score stays finite.
	MinTravelHours = 1e-4
)

// ErrNoSuitableVehicle is returned when no candidate scores above zero.
var ErrNoSuitableVehicle = errors.New("no suitable vehicle")

// SeverityWeights scale vehicle scores by incident severity.
var SeverityWeights = map[model.Severity]float64{
	model.SeverityHigh:   1.0,
	model.SeverityMedium: 0.75,
	model.SeverityLow:    0.5,
}

// TravelEstimator estimates the hours needed to drive between two points.
type TravelEstimator interface {
	TravelHours(ctx context.Context, from, to model.Location) (float64, error)
}

// HaversineEstimator drives the great-circle distance at a constant speed.
type HaversineEstimator struct {
	SpeedKmh float64
}

func (h HaversineEstimator) TravelHours(ctx context.Context, from, to model.Location) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	speed := h.SpeedKmh
	if speed <= 0 {
		speed = AssumedSpeedKmh
	}
	return geo.TravelHours(from, to, speed, MinTravelHours), nil
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithEstimator overrides the haversine travel estimator.
func WithEstimator(e TravelEstimator) ScorerOption {
	return func(s *Scorer) {
		if e != nil {
			s.estimator = e
		}
	}
}

// WithConcurrency bounds the parallel travel estimations. Zero means one
// goroutine per candidate.
func WithConcurrency(n int) ScorerOption { return func(s *Scorer) { s.limit = n } }

// Scorer ranks candidate vehicles for an incident.
type Scorer struct {
	estimator TravelEstimator
	limit     int

	mu     sync.RWMutex
	scores map[string]float64
}

// NewScorer returns a Scorer using a 60 km/h haversine estimator.
func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{estimator: HaversineEstimator{SpeedKmh: AssumedSpeedKmh}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scores returns the scores computed by the last SelectVehicle call.
func (s *Scorer) Scores() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.scores))
	for k, v := range s.scores {
		out[k] = v
	}
	return out
}

// ScoreVehicle combines travel time, resources and severity:
// (1/hours) * resourceScore * severityWeight.
func ScoreVehicle(hours float64, v model.Vehicle, incident model.Incident) float64 {
	if hours <= 0 || math.IsInf(hours, 1) || math.IsNaN(hours) {
		return 0
	}
	resource := 0.0
	if incident.Requirements.Meets(v.Capabilities) {
		resource = 1
	}
	return (1 / hours) * resource * SeverityWeights[incident.Severity]
}

// SelectVehicle returns the best scoring candidate. Ties go to the smallest
// vehicle id. Candidates are never mutated.
func (s *Scorer) SelectVehicle(ctx context.Context, candidates []model.Vehicle, incident model.Incident) (model.Vehicle, error) {
	if len(candidates) == 0 {
		s.setScores(nil)
		return model.Vehicle{}, fmt.Errorf("%w: no available vehicles", ErrNoSuitableVehicle)
	}

	hours := make([]float64, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	if s.limit > 0 {
		g.SetLimit(s.limit)
	}
	for i := range candidates {
		g.Go(func() error {
			h, err := s.estimator.TravelHours(gctx, candidates[i].Location, incident.Location)
			if err != nil {
				return fmt.Errorf("estimate %s: %w", candidates[i].ID, err)
			}
			hours[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Vehicle{}, err
	}

	scores := make(map[string]float64, len(candidates))
	order := make([]int, len(candidates))
	for i, v := range candidates {
		scores[v.ID] = ScoreVehicle(hours[i], v, incident)
		order[i] = i
	}
	s.setScores(scores)

	sort.SliceStable(order, func(a, b int) bool {
		va, vb := candidates[order[a]], candidates[order[b]]
		if scores[va.ID] != scores[vb.ID] {
			return scores[va.ID] > scores[vb.ID]
		}
		return va.ID < vb.ID
	})
	best := candidates[order[0]]
	if scores[best.ID] <= 0 {
		return model.Vehicle{}, fmt.Errorf("%w: none of %d vehicles meets %v", ErrNoSuitableVehicle, len(candidates), map[string]int(incident.Requirements))
	}
	return best.Clone(), nil
}

func (s *Scorer) setScores(m map[string]float64) {
	s.mu.Lock()
	s.scores = m
	s.mu.Unlock()
}
