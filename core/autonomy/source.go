package autonomy

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/erdispatch/core/model"
)

// Defaults of the simulated incident feed.
const (
	DefaultIncidentProbability = 0.2
	DefaultSpreadDegrees       = 0.05
)

// DefaultCenter is the reference point simulated incidents cluster around.
var DefaultCenter = model.Location{Lat: 24.4539, Lon: 54.3773}

// RandomSourceConfig configures a RandomSource.
type RandomSourceConfig struct {
	Seed        int64
	Probability float64
	Center      model.Location
	// Spread is the maximum offset in degrees applied to each coordinate.
	Spread     float64
	Categories []model.Category
}

// RandomSource simulates an emergency feed. Each call to Next yields an
// incident with the configured probability. Given a seed, the sequence of
// incidents is reproducible.
type RandomSource struct {
	mu   sync.Mutex
	cfg  RandomSourceConfig
	rand *rand.Rand
	now  func() time.Time
}

// NewRandomSource applies defaults to zero fields of cfg.
func NewRandomSource(cfg RandomSourceConfig) *RandomSource {
	if cfg.Probability <= 0 {
		cfg.Probability = DefaultIncidentProbability
	}
	if cfg.Probability > 1 {
		cfg.Probability = 1
	}
	if cfg.Center == (model.Location{}) {
		cfg.Center = DefaultCenter
	}
	if cfg.Spread <= 0 {
		cfg.Spread = DefaultSpreadDegrees
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = model.Categories
	}
	return &RandomSource{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
		now:  time.Now,
	}
}

func (s *RandomSource) Next(ctx context.Context) (*model.Incident, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rand.Float64() >= s.cfg.Probability {
		return nil, nil
	}
	return s.generate()
}

// Generate returns a simulated incident unconditionally.
func (s *RandomSource) Generate() (*model.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generate()
}

func (s *RandomSource) generate() (*model.Incident, error) {
	cat := s.cfg.Categories[s.rand.Intn(len(s.cfg.Categories))]
	loc := model.Location{
		Lat: s.cfg.Center.Lat + (s.rand.Float64()*2-1)*s.cfg.Spread,
		Lon: s.cfg.Center.Lon + (s.rand.Float64()*2-1)*s.cfg.Spread,
	}
	id, err := uuid.NewRandomFromReader(s.rand)
	if err != nil {
		return nil, fmt.Errorf("incident id: %w", err)
	}
	return &model.Incident{
		ID:          id.String(),
		Category:    cat,
		Location:    loc,
		Description: fmt.Sprintf("New %s emergency reported", strings.ToLower(string(cat))),
		CreatedAt:   s.now(),
	}, nil
}

// SequenceSource replays a fixed list of incidents, one per call, then
// yields nothing.
type SequenceSource struct {
	mu        sync.Mutex
	incidents []model.Incident
	pos       int
}

func NewSequenceSource(incidents ...model.Incident) *SequenceSource {
	return &SequenceSource{incidents: append([]model.Incident(nil), incidents...)}
}

func (s *SequenceSource) Next(ctx context.Context) (*model.Incident, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.incidents) {
		return nil, nil
	}
	inc := s.incidents[s.pos]
	s.pos++
	return &inc, nil
}

// Remaining reports how many incidents have not been served yet.
func (s *SequenceSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.incidents) - s.pos
}
