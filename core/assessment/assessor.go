// Package assessment classifies incidents into a severity and derives the
// resources they need. A keyword classifier always provides an answer; an
// optional language-model Provider may refine the severity.
package assessment

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/erdispatch/core/logger"
	"github.com/kilianp07/erdispatch/core/model"
)

// DefaultProviderTimeout bounds a single Provider call.
const DefaultProviderTimeout = 3 * time.Second

// Strategy is implemented by every classification strategy.
type Strategy interface {
	Name() string
}

// Request is what a Provider is asked to classify.
type Request struct {
	Category    model.Category `json:"category"`
	Description string         `json:"description"`
}

// Response is the answer of a Provider. Severity must parse with
// model.ParseSeverity to be used.
type Response struct {
	Severity string `json:"severity"`
	Raw      string `json:"raw,omitempty"`
}

// Provider classifies incidents with an external service.
type Provider interface {
	Strategy
	Classify(ctx context.Context, req Request) (Response, error)
}

// Option configures an Assessor.
type Option func(*Assessor)

// WithProvider enables provider refinement.
func WithProvider(p Provider) Option { return func(a *Assessor) { a.provider = p } }

// WithTimeout overrides DefaultProviderTimeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Assessor) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(a *Assessor) { a.log = logger.OrNop(l) } }

// Assessor produces an Assessment for an incident category and description.
type Assessor struct {
	keywords *KeywordClassifier
	provider Provider
	timeout  time.Duration
	log      logger.Logger
}

// New returns an Assessor backed by the default keyword tiers.
func New(opts ...Option) *Assessor {
	a := &Assessor{
		keywords: NewKeywordClassifier(),
		timeout:  DefaultProviderTimeout,
		log:      logger.Nop{},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Assess returns the severity and resource requirements for an incident.
// Provider failures, timeouts and unusable answers fall back to keywords;
// only cancellation of ctx is returned as an error besides an invalid
// category.
func (a *Assessor) Assess(ctx context.Context, category model.Category, description string) (model.Assessment, error) {
	if !category.Valid() {
		return model.Assessment{}, fmt.Errorf("%w: %q", model.ErrInvalidCategory, string(category))
	}
	sev := a.keywords.Classify(description)
	source := a.keywords.Name()

	if a.provider != nil {
		if refined, ok := a.refine(ctx, category, description); ok {
			sev = refined
			source = a.provider.Name()
		}
		if err := ctx.Err(); err != nil {
			return model.Assessment{}, err
		}
	}

	req, err := Requirements(category, sev)
	if err != nil {
		return model.Assessment{}, err
	}
	return model.Assessment{Severity: sev, Requirements: req, Source: source}, nil
}

func (a *Assessor) refine(ctx context.Context, category model.Category, description string) (model.Severity, bool) {
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	resp, err := a.provider.Classify(cctx, Request{Category: category, Description: description})
	if err != nil {
		a.log.Warnf("%s classification failed, using keywords: %v", a.provider.Name(), err)
		return "", false
	}
	sev, err := model.ParseSeverity(resp.Severity)
	if err != nil {
		a.log.Warnf("%s returned unusable severity %q, using keywords", a.provider.Name(), resp.Severity)
		return "", false
	}
	a.log.Debugw("severity refined", map[string]any{"provider": a.provider.Name(), "severity": string(sev)})
	return sev, true
}
