package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/erdispatch/core/model"
)

type mockProvider struct{ mock.Mock }

func (m *mockProvider) Name() string { return "mock-llm" }

func (m *mockProvider) Classify(ctx context.Context, req Request) (Response, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(Response), args.Error(1)
}

func TestKeywordTiers(t *testing.T) {
	k := NewKeywordClassifier()
	cases := map[string]model.Severity{
		"Multiple casualties, life-threatening injuries": model.SeverityHigh,
		"CATASTROPHIC collapse":                          model.SeverityHigh,
		"urgent help needed":                             model.SeverityMedium,
		"serious but minor":                              model.SeverityMedium,
		"a small-scale, contained fire.":                 model.SeverityLow,
		"cat stuck in tree":                              model.SeverityLow,
		"":                                               model.SeverityLow,
		"severely delayed":                               model.SeverityLow,
	}
	for desc, want := range cases {
		assert.Equal(t, want, k.Classify(desc), desc)
	}
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"life-threatening", "injuries"}, Words("  Life-threatening, injuries!"))
	assert.Empty(t, Words(" ... "))
}

func TestResourceMatrixTotal(t *testing.T) {
	for _, c := range model.Categories {
		for _, s := range model.Severities {
			req, err := Requirements(c, s)
			require.NoError(t, err, "%s/%s", c, s)
			assert.NotEmpty(t, req)
		}
	}
	_, err := Requirements("Flood", model.SeverityLow)
	assert.True(t, errors.Is(err, model.ErrInvalidCategory))
}

func TestRequirementsReturnsCopy(t *testing.T) {
	req, err := Requirements(model.CategoryFire, model.SeverityLow)
	require.NoError(t, err)
	req["fireTrucks"] = 100
	again, _ := Requirements(model.CategoryFire, model.SeverityLow)
	assert.Equal(t, 1, again["fireTrucks"])
}

func TestAssessMedicalHigh(t *testing.T) {
	a := New()
	got, err := a.Assess(context.Background(), model.CategoryMedical, "Multiple casualties, life-threatening injuries")
	require.NoError(t, err)
	assert.Equal(t, model.SeverityHigh, got.Severity)
	assert.Equal(t, model.ResourceRequirement{"ambulances": 4, "paramedics": 8, "helicopter": 1}, got.Requirements)
	assert.Equal(t, "keyword", got.Source)
}

func TestAssessInvalidCategorySkipsProvider(t *testing.T) {
	p := &mockProvider{}
	a := New(WithProvider(p))
	_, err := a.Assess(context.Background(), "Flood", "severe")
	assert.True(t, errors.Is(err, model.ErrInvalidCategory))
	p.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
}

func TestAssessProviderRefines(t *testing.T) {
	p := &mockProvider{}
	p.On("Classify", mock.Anything, Request{Category: model.CategoryFire, Description: "smoke seen"}).
		Return(Response{Severity: "medium"}, nil).Once()
	a := New(WithProvider(p))
	got, err := a.Assess(context.Background(), model.CategoryFire, "smoke seen")
	require.NoError(t, err)
	assert.Equal(t, model.SeverityMedium, got.Severity)
	assert.Equal(t, model.ResourceRequirement{"fireTrucks": 3, "firefighters": 12}, got.Requirements)
	assert.Equal(t, "mock-llm", got.Source)
	p.AssertExpectations(t)
}

func TestAssessProviderFallback(t *testing.T) {
	cases := map[string]func(p *mockProvider){
		"error": func(p *mockProvider) {
			p.On("Classify", mock.Anything, mock.Anything).Return(Response{}, errors.New("503"))
		},
		"garbage": func(p *mockProvider) {
			p.On("Classify", mock.Anything, mock.Anything).Return(Response{Severity: "apocalyptic"}, nil)
		},
		"timeout": func(p *mockProvider) {
			p.On("Classify", mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
				Return(Response{}, context.DeadlineExceeded)
		},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			p := &mockProvider{}
			setup(p)
			a := New(WithProvider(p), WithTimeout(20*time.Millisecond))
			got, err := a.Assess(context.Background(), model.CategoryPolice, "urgent robbery")
			require.NoError(t, err)
			assert.Equal(t, model.SeverityMedium, got.Severity)
			assert.Equal(t, "keyword", got.Source)
			assert.Equal(t, model.ResourceRequirement{"policeCars": 4, "officers": 8}, got.Requirements)
		})
	}
}

func TestAssessCancelled(t *testing.T) {
	p := &mockProvider{}
	p.On("Classify", mock.Anything, mock.Anything).Return(Response{}, context.Canceled)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(WithProvider(p)).Assess(ctx, model.CategoryMedical, "minor cut")
	assert.True(t, errors.Is(err, context.Canceled))
}
