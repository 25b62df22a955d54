package scheduler

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/VerteraIO/agentrouter/internal/controlplane/agents"
	"github.com/VerteraIO/agentrouter/internal/controlplane/tasks"
	"github.com/VerteraIO/agentrouter/internal/model"
)

var ErrInvalidPrediction = errors.New("model returned a non-finite prediction")

// PredictiveScorer scores a candidate by the completion time, in
// milliseconds, that the loaded model predicts for it.
type PredictiveScorer struct {
	bundle  *model.Bundle
	observe func(time.Duration)
}

type PredictiveOption func(*PredictiveScorer)

// WithInferenceObserver is called with the duration of every model call.
func WithInferenceObserver(fn func(time.Duration)) PredictiveOption {
	return func(p *PredictiveScorer) { p.observe = fn }
}

// NewPredictiveScorer fails with model.ErrUnavailable when no bundle was loaded.
func NewPredictiveScorer(b *model.Bundle, opts ...PredictiveOption) (*PredictiveScorer, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: no model loaded", model.ErrUnavailable)
	}
	p := &PredictiveScorer{bundle: b}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (*PredictiveScorer) Strategy() Strategy { return StrategyPredictive }

func (*PredictiveScorer) Direction() Direction { return Minimize }

func (p *PredictiveScorer) Score(task tasks.Task, agent agents.Agent, _ time.Time) (Result, error) {
	metrics, err := agent.LiveMetrics()
	if err != nil {
		return Result{}, fmt.Errorf("agent %q: %w", agent.ID, err)
	}
	vec, err := p.bundle.Builder().Build(task, agent, metrics)
	if err != nil {
		return Result{}, fmt.Errorf("agent %q: %w", agent.ID, err)
	}
	start := time.Now()
	pred, err := p.bundle.Regressor().Predict(vec)
	if p.observe != nil {
		p.observe(time.Since(start))
	}
	if err != nil {
		return Result{}, fmt.Errorf("agent %q: predict: %w", agent.ID, err)
	}
	if math.IsNaN(pred) || math.IsInf(pred, 0) {
		return Result{}, fmt.Errorf("agent %q: %w", agent.ID, ErrInvalidPrediction)
	}
	return Result{AgentID: agent.ID, Strategy: StrategyPredictive, Value: pred, Qualified: true}, nil
}
