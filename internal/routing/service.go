// Package routing turns a routing request into a recorded decision. It
// validates the payload, picks the scoring strategy, runs the selection and
// hands winners to the dispatch manager.
package routing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/VerteraIO/agentrouter/internal/controlplane/agents"
	"github.com/VerteraIO/agentrouter/internal/controlplane/decisions"
	"github.com/VerteraIO/agentrouter/internal/controlplane/dispatch"
	"github.com/VerteraIO/agentrouter/internal/controlplane/scheduler"
	"github.com/VerteraIO/agentrouter/internal/logging"
	"github.com/VerteraIO/agentrouter/internal/metrics"
	"github.com/VerteraIO/agentrouter/internal/model"
)

const (
	MessageNoAgents      = "No agents available"
	MessageNoneQualified = "No suitable agent found for the task requirements."
	MessageAllExcluded   = "No valid agent records in the request."
)

// ReasonAllExcluded is reported when agents were supplied but every record
// was excluded before scoring.
const ReasonAllExcluded = "all_excluded"

// Response is the wire form of a routing result. BestAgentID is null when
// no candidate won. Score is set for heuristic decisions and
// PredictedDurationMs for predictive ones.
type Response struct {
	DecisionID          string                `json:"decision_id"`
	Strategy            scheduler.Strategy    `json:"strategy"`
	BestAgentID         *string               `json:"best_agent_id"`
	Score               *float64              `json:"score,omitempty"`
	PredictedDurationMs *float64              `json:"predicted_duration_ms,omitempty"`
	Message             string                `json:"message,omitempty"`
	Reason              string                `json:"reason,omitempty"`
	Excluded            []decisions.Exclusion `json:"excluded,omitempty"`
}

// Options configures a Service. Zero values pick sensible defaults; Bundle
// may be nil, in which case predictive requests fail with
// ErrModelUnavailable.
type Options struct {
	Strategy  scheduler.Strategy
	Bundle    *model.Bundle
	Decisions *decisions.Store
	Dispatch  *dispatch.Manager
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Now       func() time.Time
}

type Service struct {
	strategy   scheduler.Strategy
	heuristic  scheduler.Scorer
	predictive scheduler.Scorer
	decisions  *decisions.Store
	dispatch   *dispatch.Manager
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
	validate   *validator.Validate
}

// NewService wires a routing service. It fails only when the default
// strategy is predictive and no model bundle is available.
func NewService(opts Options) (*Service, error) {
	s := &Service{
		strategy:  opts.Strategy,
		heuristic: scheduler.HeuristicScorer{},
		decisions: opts.Decisions,
		dispatch:  opts.Dispatch,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
		validate:  newValidator(),
	}
	if s.strategy == "" {
		s.strategy = scheduler.StrategyHeuristic
	}
	parsed, err := scheduler.ParseStrategy(string(s.strategy))
	if err != nil {
		return nil, invalidf("%v", err)
	}
	s.strategy = parsed
	if s.decisions == nil {
		s.decisions = decisions.NewStore(decisions.DefaultCapacity)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.Bundle != nil {
		p, err := scheduler.NewPredictiveScorer(opts.Bundle, scheduler.WithInferenceObserver(s.metrics.ObserveInference))
		if err != nil {
			return nil, classify(err, "")
		}
		s.predictive = p
	}
	s.metrics.SetModelLoaded(s.predictive != nil)
	if s.strategy == scheduler.StrategyPredictive && s.predictive == nil {
		return nil, &Error{Kind: KindModelUnavailable, Message: "default strategy is predictive but no model is loaded", Cause: model.ErrUnavailable}
	}
	return s, nil
}

func (s *Service) DefaultStrategy() scheduler.Strategy { return s.strategy }

// ModelLoaded reports whether predictive scoring is available.
func (s *Service) ModelLoaded() bool { return s.predictive != nil }

func (s *Service) Decisions() *decisions.Store { return s.decisions }

// Dispatch returns the assignment manager, or nil when dispatch is off.
func (s *Service) Dispatch() *dispatch.Manager { return s.dispatch }

// Route validates req, selects an agent and records the decision.
func (s *Service) Route(ctx context.Context, req Request) (Response, error) {
	resp, err := s.route(ctx, req)
	if err != nil {
		kind := KindOf(err)
		s.metrics.ObserveError(string(kind))
		s.logger.WarnContext(ctx, "routing failed", "kind", kind, "error", err)
	}
	return resp, err
}

func (s *Service) route(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, &Error{Kind: KindInternal, Message: "request cancelled", Cause: err}
	}
	if err := s.validate.Struct(req); err != nil {
		return Response{}, invalidf("%s", describe(err))
	}
	task, err := req.Task.toTask()
	if err != nil {
		return Response{}, invalidf("%v", err)
	}

	scorer, err := s.scorer(req.Strategy)
	if err != nil {
		return Response{}, err
	}

	predictive := scorer.Strategy() == scheduler.StrategyPredictive
	candidates, excluded := s.candidates(*req.Agents, predictive)
	if predictive {
		for _, a := range candidates {
			if _, err := a.LiveMetrics(); errors.Is(err, agents.ErrNoMetrics) {
				return Response{}, invalidf("agent '%s' has no live metrics, required by the predictive strategy", a.ID)
			}
		}
	}
	for _, ex := range excluded {
		s.logger.DebugContext(ctx, "candidate excluded", "index", ex.Index, "agent_id", ex.AgentID, "reason", ex.Reason)
	}

	now := s.now()
	d, err := scheduler.Select(task, candidates, scorer, now)
	if err != nil {
		return Response{}, classify(err, "")
	}
	for _, r := range d.Scores {
		s.logger.DebugContext(ctx, "candidate scored", "agent_id", r.AgentID, "strategy", r.Strategy, "value", r.Value, "qualified", r.Qualified)
	}

	reason := string(d.Reason)
	if d.Reason == scheduler.ReasonNoAgents && len(*req.Agents) > 0 {
		reason = ReasonAllExcluded
	}
	rec := s.decisions.Add(decisions.Record{
		CreatedAt: now,
		TaskID:    task.ID,
		TaskType:  task.Type,
		Priority:  task.Priority,
		Strategy:  d.Strategy,
		Outcome:   d.Outcome,
		Reason:    reason,
		AgentID:   d.AgentID,
		Value:     d.Value,
		Scores:    d.Scores,
		Excluded:  excluded,
	})
	s.metrics.ObserveDecision(string(d.Strategy), string(d.Outcome), len(candidates), len(excluded))

	resp := Response{
		DecisionID: rec.ID,
		Strategy:   d.Strategy,
		Excluded:   excluded,
	}
	if !d.HasWinner() {
		resp.Reason = reason
		switch reason {
		case ReasonAllExcluded:
			resp.Message = MessageAllExcluded
		case string(scheduler.ReasonNoAgents):
			resp.Message = MessageNoAgents
		default:
			resp.Message = MessageNoneQualified
		}
		s.logger.InfoContext(ctx, "no agent selected", "decision_id", rec.ID, "task_type", task.Type, "strategy", d.Strategy, "reason", reason)
		return resp, nil
	}

	winner, value := d.AgentID, d.Value
	resp.BestAgentID = &winner
	if d.Strategy == scheduler.StrategyPredictive {
		resp.PredictedDurationMs = &value
	} else {
		resp.Score = &value
	}
	if s.dispatch != nil {
		s.dispatch.Publish(&dispatch.Assignment{
			DecisionID: rec.ID,
			TaskID:     task.ID,
			TaskType:   task.Type,
			Priority:   task.Priority,
			AgentID:    winner,
			AssignedAt: rec.CreatedAt,
		})
	}
	s.logger.InfoContext(ctx, "agent selected", "decision_id", rec.ID, "task_type", task.Type, "strategy", d.Strategy, "agent_id", winner, "value", value, "candidates", len(candidates))
	return resp, nil
}

func (s *Service) scorer(override string) (scheduler.Scorer, error) {
	strategy := s.strategy
	if override != "" {
		parsed, err := scheduler.ParseStrategy(override)
		if err != nil {
			return nil, invalidf("%v", err)
		}
		strategy = parsed
	}
	if strategy == scheduler.StrategyHeuristic {
		return s.heuristic, nil
	}
	if s.predictive == nil {
		return nil, &Error{Kind: KindModelUnavailable, Message: "predictive model is not loaded", Cause: model.ErrUnavailable}
	}
	return s.predictive, nil
}
