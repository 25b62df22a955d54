package scheduler

import (
	"time"

	"github.com/VerteraIO/agentrouter/internal/controlplane/agents"
	"github.com/VerteraIO/agentrouter/internal/controlplane/tasks"
)

type Outcome string

const (
	OutcomeWinner      Outcome = "winner"
	OutcomeNoCandidate Outcome = "no_candidate"
)

// Reason distinguishes the two ways of ending with no candidate.
type Reason string

const (
	ReasonNoAgents      Reason = "no_agents"
	ReasonNoneQualified Reason = "none_qualified"
)

// Decision is the result of one selection. AgentID and Value are set only for
// OutcomeWinner; Reason only for OutcomeNoCandidate.
type Decision struct {
	Outcome  Outcome  `json:"outcome"`
	Reason   Reason   `json:"reason,omitempty"`
	Strategy Strategy `json:"strategy"`
	AgentID  string   `json:"agent_id,omitempty"`
	Value    float64  `json:"value"`
	Scores   []Result `json:"scores,omitempty"`
}

func (d Decision) HasWinner() bool { return d.Outcome == OutcomeWinner }

// Select scores every candidate once, in order, and keeps the best under the
// scorer's direction. Comparisons are strict, so the first of equal
// candidates wins. Any scorer error aborts the selection.
func Select(task tasks.Task, candidates []agents.Agent, scorer Scorer, now time.Time) (Decision, error) {
	d := Decision{Strategy: scorer.Strategy()}
	if len(candidates) == 0 {
		d.Outcome, d.Reason = OutcomeNoCandidate, ReasonNoAgents
		return d, nil
	}

	dir := scorer.Direction()
	best := -1
	d.Scores = make([]Result, 0, len(candidates))
	for _, agent := range candidates {
		res, err := scorer.Score(task, agent, now)
		if err != nil {
			return Decision{}, err
		}
		d.Scores = append(d.Scores, res)
		if !res.Qualified {
			continue
		}
		if best < 0 || dir.better(res.Value, d.Scores[best].Value) {
			best = len(d.Scores) - 1
		}
	}

	if best < 0 {
		d.Outcome, d.Reason = OutcomeNoCandidate, ReasonNoneQualified
		return d, nil
	}
	d.Outcome = OutcomeWinner
	d.AgentID = d.Scores[best].AgentID
	d.Value = d.Scores[best].Value
	return d, nil
}
