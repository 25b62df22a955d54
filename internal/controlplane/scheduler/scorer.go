// Package scheduler scores candidate agents for a task and selects the best
// one. Two interchangeable strategies exist: a heuristic compatibility score
// (maximized) and a model-predicted completion time (minimized).
package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/VerteraIO/agentrouter/internal/controlplane/agents"
	"github.com/VerteraIO/agentrouter/internal/controlplane/tasks"
)

type Strategy string

const (
	StrategyHeuristic  Strategy = "heuristic"
	StrategyPredictive Strategy = "predictive"
)

// ParseStrategy maps a config or wire value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyHeuristic:
		return StrategyHeuristic, nil
	case StrategyPredictive:
		return StrategyPredictive, nil
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// Direction says which way a scorer's values improve.
type Direction int

const (
	Maximize Direction = iota
	Minimize
)

// better is strict so that ties keep the incumbent.
func (d Direction) better(candidate, incumbent float64) bool {
	if d == Minimize {
		return candidate < incumbent
	}
	return candidate > incumbent
}

// Result is one candidate's score. Qualified is false only for heuristic
// candidates lacking a required capability.
type Result struct {
	AgentID   string   `json:"agent_id"`
	Strategy  Strategy `json:"strategy"`
	Value     float64  `json:"value"`
	Qualified bool     `json:"qualified"`
}

// Scorer evaluates a single (task, agent) pair. now is supplied by the caller.
type Scorer interface {
	Strategy() Strategy
	Direction() Direction
	Score(task tasks.Task, agent agents.Agent, now time.Time) (Result, error)
}
