package scheduler

import (
	"math"
	"time"

	"github.com/VerteraIO/agentrouter/internal/controlplane/agents"
	"github.com/VerteraIO/agentrouter/internal/controlplane/tasks"
)

const (
	// CapabilityWeight is earned per required capability.
	CapabilityWeight = 20
	// MaxIdleBonus caps the idle contribution, in seconds of idleness.
	MaxIdleBonus = 100
	// PriorityBonus is added for high and urgent tasks.
	PriorityBonus = 50
	// Unqualified is reported for candidates missing a required capability.
	// Every real score is non-negative.
	Unqualified = -1
)

// HeuristicScorer scores compatibility from capability overlap, idle time and
// task priority. It has no state and needs no model.
type HeuristicScorer struct{}

func (HeuristicScorer) Strategy() Strategy { return StrategyHeuristic }

func (HeuristicScorer) Direction() Direction { return Maximize }

func (HeuristicScorer) Score(task tasks.Task, agent agents.Agent, now time.Time) (Result, error) {
	res := Result{AgentID: agent.ID, Strategy: StrategyHeuristic}
	if !agent.Qualifies(task) {
		res.Value = Unqualified
		return res, nil
	}
	score := float64(task.RequiredCapabilities.Len() * CapabilityWeight)
	score += IdleBonus(agent, now)
	if task.Priority.Elevated() {
		score += PriorityBonus
	}
	res.Value = score
	res.Qualified = true
	return res, nil
}

// IdleBonus is the seconds since the agent's last completion, capped at
// MaxIdleBonus. An agent that never completed a task gets the cap.
func IdleBonus(agent agents.Agent, now time.Time) float64 {
	if !agent.HasCompleted() {
		return MaxIdleBonus
	}
	return math.Min(agent.IdleFor(now).Seconds(), MaxIdleBonus)
}
