package agents

import (
	"errors"
	"fmt"
	"time"

	"github.com/VerteraIO/agentrouter/internal/controlplane/tasks"
)

// Load bounds. 0 = idle, 3 = very busy.
const (
	MinLoad = 0
	MaxLoad = 3
)

// LiveMetrics are agent signals that cannot be derived from the task or the
// agent's static record. Callers supply them per request.
type LiveMetrics struct {
	CurrentLoad int     `json:"currentLoad"`
	SuccessRate float64 `json:"successRate"`
}

// Validate checks the load bounds and that the success rate lies in (0, 1].
func (m LiveMetrics) Validate() error {
	if m.CurrentLoad < MinLoad || m.CurrentLoad > MaxLoad {
		return fmt.Errorf("current load %d outside [%d, %d]", m.CurrentLoad, MinLoad, MaxLoad)
	}
	if !(m.SuccessRate > 0 && m.SuccessRate <= 1) {
		return fmt.Errorf("success rate %v outside (0, 1]", m.SuccessRate)
	}
	return nil
}

// Agent is a candidate worker.
type Agent struct {
	ID           string              `json:"id"`
	Capabilities tasks.CapabilitySet `json:"capabilities"`
	// LastTaskCompletedAt is zero when the agent has never completed a task.
	LastTaskCompletedAt time.Time    `json:"lastTaskCompletedAt,omitzero"`
	Metrics             *LiveMetrics `json:"metrics,omitempty"`
}

var ErrNoMetrics = errors.New("agent has no live metrics")

// HasCompleted reports whether the agent has ever completed a task.
func (a Agent) HasCompleted() bool { return !a.LastTaskCompletedAt.IsZero() }

// IdleFor returns the time since the last completion, never negative.
// It is meaningless when HasCompleted is false.
func (a Agent) IdleFor(now time.Time) time.Duration {
	d := now.Sub(a.LastTaskCompletedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Qualifies reports whether the agent holds every capability the task requires.
func (a Agent) Qualifies(t tasks.Task) bool {
	return t.RequiredCapabilities.SubsetOf(a.Capabilities)
}

// LiveMetrics returns the agent's metrics or ErrNoMetrics.
func (a Agent) LiveMetrics() (LiveMetrics, error) {
	if a.Metrics == nil {
		return LiveMetrics{}, ErrNoMetrics
	}
	return *a.Metrics, nil
}
