package dispatch

import (
	"sync"
	"time"

	"github.com/VerteraIO/agentrouter/internal/controlplane/tasks"
)

// DefaultMaxPending bounds each agent's pending queue when unset.
const DefaultMaxPending = 64

// Assignment tells an agent it won a routing decision for a task.
type Assignment struct {
	DecisionID string         `json:"decision_id"`
	TaskID     string         `json:"task_id"`
	TaskType   tasks.Type     `json:"task_type"`
	Priority   tasks.Priority `json:"priority"`
	AgentID    string         `json:"agent_id"`
	AssignedAt time.Time      `json:"assigned_at"`
}

// Manager keeps per-agent pending assignments and subscribers to stream them.
type Manager struct {
	mu         sync.Mutex
	maxPending int
	pending    map[string][]*Assignment                 // agentID -> pending assignments
	subs       map[string]map[chan *Assignment]struct{} // agentID -> subscribers
}

func NewManager(maxPending int) *Manager {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Manager{
		maxPending: maxPending,
		pending:    make(map[string][]*Assignment),
		subs:       make(map[string]map[chan *Assignment]struct{}),
	}
}

// Publish delivers a to live subscribers of its agent. If the agent has no
// subscriber able to take it right away it is queued as pending, dropping
// the oldest pending assignment when the queue is full.
func (m *Manager) Publish(a *Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delivered := false
	for ch := range m.subs[a.AgentID] {
		select {
		case ch <- a:
			delivered = true
		default:
			// slow subscriber; fall through to pending if nobody took it
		}
	}
	if delivered {
		return
	}
	q := append(m.pending[a.AgentID], a)
	if len(q) > m.maxPending {
		q = q[len(q)-m.maxPending:]
	}
	m.pending[a.AgentID] = q
}

// DrainPending returns and clears all pending assignments for an agent.
func (m *Manager) DrainPending(agentID string) []*Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.pending[agentID]
	if len(s) == 0 {
		return nil
	}
	out := make([]*Assignment, len(s))
	copy(out, s)
	delete(m.pending, agentID)
	return out
}

// Subscribe creates a channel subscription for an agent's assignments.
// Caller must call the returned cancel func.
func (m *Manager) Subscribe(agentID string) (<-chan *Assignment, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *Assignment, 8)
	if m.subs[agentID] == nil {
		m.subs[agentID] = make(map[chan *Assignment]struct{})
	}
	m.subs[agentID][ch] = struct{}{}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if subs := m.subs[agentID]; subs != nil {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(m.subs, agentID)
				}
			}
		})
	}
}
