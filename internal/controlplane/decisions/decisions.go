package decisions

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/VerteraIO/agentrouter/internal/controlplane/scheduler"
	"github.com/VerteraIO/agentrouter/internal/controlplane/tasks"
)

// DefaultCapacity bounds the store when no capacity is configured.
const DefaultCapacity = 1024

// Exclusion records a candidate dropped before scoring.
type Exclusion struct {
	Index   int    `json:"index"`
	AgentID string `json:"agent_id,omitempty"`
	Reason  string `json:"reason"`
}

// Record is one routing decision as it was made.
type Record struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"createdAt"`
	TaskID    string             `json:"taskId"`
	TaskType  tasks.Type         `json:"taskType"`
	Priority  tasks.Priority     `json:"priority"`
	Strategy  scheduler.Strategy `json:"strategy"`
	Outcome   scheduler.Outcome  `json:"outcome"`
	Reason    string             `json:"reason,omitempty"`
	AgentID   string             `json:"agentId,omitempty"`
	Value     float64            `json:"value"`
	Scores    []scheduler.Result `json:"scores,omitempty"`
	Excluded  []Exclusion        `json:"excluded,omitempty"`
}

// Store keeps the most recent decisions in memory, evicting the oldest once
// capacity is reached.
type Store struct {
	mu       sync.RWMutex
	capacity int
	records  map[string]*Record
	order    []string
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity, records: make(map[string]*Record)}
}

// Add assigns an id to r, stamps it with the current time unless CreatedAt is
// already set, stores it, and returns the stored copy.
func (s *Store) Add(r Record) Record {
	r.ID = uuid.NewString()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.records, oldest)
	}
	s.records[r.ID] = &r
	s.order = append(s.order, r.ID)
	return r
}

func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Len returns the number of retained decisions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
