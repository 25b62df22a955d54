package decisions

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/VerteraIO/agentrouter/internal/controlplane/scheduler"
	"github.com/VerteraIO/agentrouter/internal/controlplane/tasks"
)

func TestAddAndGet(t *testing.T) {
	s := NewStore(4)
	r := s.Add(Record{
		TaskID:   "task-1",
		TaskType: tasks.TypeTextProcessing,
		Priority: tasks.PriorityHigh,
		Strategy: scheduler.StrategyHeuristic,
		Outcome:  scheduler.OutcomeWinner,
		AgentID:  "agent_1",
		Value:    170,
	})
	if r.ID == "" {
		t.Fatalf("expected decision ID to be set")
	}
	if r.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be set")
	}
	got, ok := s.Get(r.ID)
	if !ok {
		t.Fatalf("decision %s not found", r.ID)
	}
	if got.AgentID != "agent_1" || got.Value != 170 {
		t.Fatalf("unexpected record: %+v", got)
	}
	b, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["priority"] != "high" {
		t.Fatalf("unexpected priority encoding: %v", decoded["priority"])
	}
}

func TestAddKeepsCallerTimestamp(t *testing.T) {
	s := NewStore(2)
	at := time.UnixMilli(1_760_000_000_000)
	r := s.Add(Record{TaskID: "1", CreatedAt: at})
	if !r.CreatedAt.Equal(at) {
		t.Fatalf("CreatedAt = %v, want %v", r.CreatedAt, at)
	}
	if r.CreatedAt.Location() != time.UTC {
		t.Fatalf("CreatedAt not normalised to UTC: %v", r.CreatedAt.Location())
	}
}

func TestEvictsOldest(t *testing.T) {
	s := NewStore(2)
	first := s.Add(Record{TaskID: "1"})
	second := s.Add(Record{TaskID: "2"})
	third := s.Add(Record{TaskID: "3"})

	if s.Len() != 2 {
		t.Fatalf("expected 2 retained decisions, got %d", s.Len())
	}
	if _, ok := s.Get(first.ID); ok {
		t.Fatalf("oldest decision should have been evicted")
	}
	for _, r := range []Record{second, third} {
		if _, ok := s.Get(r.ID); !ok {
			t.Fatalf("decision %s missing", r.TaskID)
		}
	}
}

func TestDefaultCapacity(t *testing.T) {
	if NewStore(0).capacity != DefaultCapacity {
		t.Fatalf("expected default capacity")
	}
}
