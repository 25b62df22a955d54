package dispatch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/VerteraIO/agentrouter/internal/controlplane/tasks"
)

func assignment(agentID, decisionID string) *Assignment {
	return &Assignment{DecisionID: decisionID, TaskID: "task-" + decisionID, AgentID: agentID, AssignedAt: time.Now().UTC()}
}

func TestDispatchSubscribeAndNotify(t *testing.T) {
	m := NewManager(0)
	agent := "agent_1"
	ch, cancel := m.Subscribe(agent)
	defer cancel()

	a := assignment(agent, "d1")
	m.Publish(a)

	select {
	case got := <-ch:
		if got == nil || got.DecisionID != a.DecisionID {
			t.Fatalf("expected assignment %s, got %+v", a.DecisionID, got)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timed out waiting for assignment notification")
	}

	// Delivered live, so nothing should be pending
	if drained := m.DrainPending(agent); len(drained) != 0 {
		t.Fatalf("unexpected pending assignments: %+v", drained)
	}
}

func TestDispatchPendingWithoutSubscriber(t *testing.T) {
	m := NewManager(0)
	m.Publish(assignment("agent_2", "d1"))
	m.Publish(assignment("agent_2", "d2"))
	m.Publish(assignment("agent_3", "d3"))

	drained := m.DrainPending("agent_2")
	if len(drained) != 2 || drained[0].DecisionID != "d1" || drained[1].DecisionID != "d2" {
		t.Fatalf("unexpected first drain result: %+v", drained)
	}
	if again := m.DrainPending("agent_2"); again != nil {
		t.Fatalf("expected empty second drain, got %+v", again)
	}
	if other := m.DrainPending("agent_3"); len(other) != 1 {
		t.Fatalf("expected one pending assignment for agent_3, got %+v", other)
	}
}

func TestDispatchPendingIsBounded(t *testing.T) {
	m := NewManager(2)
	for _, id := range []string{"d1", "d2", "d3"} {
		m.Publish(assignment("agent_1", id))
	}
	drained := m.DrainPending("agent_1")
	if len(drained) != 2 || drained[0].DecisionID != "d2" || drained[1].DecisionID != "d3" {
		t.Fatalf("expected the two newest assignments, got %+v", drained)
	}
}

func TestDispatchUnsubscribeClosesChannel(t *testing.T) {
	m := NewManager(0)
	ch, cancel := m.Subscribe("agent_1")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	m.Publish(assignment("agent_1", "d1"))
	if drained := m.DrainPending("agent_1"); len(drained) != 1 {
		t.Fatalf("expected assignment to be pending after unsubscribe, got %+v", drained)
	}
}

func TestAssignmentJSONWithoutPriority(t *testing.T) {
	b, err := json.Marshal(assignment("agent_1", "d1"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Assignment
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
	if got.DecisionID != "d1" || got.Priority != tasks.PriorityNormal {
		t.Fatalf("unexpected assignment: %+v", got)
	}
}
