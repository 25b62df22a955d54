package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/VerteraIO/agentrouter/internal/controlplane/dispatch"
	"github.com/VerteraIO/agentrouter/internal/routing"
)

type assignmentsResp struct {
	AgentID     string                 `json:"agent_id"`
	Assignments []*dispatch.Assignment `json:"assignments"`
}

// getAssignments handles GET /agents/{agentId}/assignments. Returned
// assignments are removed from the agent's pending queue.
func getAssignments(svc *routing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mgr := svc.Dispatch()
		if mgr == nil {
			writeError(w, http.StatusNotFound, "not_found", "assignment dispatch is disabled")
			return
		}
		agentID := chi.URLParam(r, "agentId")
		items := mgr.DrainPending(agentID)
		if items == nil {
			items = []*dispatch.Assignment{}
		}
		writeJSON(w, http.StatusOK, assignmentsResp{AgentID: agentID, Assignments: items})
	}
}
