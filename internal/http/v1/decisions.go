package v1

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/VerteraIO/agentrouter/internal/routing"
)

// getDecision handles GET /decisions/{decisionId}
func getDecision(svc *routing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "decisionId")
		rec, ok := svc.Decisions().Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("decision %s not found", id))
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}
