package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/VerteraIO/agentrouter/internal/routing"
)

// maxRouteBody caps a routing request body.
const maxRouteBody = 1 << 20

// RouteHandler handles POST /route. It is exported so the legacy
// unversioned path can share it.
func RouteHandler(svc *routing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req routing.Request
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRouteBody))
		if err := dec.Decode(&req); err != nil {
			msg := fmt.Sprintf("invalid request body: %v", err)
			if errors.Is(err, io.EOF) {
				msg = "request body is empty"
			}
			writeError(w, http.StatusBadRequest, string(routing.KindInvalidRequest), msg)
			return
		}
		resp, err := svc.Route(r.Context(), req)
		if err != nil {
			writeRoutingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getRouteSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	_ = json.NewEncoder(w).Encode(routing.RequestSchema())
}
