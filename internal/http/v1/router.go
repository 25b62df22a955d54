package v1

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	openapi "github.com/VerteraIO/agentrouter/api/openapi"
	"github.com/VerteraIO/agentrouter/internal/routing"
	"github.com/VerteraIO/agentrouter/internal/security/auth"
)

// Options wires the v1 API. AuthSecret, when set, guards every endpoint
// except the documentation.
type Options struct {
	Routing    *routing.Service
	AuthSecret []byte
}

// Router returns the chi.Router for REST API v1.
func Router(opts Options) chi.Router {
	r := chi.NewRouter()

	// Docs (Swagger UI) and spec under the versioned prefix
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/api/v1/openapi.yaml"),
	))
	r.Get("/openapi.yaml", serveOpenAPIStaticAsset)
	r.Get("/schema/route", getRouteSchema)

	r.Group(func(r chi.Router) {
		if len(opts.AuthSecret) > 0 {
			r.Use(auth.Middleware(opts.AuthSecret))
		}
		r.Post("/route", RouteHandler(opts.Routing))
		r.Get("/decisions/{decisionId}", getDecision(opts.Routing))
		r.Get("/agents/{agentId}/assignments", getAssignments(opts.Routing))
	})

	return r
}

func serveOpenAPIStaticAsset(w http.ResponseWriter, r *http.Request) {
	data, err := openapi.FS.ReadFile("v1/agentrouter.yaml")
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read spec: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(data)
}
