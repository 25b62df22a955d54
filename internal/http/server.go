package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	v1 "github.com/VerteraIO/agentrouter/internal/http/v1"
	"github.com/VerteraIO/agentrouter/internal/logging"
	"github.com/VerteraIO/agentrouter/internal/metrics"
	"github.com/VerteraIO/agentrouter/internal/routing"
	"github.com/VerteraIO/agentrouter/internal/security/auth"
)

// DefaultRequestTimeout applies when Options.RequestTimeout is zero.
const DefaultRequestTimeout = 60 * time.Second

type Options struct {
	Routing        *routing.Service
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	AuthSecret     []byte
	RequestTimeout time.Duration
}

// NewServer builds the root router and mounts all versioned subrouters under /api/{version}.
func NewServer(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(instrument(opts.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", healthz(opts.Routing))
	if opts.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(opts.Gatherer))
	}

	// Root-level docs: redirect to Swagger UI for v1
	r.Get("/docs", serveRootDocs)

	// Default 404: nudge callers toward versioned paths
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","message":"Use a versioned path like /api/v1/...","supported":["v1"]}`))
	})

	// Mount versioned APIs
	r.Route("/api", func(api chi.Router) {
		api.Mount("/v1", v1.Router(v1.Options{Routing: opts.Routing, AuthSecret: opts.AuthSecret}))
	})

	// Unversioned route endpoint kept for existing orchestrators.
	legacy := r.With(Deprecation("true", "", "/api/v1/route"))
	if len(opts.AuthSecret) > 0 {
		legacy = legacy.With(auth.Middleware(opts.AuthSecret))
	}
	legacy.Post("/route", v1.RouteHandler(opts.Routing))

	return r
}

// Deprecation is a middleware that emits deprecation and sunset headers for an API subtree.
func Deprecation(deprecated string, sunsetISO string, successorLink string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Deprecation", deprecated) // e.g., "true"
			if sunsetISO != "" {
				w.Header().Set("Sunset", sunsetISO)
			}
			if successorLink != "" {
				w.Header().Set("Link", "<"+successorLink+">; rel=\"successor-version\"")
			}
			next.ServeHTTP(w, r)
		})
	}
}

type health struct {
	Status      string `json:"status"`
	Strategy    string `json:"strategy"`
	ModelLoaded bool   `json:"model_loaded"`
}

func healthz(svc *routing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(health{
			Status:      "ok",
			Strategy:    string(svc.DefaultStrategy()),
			ModelLoaded: svc.ModelLoaded(),
		})
	}
}

// instrument counts requests by chi route pattern so path parameters do not
// explode label cardinality.
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTP(r.Method, route, status)
		})
	}
}

// serveRootDocs redirects to the versioned Swagger UI.
func serveRootDocs(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/api/v1/docs/index.html", http.StatusFound)
}
