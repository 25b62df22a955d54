package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/VerteraIO/agentrouter/internal/routing"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorBody{Error: kind, Message: msg})
}

// writeRoutingError maps a routing failure onto its HTTP status.
func writeRoutingError(w http.ResponseWriter, err error) {
	kind := routing.KindOf(err)
	msg := err.Error()
	var re *routing.Error
	if errors.As(err, &re) && re.Message != "" {
		msg = re.Message
	}
	writeError(w, StatusFor(kind), string(kind), msg)
}

// StatusFor returns the HTTP status used for a routing error kind.
func StatusFor(kind routing.Kind) int {
	if kind == routing.KindInvalidRequest {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
