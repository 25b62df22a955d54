package routing

import (
	"errors"
	"fmt"

	"github.com/VerteraIO/agentrouter/internal/controlplane/features"
	"github.com/VerteraIO/agentrouter/internal/model"
)

// Kind is the machine-readable class of a routing failure.
type Kind string

const (
	KindInvalidRequest   Kind = "invalid_request"
	KindModelUnavailable Kind = "model_unavailable"
	KindSchemaMismatch   Kind = "schema_mismatch"
	KindInternal         Kind = "internal"
)

// Error is a routing failure carrying a kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so the Err* sentinels work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidRequest   = &Error{Kind: KindInvalidRequest}
	ErrModelUnavailable = &Error{Kind: KindModelUnavailable}
	ErrSchemaMismatch   = &Error{Kind: KindSchemaMismatch}
)

func invalidf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return classify(err, "").Kind
}

// classify maps errors from the scoring layers onto routing kinds.
func classify(err error, msg string) *Error {
	switch {
	case errors.Is(err, features.ErrSchemaMismatch), errors.Is(err, model.ErrFeatureMissing):
		if msg == "" {
			msg = "feature vector does not match the model schema"
		}
		return &Error{Kind: KindSchemaMismatch, Message: msg, Cause: err}
	case errors.Is(err, model.ErrUnavailable):
		if msg == "" {
			msg = "predictive model is not loaded"
		}
		return &Error{Kind: KindModelUnavailable, Message: msg, Cause: err}
	default:
		if msg == "" {
			msg = "scoring failed"
		}
		return &Error{Kind: KindInternal, Message: msg, Cause: err}
	}
}
