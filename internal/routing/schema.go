package routing

import (
	"github.com/invopop/jsonschema"
)

// RequestSchema returns the JSON Schema of a routing request body.
func RequestSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{ExpandedStruct: true}
	return r.Reflect(&Request{})
}

// ResponseSchema returns the JSON Schema of a routing response body.
func ResponseSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{ExpandedStruct: true}
	return r.Reflect(&Response{})
}
