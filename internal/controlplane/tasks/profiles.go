package tasks

// Profile is the static per-type metadata shared by the corpus generator and
// the runtime feature builder. Both read this table; there is no second copy.
type Profile struct {
	Complexity         float64 `json:"complexity"`
	RequiredCapability string  `json:"required_capability"`
}

var profiles = map[Type]Profile{
	TypeTextProcessing: {Complexity: 1.0, RequiredCapability: "text_processing"},
	TypeCodeGeneration: {Complexity: 1.5, RequiredCapability: "code_generation"},
	TypeDataAnalysis:   {Complexity: 1.2, RequiredCapability: "data_analysis"},
	TypeImageAnalysis:  {Complexity: 1.8, RequiredCapability: "image_analysis"},
}

// typeOrder fixes iteration order for callers that sample or list types.
var typeOrder = []Type{TypeTextProcessing, TypeCodeGeneration, TypeDataAnalysis, TypeImageAnalysis}

// ProfileFor looks up the profile of a task type.
func ProfileFor(t Type) (Profile, bool) {
	p, ok := profiles[t]
	return p, ok
}

// Types returns every known task type in a stable order.
func Types() []Type {
	out := make([]Type, len(typeOrder))
	copy(out, typeOrder)
	return out
}

// Known reports whether t is one of the enumerated task types.
func Known(t Type) bool {
	_, ok := profiles[t]
	return ok
}
