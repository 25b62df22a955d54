package tasks

import "fmt"

// Type is the task type tag. The set is closed: every type has a Profile.
type Type string

const (
	TypeTextProcessing Type = "text_processing"
	TypeCodeGeneration Type = "code_generation"
	TypeDataAnalysis   Type = "data_analysis"
	TypeImageAnalysis  Type = "image_analysis"
)

// Priority is ordered: low < normal < high < urgent.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

var priorityNames = map[Priority]string{
	PriorityLow:    "low",
	PriorityNormal: "normal",
	PriorityHigh:   "high",
	PriorityUrgent: "urgent",
}

func (p Priority) String() string {
	if s, ok := priorityNames[p]; ok {
		return s
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// Elevated reports whether the priority earns the scheduling bonus (high or urgent).
func (p Priority) Elevated() bool { return p >= PriorityHigh }

// ParsePriority maps a wire value to a Priority. Names are lower case; an
// empty string is normal.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityNormal, nil
	}
	for p, name := range priorityNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// MarshalText encodes the zero Priority as normal, matching ParsePriority("").
func (p Priority) MarshalText() ([]byte, error) {
	if p == 0 {
		p = PriorityNormal
	}
	name, ok := priorityNames[p]
	if !ok {
		return nil, fmt.Errorf("unknown priority %d", int(p))
	}
	return []byte(name), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	parsed, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Task is a unit of work to be assigned to one agent.
type Task struct {
	ID                   string        `json:"id"`
	Type                 Type          `json:"type"`
	RequiredCapabilities CapabilitySet `json:"requiredCapabilities"`
	Priority             Priority      `json:"priority"`
}

// Profile returns the static metadata for the task's type.
func (t Task) Profile() (Profile, bool) {
	return ProfileFor(t.Type)
}
