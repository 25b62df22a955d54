package features

import (
	"errors"
	"fmt"

	"github.com/VerteraIO/agentrouter/internal/controlplane/agents"
	"github.com/VerteraIO/agentrouter/internal/controlplane/tasks"
)

var ErrUnknownTaskType = errors.New("unknown task type")

type input struct {
	task    tasks.Task
	profile tasks.Profile
	agent   agents.Agent
	metrics agents.LiveMetrics
}

var extractors = map[string]func(in input) Value{
	FieldAgentID:  func(in input) Value { return Category(in.agent.ID) },
	FieldTaskType: func(in input) Value { return Category(string(in.task.Type)) },
	FieldCapabilityMatch: func(in input) Value {
		if in.agent.Capabilities.Has(in.profile.RequiredCapability) {
			return Number(1)
		}
		return Number(0)
	},
	FieldAgentCurrentLoad: func(in input) Value { return Number(float64(in.metrics.CurrentLoad)) },
	FieldAgentSuccessRate: func(in input) Value { return Number(in.metrics.SuccessRate) },
	FieldTaskComplexity:   func(in input) Value { return Number(in.profile.Complexity) },
}

// Builder turns a (task, agent, metrics) triple into the feature vector a
// model trained against manifest expects.
type Builder struct {
	manifest Manifest
}

// NewBuilder fails with a *MismatchError if the manifest is not exactly the
// builder's field list.
func NewBuilder(m Manifest) (*Builder, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &Builder{manifest: m}, nil
}

func (b *Builder) Manifest() Manifest { return b.manifest }

// Build emits one value per manifest field, in manifest order, and checks
// the result against the manifest before returning it.
func (b *Builder) Build(task tasks.Task, agent agents.Agent, metrics agents.LiveMetrics) (Vector, error) {
	profile, ok := task.Profile()
	if !ok {
		return Vector{}, fmt.Errorf("%w: %q", ErrUnknownTaskType, task.Type)
	}
	in := input{task: task, profile: profile, agent: agent, metrics: metrics}

	fields := make([]Field, 0, b.manifest.Len())
	for _, name := range b.manifest.fields {
		extract, ok := extractors[name]
		if !ok {
			return Vector{}, &MismatchError{Want: Fields(), Got: b.manifest.Fields(), Detail: fmt.Sprintf("no extractor for field %q", name)}
		}
		fields = append(fields, Field{Name: name, Value: extract(in)})
	}
	v := Vector{fields: fields}
	if err := compare(b.manifest.fields, v.Names()); err != nil {
		return Vector{}, err
	}
	if err := compare(canonicalFields, v.Names()); err != nil {
		return Vector{}, err
	}
	return v, nil
}
