package routing

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/VerteraIO/agentrouter/internal/controlplane/agents"
	"github.com/VerteraIO/agentrouter/internal/controlplane/decisions"
	"github.com/VerteraIO/agentrouter/internal/controlplane/tasks"
)

// Request is the wire form of a routing request. Agents and Task are
// pointers so that an absent key can be told apart from an empty value.
type Request struct {
	Agents   *[]AgentPayload `json:"agents" validate:"required" jsonschema:"required"`
	Task     *TaskPayload    `json:"task" validate:"required" jsonschema:"required"`
	Strategy string          `json:"strategy,omitempty" validate:"omitempty,oneof=heuristic predictive" jsonschema:"enum=heuristic,enum=predictive"`
}

type TaskPayload struct {
	ID                   string   `json:"id"`
	Type                 string   `json:"type" validate:"required,tasktype" jsonschema:"required,enum=text_processing,enum=code_generation,enum=data_analysis,enum=image_analysis"`
	RequiredCapabilities []string `json:"requiredCapabilities"`
	Priority             string   `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent" jsonschema:"enum=low,enum=normal,enum=high,enum=urgent"`
}

type AgentPayload struct {
	ID           string   `json:"id" validate:"required" jsonschema:"required"`
	Capabilities []string `json:"capabilities"`
	// Epoch milliseconds; absent or 0 means the agent never completed a task.
	LastTaskCompletedAt *int64   `json:"lastTaskCompletedAt,omitempty" validate:"omitempty,gte=0"`
	CurrentLoad         *int     `json:"currentLoad,omitempty" validate:"omitempty,gte=0,lte=3" jsonschema:"minimum=0,maximum=3"`
	SuccessRate         *float64 `json:"successRate,omitempty" validate:"omitempty,gt=0,lte=1" jsonschema:"exclusiveMinimum=0,maximum=1"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("tasktype", func(fl validator.FieldLevel) bool {
		return tasks.Known(tasks.Type(fl.Field().String()))
	})
	return v
}

// describe renders validator errors as one short sentence.
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("'%s' is required", field))
		case "tasktype":
			parts = append(parts, fmt.Sprintf("'%s' must be one of %v", field, tasks.Types()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("'%s' must be one of [%s]", field, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("'%s' fails %s=%s", field, fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(parts, "; ")
}

func (p TaskPayload) toTask() (tasks.Task, error) {
	prio, err := tasks.ParsePriority(p.Priority)
	if err != nil {
		return tasks.Task{}, err
	}
	return tasks.Task{
		ID:                   p.ID,
		Type:                 tasks.Type(p.Type),
		RequiredCapabilities: tasks.NewCapabilitySet(p.RequiredCapabilities...),
		Priority:             prio,
	}, nil
}

func (p AgentPayload) toAgent() agents.Agent {
	a := agents.Agent{
		ID:           p.ID,
		Capabilities: tasks.NewCapabilitySet(p.Capabilities...),
	}
	if p.LastTaskCompletedAt != nil && *p.LastTaskCompletedAt > 0 {
		a.LastTaskCompletedAt = time.UnixMilli(*p.LastTaskCompletedAt)
	}
	if p.CurrentLoad != nil && p.SuccessRate != nil {
		a.Metrics = &agents.LiveMetrics{CurrentLoad: *p.CurrentLoad, SuccessRate: *p.SuccessRate}
	}
	return a
}

// candidates converts agent payloads, excluding malformed or duplicate
// records instead of failing the request. Live metrics are only read by the
// predictive strategy, so only then must they come as a pair.
func (s *Service) candidates(payloads []AgentPayload, needsMetrics bool) ([]agents.Agent, []decisions.Exclusion) {
	out := make([]agents.Agent, 0, len(payloads))
	var excluded []decisions.Exclusion
	seen := make(map[string]struct{}, len(payloads))
	for i, p := range payloads {
		if err := s.validate.Struct(p); err != nil {
			excluded = append(excluded, decisions.Exclusion{Index: i, AgentID: p.ID, Reason: describe(err)})
			continue
		}
		if needsMetrics && (p.CurrentLoad == nil) != (p.SuccessRate == nil) {
			excluded = append(excluded, decisions.Exclusion{Index: i, AgentID: p.ID, Reason: "'currentLoad' and 'successRate' must be given together"})
			continue
		}
		if _, dup := seen[p.ID]; dup {
			excluded = append(excluded, decisions.Exclusion{Index: i, AgentID: p.ID, Reason: "duplicate agent id"})
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p.toAgent())
	}
	return out, excluded
}
