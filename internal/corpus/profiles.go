package corpus

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AgentProfile is a simulated agent. BaseSpeed multiplies task duration,
// so lower is faster.
type AgentProfile struct {
	ID           string   `yaml:"id"`
	Capabilities []string `yaml:"capabilities"`
	BaseSpeed    float64  `yaml:"base_speed"`
}

type profileFile struct {
	Agents []AgentProfile `yaml:"agents"`
}

// DefaultProfiles returns the three built-in simulated agents.
func DefaultProfiles() []AgentProfile {
	return []AgentProfile{
		{ID: "agent_1", Capabilities: []string{"text_processing", "data_analysis"}, BaseSpeed: 1.0},
		{ID: "agent_2", Capabilities: []string{"code_generation", "text_processing"}, BaseSpeed: 1.2},
		{ID: "agent_3", Capabilities: []string{"image_analysis", "data_analysis"}, BaseSpeed: 0.9},
	}
}

// ParseProfiles decodes a YAML document of the form
//
//	agents:
//	  - id: agent_1
//	    capabilities: [text_processing]
//	    base_speed: 1.0
func ParseProfiles(data []byte) ([]AgentProfile, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if err := validateProfiles(f.Agents); err != nil {
		return nil, err
	}
	return f.Agents, nil
}

func LoadProfiles(path string) ([]AgentProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	return ParseProfiles(data)
}

func validateProfiles(ps []AgentProfile) error {
	if len(ps) == 0 {
		return errors.New("profiles: at least one agent is required")
	}
	seen := make(map[string]struct{}, len(ps))
	for i, p := range ps {
		if p.ID == "" {
			return fmt.Errorf("profiles: agent %d has no id", i)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("profiles: duplicate agent id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.BaseSpeed <= 0 {
			return fmt.Errorf("profiles: agent %q base_speed must be positive", p.ID)
		}
	}
	return nil
}
