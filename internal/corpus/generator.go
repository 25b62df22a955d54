// Package corpus simulates task/agent pairings to produce the CSV a duration
// model is trained on. Rows are built with the same feature builder the
// router uses at inference time.
package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/VerteraIO/agentrouter/internal/controlplane/agents"
	"github.com/VerteraIO/agentrouter/internal/controlplane/features"
	"github.com/VerteraIO/agentrouter/internal/controlplane/tasks"
)

const (
	DefaultSamples = 5000

	baseDurationMs   = 2000
	mismatchPenalty  = 3.0
	loadPenalty      = 0.15
	minSuccessRate   = 0.90
	maxSuccessRate   = 0.99
	minNoise         = 0.9
	maxNoise         = 1.1
	successRateScale = 1e4
)

// Sample is one simulated pairing and its label.
type Sample struct {
	Features   features.Vector
	DurationMs int
}

type Generator struct {
	profiles []AgentProfile
	types    []tasks.Type
	builder  *features.Builder
	rng      *rand.Rand
}

// NewGenerator returns a generator whose output is fully determined by seed.
func NewGenerator(profiles []AgentProfile, seed uint64) (*Generator, error) {
	if err := validateProfiles(profiles); err != nil {
		return nil, err
	}
	b, err := features.NewBuilder(features.DefaultManifest())
	if err != nil {
		return nil, err
	}
	return &Generator{
		profiles: profiles,
		types:    tasks.Types(),
		builder:  b,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Manifest is the schema of the emitted feature columns. It declares the
// profile ids and task types, in order, as the ordinal encoding of the
// categorical columns.
func (g *Generator) Manifest() features.Manifest {
	ids := make([]string, len(g.profiles))
	for i, p := range g.profiles {
		ids[i] = p.ID
	}
	types := make([]string, len(g.types))
	for i, t := range g.types {
		types[i] = string(t)
	}
	return g.builder.Manifest().
		WithCategories(features.FieldAgentID, ids...).
		WithCategories(features.FieldTaskType, types...)
}

// Duration is the simulated completion time in ms, truncated toward zero.
func Duration(p tasks.Profile, baseSpeed float64, match bool, load int, noise float64) int {
	d := p.Complexity * baseSpeed * baseDurationMs
	if !match {
		d *= mismatchPenalty
	}
	d *= 1 + float64(load)*loadPenalty
	d *= noise
	return int(d)
}

// Next draws one sample.
func (g *Generator) Next() (Sample, error) {
	ap := g.profiles[g.rng.IntN(len(g.profiles))]
	tt := g.types[g.rng.IntN(len(g.types))]
	profile, _ := tasks.ProfileFor(tt)

	agent := agents.Agent{ID: ap.ID, Capabilities: tasks.NewCapabilitySet(ap.Capabilities...)}
	metrics := agents.LiveMetrics{
		CurrentLoad: g.rng.IntN(agents.MaxLoad + 1),
		SuccessRate: math.Round((minSuccessRate+g.rng.Float64()*(maxSuccessRate-minSuccessRate))*successRateScale) / successRateScale,
	}
	task := tasks.Task{Type: tt, RequiredCapabilities: tasks.NewCapabilitySet(profile.RequiredCapability)}

	vec, err := g.builder.Build(task, agent, metrics)
	if err != nil {
		return Sample{}, err
	}
	noise := minNoise + g.rng.Float64()*(maxNoise-minNoise)
	return Sample{
		Features:   vec,
		DurationMs: Duration(profile, ap.BaseSpeed, agent.Capabilities.Has(profile.RequiredCapability), metrics.CurrentLoad, noise),
	}, nil
}

// WriteCSV writes a header row and n samples.
func (g *Generator) WriteCSV(w io.Writer, n int) error {
	if n < 0 {
		return fmt.Errorf("samples must not be negative, got %d", n)
	}
	cw := csv.NewWriter(w)
	header := append(g.Manifest().Fields(), features.LabelField)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for i := 0; i < n; i++ {
		s, err := g.Next()
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		for j := 0; j < s.Features.Len(); j++ {
			row[j] = s.Features.At(j).Value.String()
		}
		row[len(row)-1] = strconv.Itoa(s.DurationMs)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
