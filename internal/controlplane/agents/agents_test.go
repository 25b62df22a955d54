package agents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VerteraIO/agentrouter/internal/controlplane/tasks"
)

func TestLiveMetricsValidate(t *testing.T) {
	assert.NoError(t, LiveMetrics{CurrentLoad: 0, SuccessRate: 0.95}.Validate())
	assert.NoError(t, LiveMetrics{CurrentLoad: 3, SuccessRate: 1}.Validate())
	assert.Error(t, LiveMetrics{CurrentLoad: 4, SuccessRate: 0.9}.Validate())
	assert.Error(t, LiveMetrics{CurrentLoad: -1, SuccessRate: 0.9}.Validate())
	assert.Error(t, LiveMetrics{CurrentLoad: 1, SuccessRate: 0}.Validate())
	assert.Error(t, LiveMetrics{CurrentLoad: 1, SuccessRate: 1.01}.Validate())
}

func TestIdleFor(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	a := Agent{ID: "a", LastTaskCompletedAt: now.Add(-90 * time.Second)}
	assert.True(t, a.HasCompleted())
	assert.Equal(t, 90*time.Second, a.IdleFor(now))

	future := Agent{ID: "b", LastTaskCompletedAt: now.Add(time.Minute)}
	assert.Equal(t, time.Duration(0), future.IdleFor(now))

	assert.False(t, Agent{ID: "c"}.HasCompleted())
}

func TestQualifies(t *testing.T) {
	a := Agent{ID: "a", Capabilities: tasks.NewCapabilitySet("text_processing", "data_analysis")}
	assert.True(t, a.Qualifies(tasks.Task{RequiredCapabilities: tasks.NewCapabilitySet("data_analysis")}))
	assert.False(t, a.Qualifies(tasks.Task{RequiredCapabilities: tasks.NewCapabilitySet("data_analysis", "image_analysis")}))
}

func TestLiveMetricsAccessor(t *testing.T) {
	_, err := Agent{ID: "a"}.LiveMetrics()
	require.ErrorIs(t, err, ErrNoMetrics)

	m, err := Agent{ID: "a", Metrics: &LiveMetrics{CurrentLoad: 2, SuccessRate: 0.9}}.LiveMetrics()
	require.NoError(t, err)
	assert.Equal(t, 2, m.CurrentLoad)
}
