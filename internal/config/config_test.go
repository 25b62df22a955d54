package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":5001", cfg.HTTP.Addr)
	assert.Equal(t, "heuristic", cfg.Routing.Strategy)
	assert.False(t, cfg.Auth.Enabled())
	assert.False(t, cfg.TLS.Enabled())
	assert.False(t, cfg.Model.Configured())
	assert.Equal(t, "lightgbm", cfg.Model.Format)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentrouter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":8080"
  request_timeout: 5s
routing:
  strategy: predictive
model:
  artifact_path: /models/router.model
  manifest_path: /models/features.json
  format: xgboost
decisions:
  capacity: 10
`), 0o600))

	t.Setenv("AGENTROUTER_HTTP_ADDR", ":9999")
	t.Setenv("AGENTROUTER_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, "predictive", cfg.Routing.Strategy)
	assert.Equal(t, "/models/router.model", cfg.Model.ArtifactPath)
	assert.Equal(t, "xgboost", cfg.Model.Format)
	assert.Equal(t, 10, cfg.Decisions.Capacity)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Dispatch.Enabled)
}

func TestLoadOptionOverrides(t *testing.T) {
	cfg, err := Load("", func(v *viper.Viper) error {
		v.Set("grpc.enabled", true)
		v.Set("grpc.addr", ":7070")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, cfg.GRPC.Enabled)
	assert.Equal(t, ":7070", cfg.GRPC.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"strategy":       func(c *Config) { c.Routing.Strategy = "random" },
		"capacity":       func(c *Config) { c.Decisions.Capacity = 0 },
		"model pair":     func(c *Config) { c.Model.ArtifactPath = "a.json" },
		"model format":   func(c *Config) { c.Model.Format = "onnx" },
		"tls pair":       func(c *Config) { c.TLS.CertFile = "cert.pem" },
		"client ca":      func(c *Config) { c.TLS.ClientCAFile = "ca.pem" },
		"level":          func(c *Config) { c.Logging.Level = "loud" },
		"format":         func(c *Config) { c.Logging.Format = "xml" },
		"pending":        func(c *Config) { c.Dispatch.MaxPending = 0 },
		"grpc addr":      func(c *Config) { c.GRPC.Enabled, c.GRPC.Addr = true, "" },
		"request budget": func(c *Config) { c.HTTP.RequestTimeout = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
