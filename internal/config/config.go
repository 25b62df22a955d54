// Package config loads agentrouter settings from defaults, an optional YAML
// file and AGENTROUTER_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/VerteraIO/agentrouter/internal/controlplane/decisions"
	"github.com/VerteraIO/agentrouter/internal/controlplane/dispatch"
	"github.com/VerteraIO/agentrouter/internal/controlplane/scheduler"
	"github.com/VerteraIO/agentrouter/internal/logging"
	"github.com/VerteraIO/agentrouter/internal/model"
)

// EnvPrefix is prepended to every environment override, so http.addr is
// read from AGENTROUTER_HTTP_ADDR.
const EnvPrefix = "AGENTROUTER"

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Model     ModelConfig     `mapstructure:"model"`
	Decisions DecisionsConfig `mapstructure:"decisions"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Auth      AuthConfig      `mapstructure:"auth"`
	TLS       TLSConfig       `mapstructure:"tls"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type RoutingConfig struct {
	Strategy string `mapstructure:"strategy"`
}

// ModelConfig locates the predictive model. Both paths empty means no model.
type ModelConfig struct {
	ArtifactPath string `mapstructure:"artifact_path"`
	ManifestPath string `mapstructure:"manifest_path"`
	// Format is lightgbm, lightgbm_json or xgboost.
	Format string `mapstructure:"format"`
}

// Configured reports whether a model artifact was named.
func (m ModelConfig) Configured() bool { return m.ArtifactPath != "" || m.ManifestPath != "" }

type DecisionsConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type DispatchConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxPending int  `mapstructure:"max_pending"`
}

// AuthConfig enables bearer-token auth on /api/v1 when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

func (a AuthConfig) Enabled() bool { return a.JWTSecret != "" }

// TLSConfig enables TLS when both CertFile and KeyFile are set. ClientCAFile
// additionally requires client certificates.
type TLSConfig struct {
	CertFile     string `mapstructure:"cert_file"`
	KeyFile      string `mapstructure:"key_file"`
	ClientCAFile string `mapstructure:"client_ca_file"`
}

func (t TLSConfig) Enabled() bool { return t.CertFile != "" && t.KeyFile != "" }

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":5001",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		GRPC:      GRPCConfig{Addr: ":9090"},
		Routing:   RoutingConfig{Strategy: string(scheduler.StrategyHeuristic)},
		Model:     ModelConfig{Format: string(model.FormatLightGBM)},
		Decisions: DecisionsConfig{Capacity: decisions.DefaultCapacity},
		Dispatch:  DispatchConfig{Enabled: true, MaxPending: dispatch.DefaultMaxPending},
		Logging:   LoggingConfig{Level: "info", Format: logging.FormatJSON},
	}
}

// SetDefaults registers every key of Default on v so that environment
// variables are honoured for all of them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", d.HTTP.WriteTimeout)
	v.SetDefault("http.request_timeout", d.HTTP.RequestTimeout)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)

	v.SetDefault("grpc.enabled", d.GRPC.Enabled)
	v.SetDefault("grpc.addr", d.GRPC.Addr)

	v.SetDefault("routing.strategy", d.Routing.Strategy)

	v.SetDefault("model.artifact_path", d.Model.ArtifactPath)
	v.SetDefault("model.manifest_path", d.Model.ManifestPath)
	v.SetDefault("model.format", d.Model.Format)

	v.SetDefault("decisions.capacity", d.Decisions.Capacity)

	v.SetDefault("dispatch.enabled", d.Dispatch.Enabled)
	v.SetDefault("dispatch.max_pending", d.Dispatch.MaxPending)

	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)

	v.SetDefault("tls.cert_file", d.TLS.CertFile)
	v.SetDefault("tls.key_file", d.TLS.KeyFile)
	v.SetDefault("tls.client_ca_file", d.TLS.ClientCAFile)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Option adjusts the viper instance before it is read, typically to bind
// command-line flags.
type Option func(*viper.Viper) error

// Load reads configuration. An empty path means defaults and environment
// only; a named file that cannot be read is an error.
func Load(path string, opts ...Option) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr must not be empty"))
	}
	if c.HTTP.RequestTimeout <= 0 {
		errs = append(errs, errors.New("http.request_timeout must be positive"))
	}
	if c.HTTP.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must not be negative"))
	}
	if c.GRPC.Enabled && c.GRPC.Addr == "" {
		errs = append(errs, errors.New("grpc.addr must not be empty when grpc is enabled"))
	}
	if _, err := scheduler.ParseStrategy(c.Routing.Strategy); err != nil {
		errs = append(errs, fmt.Errorf("routing.strategy: %w", err))
	}
	if (c.Model.ArtifactPath == "") != (c.Model.ManifestPath == "") {
		errs = append(errs, errors.New("model.artifact_path and model.manifest_path must be set together"))
	}
	if _, err := model.ParseFormat(c.Model.Format); err != nil {
		errs = append(errs, fmt.Errorf("model.format: %w", err))
	}
	if c.Decisions.Capacity <= 0 {
		errs = append(errs, errors.New("decisions.capacity must be positive"))
	}
	if c.Dispatch.Enabled && c.Dispatch.MaxPending <= 0 {
		errs = append(errs, errors.New("dispatch.max_pending must be positive"))
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("tls.cert_file and tls.key_file must be set together"))
	}
	if c.TLS.ClientCAFile != "" && !c.TLS.Enabled() {
		errs = append(errs, errors.New("tls.client_ca_file requires tls.cert_file and tls.key_file"))
	}
	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if c.Logging.Format != logging.FormatJSON && c.Logging.Format != logging.FormatText {
		errs = append(errs, fmt.Errorf("logging.format %q is not one of json, text", c.Logging.Format))
	}
	return errors.Join(errs...)
}
