package model

import (
	"errors"
	"fmt"

	"github.com/VerteraIO/agentrouter/internal/controlplane/features"
)

// ErrUnavailable marks any failure to obtain a usable model.
var ErrUnavailable = errors.New("model unavailable")

// Bundle pairs a regressor with the manifest it was trained against and the
// builder validated for that manifest. It is built once at startup and shared
// read-only by all requests.
type Bundle struct {
	regressor Regressor
	builder   *features.Builder
}

// NewBundle validates the manifest and wraps r.
func NewBundle(r Regressor, m features.Manifest) (*Bundle, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil regressor", ErrUnavailable)
	}
	b, err := features.NewBuilder(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return &Bundle{regressor: r, builder: b}, nil
}

// LoadBundle loads the manifest and the artifact from disk. Every failure
// wraps ErrUnavailable; manifest divergence additionally wraps
// features.ErrSchemaMismatch.
func LoadBundle(artifactPath, manifestPath string, format Format) (*Bundle, error) {
	if artifactPath == "" || manifestPath == "" {
		return nil, fmt.Errorf("%w: artifact and manifest paths must both be configured", ErrUnavailable)
	}
	manifest, err := features.LoadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	ensemble, err := LoadEnsemble(artifactPath, format, manifest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return NewBundle(ensemble, manifest)
}

func (b *Bundle) Regressor() Regressor { return b.regressor }

func (b *Bundle) Builder() *features.Builder { return b.builder }

func (b *Bundle) Manifest() features.Manifest { return b.builder.Manifest() }
