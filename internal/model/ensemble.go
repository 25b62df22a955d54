// Package model loads the pre-trained gradient-boosted ensemble used for
// predictive routing and evaluates it against feature vectors.
//
// Artifacts are LightGBM text or JSON dumps, or XGBoost binary models, read
// with github.com/dmitryikh/leaves. Categorical fields reach the model as
// ordinal codes: the manifest lists every label of agent_id and task_type, and
// a label's position in that list is its code. Labels the manifest does not
// list are encoded as -1, which LightGBM categorical splits never match.
package model

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/dmitryikh/leaves"

	"github.com/VerteraIO/agentrouter/internal/controlplane/features"
)

type Format string

const (
	FormatLightGBM     Format = "lightgbm"
	FormatLightGBMJSON Format = "lightgbm_json"
	FormatXGBoost      Format = "xgboost"
)

// ParseFormat maps a config value to a Format. Empty means LightGBM text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatLightGBM, nil
	case FormatLightGBM, FormatLightGBMJSON, FormatXGBoost:
		return f, nil
	default:
		return "", fmt.Errorf("unknown model format %q (want lightgbm, lightgbm_json or xgboost)", s)
	}
}

var (
	ErrInvalidArtifact = errors.New("invalid model artifact")
	ErrFeatureMissing  = errors.New("feature missing from vector")
)

// UnknownCategory is the code of a label the manifest does not declare.
const UnknownCategory = -1

// Regressor produces a single scalar prediction from a feature vector.
// Implementations must be safe for concurrent use.
type Regressor interface {
	Predict(v features.Vector) (float64, error)
}

// Encoder turns a feature vector into the dense row a tree ensemble reads,
// in manifest order.
type Encoder struct {
	fields []string
	codes  map[string]map[string]float64
}

// NewEncoder fails when a categorical manifest field has no declared labels.
func NewEncoder(m features.Manifest) (*Encoder, error) {
	e := &Encoder{fields: m.Fields(), codes: make(map[string]map[string]float64)}
	for _, name := range e.fields {
		if !features.IsCategorical(name) {
			continue
		}
		labels := m.Categories(name)
		if len(labels) == 0 {
			return nil, fmt.Errorf("%w: manifest declares no categories for %q", features.ErrSchemaMismatch, name)
		}
		codes := make(map[string]float64, len(labels))
		for i, l := range labels {
			codes[l] = float64(i)
		}
		e.codes[name] = codes
	}
	return e, nil
}

func (e *Encoder) Width() int { return len(e.fields) }

// Encode returns one value per manifest field.
func (e *Encoder) Encode(v features.Vector) ([]float64, error) {
	row := make([]float64, len(e.fields))
	for i, name := range e.fields {
		val, ok := v.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrFeatureMissing, name)
		}
		codes, categorical := e.codes[name]
		switch {
		case categorical && val.Categorical:
			code, known := codes[val.Str]
			if !known {
				code = UnknownCategory
			}
			row[i] = code
		case !categorical && !val.Categorical:
			row[i] = val.Num
		default:
			return nil, fmt.Errorf("feature %q: value %q does not match its manifest encoding", name, val.String())
		}
	}
	return row, nil
}

// Ensemble is a loaded tree ensemble bound to the encoder of its manifest.
// It is read-only after LoadEnsemble.
type Ensemble struct {
	format  Format
	trees   *leaves.Ensemble
	encoder *Encoder
}

// LoadEnsemble reads the artifact at path and checks it against m: the model
// must read exactly m.Len() columns and, when the artifact records feature
// names, they must equal the manifest's.
func LoadEnsemble(path string, format Format, m features.Manifest) (*Ensemble, error) {
	enc, err := NewEncoder(m)
	if err != nil {
		return nil, err
	}
	trees, names, err := readArtifact(path, format)
	if err != nil {
		return nil, err
	}
	if trees.NOutputGroups() != 1 {
		return nil, fmt.Errorf("%w: %s model has %d outputs, want a single regression output",
			ErrInvalidArtifact, trees.Name(), trees.NOutputGroups())
	}
	if n := trees.NFeatures(); n != 0 && n != m.Len() {
		return nil, fmt.Errorf("%w: artifact reads %d features, manifest lists %d", features.ErrSchemaMismatch, n, m.Len())
	}
	if len(names) > 0 && !generatedNames(names) && !features.NewManifest(names).Equal(m) {
		return nil, fmt.Errorf("%w: artifact was trained on %v, manifest lists %v", features.ErrSchemaMismatch, names, m.Fields())
	}
	return &Ensemble{format: format, trees: trees, encoder: enc}, nil
}

func readArtifact(path string, format Format) (*leaves.Ensemble, []string, error) {
	var (
		trees *leaves.Ensemble
		names []string
		err   error
	)
	switch format {
	case FormatLightGBM:
		if trees, err = leaves.LGEnsembleFromFile(path, true); err == nil {
			names, err = lightGBMTextNames(path)
		}
	case FormatLightGBMJSON:
		var f *os.File
		if f, err = os.Open(path); err != nil {
			return nil, nil, fmt.Errorf("open model artifact: %w", err)
		}
		defer f.Close()
		if trees, err = leaves.LGEnsembleFromJSON(f, true); err == nil {
			names, err = lightGBMJSONNames(path)
		}
	case FormatXGBoost:
		trees, err = leaves.XGEnsembleFromFile(path, true)
	default:
		return nil, nil, fmt.Errorf("%w: unknown format %q", ErrInvalidArtifact, format)
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("open model artifact: %w", err)
		}
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrInvalidArtifact, format, err)
	}
	return trees, names, nil
}

// lightGBMTextNames reads the feature_names line of the model header.
func lightGBMTextNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			break
		}
		if rest, ok := strings.CutPrefix(line, "feature_names="); ok {
			return strings.Fields(rest), nil
		}
	}
	return nil, sc.Err()
}

func lightGBMJSONNames(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var header struct {
		FeatureNames []string `json:"feature_names"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, err
	}
	return header.FeatureNames, nil
}

// generatedNames reports whether names are LightGBM's Column_N placeholders,
// which carry no schema information.
func generatedNames(names []string) bool {
	return !slices.ContainsFunc(names, func(n string) bool { return !strings.HasPrefix(n, "Column_") })
}

func (e *Ensemble) Format() Format { return e.format }

// Trees is the number of estimators in the ensemble.
func (e *Ensemble) Trees() int { return e.trees.NEstimators() }

// Predict encodes v and sums every tree, applying the objective's output
// transformation.
func (e *Ensemble) Predict(v features.Vector) (float64, error) {
	row, err := e.encoder.Encode(v)
	if err != nil {
		return 0, err
	}
	return e.trees.PredictSingle(row, 0), nil
}
