package features

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Feature field names, in the order the builder emits them.
const (
	FieldAgentID          = "agent_id"
	FieldTaskType         = "task_type"
	FieldCapabilityMatch  = "capability_match"
	FieldAgentCurrentLoad = "agent_current_load"
	FieldAgentSuccessRate = "agent_success_rate"
	FieldTaskComplexity   = "task_complexity"
)

// LabelField is the training target column. It is never part of a manifest.
const LabelField = "duration_ms"

var canonicalFields = []string{
	FieldAgentID,
	FieldTaskType,
	FieldCapabilityMatch,
	FieldAgentCurrentLoad,
	FieldAgentSuccessRate,
	FieldTaskComplexity,
}

// Fields returns the builder's field names in emission order.
func Fields() []string {
	out := make([]string, len(canonicalFields))
	copy(out, canonicalFields)
	return out
}

var categoricalFields = map[string]bool{
	FieldAgentID:  true,
	FieldTaskType: true,
}

// IsCategorical reports whether the builder emits name as a label rather than
// a number.
func IsCategorical(name string) bool { return categoricalFields[name] }

// Manifest is the persisted, ordered list of feature names a trained model
// expects, plus the label order used to encode each categorical field. It is
// immutable once constructed.
type Manifest struct {
	fields     []string
	categories map[string][]string
}

type manifestFile struct {
	Fields     []string            `json:"fields"`
	Categories map[string][]string `json:"categories,omitempty"`
}

// NewManifest copies fields into a Manifest. It does not validate.
func NewManifest(fields []string) Manifest {
	cp := make([]string, len(fields))
	copy(cp, fields)
	return Manifest{fields: cp}
}

// DefaultManifest is the manifest matching Fields.
func DefaultManifest() Manifest { return NewManifest(canonicalFields) }

func (m Manifest) Fields() []string {
	out := make([]string, len(m.fields))
	copy(out, m.fields)
	return out
}

func (m Manifest) Len() int { return len(m.fields) }

// WithCategories returns a copy of m that encodes field with labels, the
// first label as 0.
func (m Manifest) WithCategories(field string, labels ...string) Manifest {
	out := Manifest{fields: m.fields, categories: make(map[string][]string, len(m.categories)+1)}
	for k, v := range m.categories {
		out.categories[k] = v
	}
	out.categories[field] = append([]string(nil), labels...)
	return out
}

// Categories returns the declared label order of field, or nil.
func (m Manifest) Categories(field string) []string {
	labels, ok := m.categories[field]
	if !ok {
		return nil
	}
	return append([]string(nil), labels...)
}

// Validate fails with a *MismatchError unless the manifest lists exactly the
// builder's fields in the builder's order.
func (m Manifest) Validate() error {
	return compare(canonicalFields, m.fields)
}

// Equal reports whether two manifests list the same names in the same order.
// Category declarations are not compared.
func (m Manifest) Equal(other Manifest) bool {
	return compare(m.fields, other.fields) == nil
}

// ParseManifest decodes `{"fields": [...]}` or a bare JSON array of names.
func ParseManifest(data []byte) (Manifest, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Manifest{}, fmt.Errorf("empty manifest")
	}
	var f manifestFile
	if data[0] == '[' {
		if err := json.Unmarshal(data, &f.Fields); err != nil {
			return Manifest{}, fmt.Errorf("decode manifest: %w", err)
		}
	} else if err := json.Unmarshal(data, &f); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if len(f.Fields) == 0 {
		return Manifest{}, fmt.Errorf("manifest lists no fields")
	}
	for i, n := range f.Fields {
		f.Fields[i] = strings.TrimSpace(n)
	}
	m := NewManifest(f.Fields)
	for field, labels := range f.Categories {
		if !IsCategorical(field) {
			return Manifest{}, fmt.Errorf("manifest declares categories for non-categorical field %q", field)
		}
		seen := make(map[string]struct{}, len(labels))
		for _, l := range labels {
			if _, dup := seen[l]; dup {
				return Manifest{}, fmt.Errorf("manifest repeats category %q of field %q", l, field)
			}
			seen[l] = struct{}{}
		}
		m = m.WithCategories(field, labels...)
	}
	return m, nil
}

// LoadManifest reads a manifest file from disk.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// WriteManifest encodes m as `{"fields": [...]}`.
func WriteManifest(w io.Writer, m Manifest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(manifestFile{Fields: m.fields, Categories: m.categories})
}
