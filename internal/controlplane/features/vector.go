package features

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Value is one scalar feature: either numeric or a categorical label.
type Value struct {
	Num         float64
	Str         string
	Categorical bool
}

func Number(f float64) Value { return Value{Num: f} }

func Category(s string) Value { return Value{Str: s, Categorical: true} }

func (v Value) String() string {
	if v.Categorical {
		return v.Str
	}
	return strconv.FormatFloat(v.Num, 'f', -1, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.Categorical {
		return json.Marshal(v.Str)
	}
	return json.Marshal(v.Num)
}

// Field is a named feature value.
type Field struct {
	Name  string
	Value Value
}

// Vector is an ordered list of named features. Order is significant.
type Vector struct {
	fields []Field
}

func (v Vector) Len() int { return len(v.fields) }

func (v Vector) At(i int) Field { return v.fields[i] }

// Names returns the field names in order.
func (v Vector) Names() []string {
	out := make([]string, len(v.fields))
	for i, f := range v.fields {
		out[i] = f.Name
	}
	return out
}

// Lookup returns the value of the named field.
func (v Vector) Lookup(name string) (Value, bool) {
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// MarshalJSON encodes the vector as a JSON object with keys in vector order.
func (v Vector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range v.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
