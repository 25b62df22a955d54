package tasks

import (
	"encoding/json"
	"sort"
	"strings"
)

// CapabilitySet is a set of capability tags. The zero value is an empty set.
type CapabilitySet map[string]struct{}

// NewCapabilitySet builds a set from tags, trimming whitespace and dropping empties.
func NewCapabilitySet(tags ...string) CapabilitySet {
	s := make(CapabilitySet, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		s[tag] = struct{}{}
	}
	return s
}

func (s CapabilitySet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

func (s CapabilitySet) Len() int { return len(s) }

// SubsetOf reports whether every tag in s is also in other.
func (s CapabilitySet) SubsetOf(other CapabilitySet) bool {
	for tag := range s {
		if !other.Has(tag) {
			return false
		}
	}
	return true
}

// Sorted returns the tags in lexical order.
func (s CapabilitySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for tag := range s {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func (s CapabilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *CapabilitySet) UnmarshalJSON(b []byte) error {
	var tags []string
	if err := json.Unmarshal(b, &tags); err != nil {
		return err
	}
	*s = NewCapabilitySet(tags...)
	return nil
}
