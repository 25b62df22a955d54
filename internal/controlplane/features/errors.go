package features

import (
	"errors"
	"fmt"
	"strings"
)

var ErrSchemaMismatch = errors.New("feature schema mismatch")

// MismatchError describes how a field list diverges from the expected one.
type MismatchError struct {
	Want   []string
	Got    []string
	Detail string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %s (want [%s], got [%s])",
		ErrSchemaMismatch, e.Detail, strings.Join(e.Want, ","), strings.Join(e.Got, ","))
}

func (e *MismatchError) Unwrap() error { return ErrSchemaMismatch }

func compare(want, got []string) error {
	mismatch := func(detail string) error {
		return &MismatchError{Want: append([]string(nil), want...), Got: append([]string(nil), got...), Detail: detail}
	}
	wantSet := make(map[string]struct{}, len(want))
	for _, n := range want {
		wantSet[n] = struct{}{}
	}
	seen := make(map[string]struct{}, len(got))
	for _, n := range got {
		if _, dup := seen[n]; dup {
			return mismatch(fmt.Sprintf("duplicate field %q", n))
		}
		seen[n] = struct{}{}
		if _, ok := wantSet[n]; !ok {
			return mismatch(fmt.Sprintf("unexpected field %q", n))
		}
	}
	for _, n := range want {
		if _, ok := seen[n]; !ok {
			return mismatch(fmt.Sprintf("missing field %q", n))
		}
	}
	for i := range want {
		if want[i] != got[i] {
			return mismatch(fmt.Sprintf("field %d is %q, want %q", i, got[i], want[i]))
		}
	}
	return nil
}
