// Package course defines the canonical course identifier type.
//
// Course ids cross three boundaries (client payloads, the enrollment API and
// queue messages) and arrive in mixed representations: JSON numbers, numeric
// strings, or floats. Every ingress normalizes to course.ID before any
// comparison, so heterogeneous representations of the same course always
// compare equal.
package course

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is the canonical numeric course identifier.
type ID int64

// UnmarshalJSON accepts numeric (42, 42.0) and textual ("42") representations.
func (id *ID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" || s == "null" {
		return fmt.Errorf("course id is empty")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some producers serialize ids as floats (42.0).
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int64(f)) {
			return fmt.Errorf("invalid course id %q", s)
		}
		n = int64(f)
	}

	*id = ID(n)
	return nil
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Parse normalizes an already-decoded JSON value into an ID.
func Parse(v any) (ID, error) {
	switch x := v.(type) {
	case float64:
		if x != float64(int64(x)) {
			return 0, fmt.Errorf("invalid course id %v", x)
		}
		return ID(x), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid course id %q", x)
		}
		return ID(n), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("invalid course id %q", x)
		}
		return ID(n), nil
	case int:
		return ID(x), nil
	case int64:
		return ID(x), nil
	case ID:
		return x, nil
	default:
		return 0, fmt.Errorf("invalid course id of type %T", v)
	}
}

// Set is a membership set of course ids.
type Set map[ID]struct{}

// NewSet builds a Set from ids.
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Contains(id ID) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Add(id ID) {
	s[id] = struct{}{}
}

func (s Set) Len() int {
	return len(s)
}
