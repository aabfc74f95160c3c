package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// SelectAll is the sentinel accepted in place of an index list
const SelectAll = "all"

// Selection chooses which endpoints become load-test tasks. The zero value selects all endpoints.
type Selection struct {
	explicit bool
	indices  []int
}

// AllEndpoints returns a selection of every endpoint
func AllEndpoints() Selection {
	return Selection{}
}

// SelectIndices returns a selection of the given positions, in the given order
func SelectIndices(indices ...int) Selection {
	return Selection{explicit: true, indices: append(make([]int, 0, len(indices)), indices...)}
}

// ParseSelection parses "all", "" or a comma-separated list of integer positions
func ParseSelection(value string) (Selection, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || strings.EqualFold(trimmed, SelectAll) {
		return AllEndpoints(), nil
	}

	parts := strings.Split(trimmed, ",")
	indices := make([]int, 0, len(parts))
	for _, part := range parts {
		idx, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Selection{}, &InvalidSelectionError{Value: value}
		}
		indices = append(indices, idx)
	}
	return SelectIndices(indices...), nil
}

// IsAll reports whether the selection covers every endpoint
func (s Selection) IsAll() bool {
	return !s.explicit
}

// Indices returns a copy of the explicit positions, or nil for an "all" selection
func (s Selection) Indices() []int {
	if !s.explicit {
		return nil
	}
	return append(make([]int, 0, len(s.indices)), s.indices...)
}

// Resolve returns the positions selected out of n endpoints. Out-of-range positions are dropped.
func (s Selection) Resolve(n int) []int {
	resolved := make([]int, 0, n)
	if !s.explicit {
		for i := 0; i < n; i++ {
			resolved = append(resolved, i)
		}
		return resolved
	}
	for _, idx := range s.indices {
		if idx >= 0 && idx < n {
			resolved = append(resolved, idx)
		}
	}
	return resolved
}

// String renders the selection in the form accepted by ParseSelection
func (s Selection) String() string {
	if !s.explicit {
		return SelectAll
	}
	parts := make([]string, len(s.indices))
	for i, idx := range s.indices {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ",")
}

// MarshalJSON encodes the selection as "all" or an index array
func (s Selection) MarshalJSON() ([]byte, error) {
	if !s.explicit {
		return json.Marshal(SelectAll)
	}
	return json.Marshal(s.Indices())
}

// UnmarshalJSON accepts "all", null or an array of integers
func (s *Selection) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = AllEndpoints()
		return nil
	}

	var word string
	if err := json.Unmarshal(trimmed, &word); err == nil {
		if word == SelectAll {
			*s = AllEndpoints()
			return nil
		}
		return &InvalidSelectionError{Value: string(trimmed)}
	}

	var indices []int
	if err := json.Unmarshal(trimmed, &indices); err != nil {
		return &InvalidSelectionError{Value: string(trimmed)}
	}
	*s = SelectIndices(indices...)
	return nil
}
