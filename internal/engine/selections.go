package engine

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/HendryAvila/aluconfig/internal/catalog"
)

// Selections maps facets to answers. A facet that is absent is unset.
//
// Selections are values: every operation returns a new set and leaves the
// receiver untouched, so one instance can be shared freely between a
// session, the decision loop and a background persistence call.
// The zero value is the empty set.
type Selections struct {
	values map[catalog.FacetID]catalog.Value
}

// NewSelections copies m into a Selections.
func NewSelections(m map[catalog.FacetID]catalog.Value) Selections {
	if len(m) == 0 {
		return Selections{}
	}
	values := make(map[catalog.FacetID]catalog.Value, len(m))
	for k, v := range m {
		values[k] = v
	}
	return Selections{values: values}
}

// Get implements catalog.Answers.
func (s Selections) Get(id catalog.FacetID) (catalog.Value, bool) {
	v, ok := s.values[id]
	return v, ok
}

// IsSet reports whether id has an answer.
func (s Selections) IsSet(id catalog.FacetID) bool {
	_, ok := s.values[id]
	return ok
}

// Len returns the number of answered facets.
func (s Selections) Len() int { return len(s.values) }

// Map returns a copy of the answers.
func (s Selections) Map() map[catalog.FacetID]catalog.Value {
	out := make(map[catalog.FacetID]catalog.Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Equal reports whether both sets hold the same answers.
func (s Selections) Equal(o Selections) bool {
	if len(s.values) != len(o.values) {
		return false
	}
	for k, v := range s.values {
		if ov, ok := o.values[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// String renders the answers sorted by facet id, for logs.
func (s Selections) String() string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	out := "{"
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%q", k, s.values[catalog.FacetID(k)])
	}
	return out + "}"
}

func (s Selections) with(id catalog.FacetID, v catalog.Value) Selections {
	values := make(map[catalog.FacetID]catalog.Value, len(s.values)+1)
	for k, old := range s.values {
		values[k] = old
	}
	values[id] = v
	return Selections{values: values}
}

func (s Selections) without(ids ...catalog.FacetID) Selections {
	if len(s.values) == 0 {
		return s
	}
	values := make(map[catalog.FacetID]catalog.Value, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	for _, id := range ids {
		delete(values, id)
	}
	return Selections{values: values}
}

// MarshalJSON writes the answered facets only.
func (s Selections) MarshalJSON() ([]byte, error) {
	if s.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.values)
}

// UnmarshalJSON accepts string or number answers; null means unset.
func (s *Selections) UnmarshalJSON(data []byte) error {
	var raw map[catalog.FacetID]*catalog.Value
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("engine: decode selections: %w", err)
	}
	values := make(map[catalog.FacetID]catalog.Value, len(raw))
	for k, v := range raw {
		if v != nil {
			values[k] = *v
		}
	}
	*s = Selections{values: values}
	return nil
}
