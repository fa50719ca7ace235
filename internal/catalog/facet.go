package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FacetID identifies one question of the configurator.
type FacetID string

// Built-in facets, in question order.
const (
	Category      FacetID = "category"
	OpeningSystem FacetID = "opening_system"
	HasBlind      FacetID = "has_blind"
	Motorization  FacetID = "motorization"
	FillMaterial  FacetID = "fill_material"
	LeafCount     FacetID = "leaf_count"
)

// DefaultIcon is shown for values that have no icon of their own.
const DefaultIcon = "fa-check"

// ErrInvalidSchema is wrapped by every facet schema validation failure.
var ErrInvalidSchema = errors.New("invalid facet schema")

//go:embed data/facets.yaml
var embeddedFacets []byte

// Answers is the read side of a selection set.
type Answers interface {
	Get(id FacetID) (Value, bool)
}

// Condition holds when the answer to Facet equals Equals.
type Condition struct {
	Facet  FacetID `yaml:"facet" json:"facet"`
	Equals Value   `yaml:"equals" json:"equals"`
}

// Facet is one question: which product field it narrows on, how its
// values are shown, and when it is asked at all.
type Facet struct {
	ID       FacetID          `yaml:"id" json:"id"`
	Title    string           `yaml:"title" json:"title"`
	Field    string           `yaml:"field" json:"field"`
	Numeric  bool             `yaml:"numeric" json:"numeric"`
	Labels   map[Value]string `yaml:"labels" json:"labels,omitempty"`
	Icons    map[Value]string `yaml:"icons" json:"icons,omitempty"`
	Requires []Condition      `yaml:"requires" json:"requires,omitempty"`
}

// Label is the display text for v, falling back to v itself.
func (f Facet) Label(v Value) string {
	if l, ok := f.Labels[v]; ok && l != "" {
		return l
	}
	return string(v)
}

// Icon is the icon name for v, falling back to DefaultIcon.
func (f Facet) Icon(v Value) string {
	if i, ok := f.Icons[v]; ok && i != "" {
		return i
	}
	return DefaultIcon
}

// Applicable reports whether every prerequisite of f holds on a.
// An unanswered prerequisite does not hold.
func (f Facet) Applicable(a Answers) bool {
	for _, c := range f.Requires {
		v, ok := a.Get(c.Facet)
		if !ok || v != c.Equals {
			return false
		}
	}
	return true
}

// Schema is the ordered facet list.
type Schema struct {
	facets []Facet
	index  map[FacetID]int
}

// NewSchema validates facets and fixes their order.
func NewSchema(facets []Facet) (*Schema, error) {
	if len(facets) == 0 {
		return nil, fmt.Errorf("%w: no facets", ErrInvalidSchema)
	}
	s := &Schema{
		facets: make([]Facet, len(facets)),
		index:  make(map[FacetID]int, len(facets)),
	}
	copy(s.facets, facets)

	for i, f := range s.facets {
		if f.ID == "" {
			return nil, fmt.Errorf("%w: facet %d has no id", ErrInvalidSchema, i)
		}
		if _, dup := s.index[f.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate facet %q", ErrInvalidSchema, f.ID)
		}
		if !KnownField(f.Field) {
			return nil, fmt.Errorf("%w: facet %q maps to unknown field %q", ErrInvalidSchema, f.ID, f.Field)
		}
		for _, c := range f.Requires {
			j, ok := s.index[c.Facet]
			if !ok || j >= i {
				return nil, fmt.Errorf("%w: facet %q requires %q, which must come before it", ErrInvalidSchema, f.ID, c.Facet)
			}
		}
		s.index[f.ID] = i
	}
	return s, nil
}

// ParseSchema decodes a YAML facet list.
func ParseSchema(data []byte) (*Schema, error) {
	var facets []Facet
	if err := yaml.Unmarshal(data, &facets); err != nil {
		return nil, fmt.Errorf("catalog: decode facets: %w", err)
	}
	return NewSchema(facets)
}

// LoadSchema reads a facet list from path. An empty path loads the
// built-in schema.
func LoadSchema(path string) (*Schema, error) {
	if path == "" {
		return DefaultSchema()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return ParseSchema(data)
}

// DefaultSchema returns the built-in six-facet schema.
func DefaultSchema() (*Schema, error) {
	return ParseSchema(embeddedFacets)
}

// Facets returns the facets in order. The slice is a copy.
func (s *Schema) Facets() []Facet {
	out := make([]Facet, len(s.facets))
	copy(out, s.facets)
	return out
}

// Len returns the number of facets.
func (s *Schema) Len() int { return len(s.facets) }

// At returns the facet at ordinal i.
func (s *Schema) At(i int) Facet { return s.facets[i] }

// Facet finds a facet by id.
func (s *Schema) Facet(id FacetID) (Facet, bool) {
	i, ok := s.index[id]
	if !ok {
		return Facet{}, false
	}
	return s.facets[i], true
}

// Ordinal returns the position of id in question order.
func (s *Schema) Ordinal(id FacetID) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}
