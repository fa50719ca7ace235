package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answers map[FacetID]Value

func (a answers) Get(id FacetID) (Value, bool) {
	v, ok := a[id]
	return v, ok
}

func TestDefaultSchema_Order(t *testing.T) {
	s, err := DefaultSchema()
	require.NoError(t, err)

	var ids []FacetID
	for _, f := range s.Facets() {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []FacetID{Category, OpeningSystem, HasBlind, Motorization, FillMaterial, LeafCount}, ids)

	leaves, ok := s.Facet(LeafCount)
	require.True(t, ok)
	assert.True(t, leaves.Numeric)
	assert.Equal(t, "Quantas folhas?", leaves.Title)

	i, ok := s.Ordinal(Motorization)
	require.True(t, ok)
	assert.Equal(t, 3, i)
	assert.Equal(t, Motorization, s.At(3).ID)
}

func TestFacet_LabelAndIcon(t *testing.T) {
	s, err := DefaultSchema()
	require.NoError(t, err)

	material, _ := s.Facet(FillMaterial)
	assert.Equal(t, "Vidro + Veneziana", material.Label("vidro + veneziana"))
	assert.Equal(t, "fa-grip-vertical", material.Icon("vidro + veneziana"))
	assert.Equal(t, "aco", material.Label("aco"), "unknown value falls back to itself")
	assert.Equal(t, DefaultIcon, material.Icon("aco"))

	leaves, _ := s.Facet(LeafCount)
	assert.Equal(t, "2 Folhas", leaves.Label(Int(2)))
	assert.Equal(t, "fa-6", leaves.Icon("6"))
}

func TestFacet_Applicable(t *testing.T) {
	s, err := DefaultSchema()
	require.NoError(t, err)
	motor, _ := s.Facet(Motorization)

	assert.False(t, motor.Applicable(answers{}), "unanswered prerequisite")
	assert.False(t, motor.Applicable(answers{HasBlind: "nao"}))
	assert.True(t, motor.Applicable(answers{HasBlind: "sim"}))

	category, _ := s.Facet(Category)
	assert.True(t, category.Applicable(answers{}))
}

func TestNewSchema_Validation(t *testing.T) {
	tests := []struct {
		name   string
		facets []Facet
	}{
		{"empty", nil},
		{"missing id", []Facet{{Field: FieldCategory}}},
		{"unknown field", []Facet{{ID: "x", Field: "colour"}}},
		{"duplicate", []Facet{{ID: "x", Field: FieldCategory}, {ID: "x", Field: FieldHasBlind}}},
		{"forward prerequisite", []Facet{
			{ID: "a", Field: FieldCategory, Requires: []Condition{{Facet: "b", Equals: "sim"}}},
			{ID: "b", Field: FieldHasBlind},
		}},
		{"self prerequisite", []Facet{
			{ID: "a", Field: FieldCategory, Requires: []Condition{{Facet: "a", Equals: "sim"}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema(tt.facets)
			assert.ErrorIs(t, err, ErrInvalidSchema)
		})
	}
}

func TestParseSchema_NumericKeys(t *testing.T) {
	s, err := ParseSchema([]byte(`
- id: leaves
  title: Leaves?
  field: leaf_count
  numeric: true
  labels:
    1: One
    2: Two
`))
	require.NoError(t, err)
	f, _ := s.Facet("leaves")
	assert.Equal(t, "One", f.Label("1"))
	assert.Equal(t, "Two", f.Label(Int(2)))
}
