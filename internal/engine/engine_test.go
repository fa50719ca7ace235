package engine

import (
	"encoding/json"
	"testing"

	"github.com/HendryAvila/aluconfig/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Helpers ─────────────────────────────────────────────────────────────────

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Default()
	require.NoError(t, err)
	return e
}

func sel(pairs ...string) Selections {
	m := make(map[catalog.FacetID]catalog.Value, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[catalog.FacetID(pairs[i])] = catalog.Value(pairs[i+1])
	}
	return NewSelections(m)
}

func ids(products []catalog.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func product(id, leaves string) catalog.Product {
	n, _ := catalog.Value(leaves).Num()
	return catalog.Product{
		ID: id, Slug: id, Category: "janela", OpeningSystem: "giro",
		HasBlind: "nao", FillMaterial: "vidro", LeafCount: int(n),
	}
}

func customEngine(t *testing.T, facets []catalog.Facet, products []catalog.Product) *Engine {
	t.Helper()
	schema, err := catalog.NewSchema(facets)
	require.NoError(t, err)
	cat, err := catalog.New(products)
	require.NoError(t, err)
	return New(schema, cat)
}

// ─── Transitions ─────────────────────────────────────────────────────────────

func TestApply_ClearsLaterFacets(t *testing.T) {
	e := newTestEngine(t)
	start := sel("category", "janela", "opening_system", "janela-correr", "has_blind", "sim", "motorization", "manual", "fill_material", "vidro")

	got := e.Apply(start, catalog.OpeningSystem, "maxim-ar")
	assert.True(t, got.Equal(sel("category", "janela", "opening_system", "maxim-ar")), got.String())

	assert.Equal(t, 5, start.Len(), "input is not mutated")
}

func TestApply_DependentFacetCleared(t *testing.T) {
	e := newTestEngine(t)
	start := sel("category", "porta", "opening_system", "porta-correr", "has_blind", "sim", "motorization", "motorizada")

	got := e.Apply(start, catalog.HasBlind, "nao")
	assert.False(t, got.IsSet(catalog.Motorization))
	v, _ := got.Get(catalog.HasBlind)
	assert.Equal(t, catalog.Value("nao"), v)
}

func TestApply_NotApplicableFacetIsNotKept(t *testing.T) {
	e := newTestEngine(t)

	got := e.Apply(sel("category", "janela"), catalog.Motorization, "manual")
	assert.False(t, got.IsSet(catalog.Motorization), "prerequisite unanswered")

	got = e.Apply(sel("has_blind", "nao"), catalog.Motorization, "manual")
	assert.False(t, got.IsSet(catalog.Motorization), "prerequisite not satisfied")

	got = e.Apply(sel("has_blind", "sim"), catalog.Motorization, "manual")
	assert.True(t, got.IsSet(catalog.Motorization))
}

func TestApply_UnknownFacet(t *testing.T) {
	e := newTestEngine(t)
	start := sel("category", "janela")
	got := e.Apply(start, "colour", "red")
	assert.True(t, got.Equal(start))
}

func TestAnswer_PromotesInferredPrerequisite(t *testing.T) {
	manual, motor := "manual", "motorizada"
	a := product("a", "2")
	a.HasBlind, a.BlindMotorization = "sim", &manual
	b := product("b", "2")
	b.HasBlind, b.BlindMotorization = "sim", &motor

	e := customEngine(t,
		[]catalog.Facet{
			{ID: catalog.HasBlind, Field: catalog.FieldHasBlind},
			{ID: catalog.Motorization, Field: catalog.FieldBlindMotorization,
				Requires: []catalog.Condition{{Facet: catalog.HasBlind, Equals: "sim"}}},
		},
		[]catalog.Product{a, b},
	)

	out := e.Decide(Selections{})
	require.NotNil(t, out.PendingQuestion)
	require.Equal(t, catalog.Motorization, out.PendingQuestion.FacetID)
	assert.Equal(t, []catalog.FacetID{catalog.HasBlind}, out.Inferred)

	assert.False(t, e.Apply(Selections{}, catalog.Motorization, "manual").IsSet(catalog.Motorization))

	s := e.Answer(Selections{}, catalog.Motorization, "manual")
	v, ok := s.Get(catalog.Motorization)
	require.True(t, ok)
	assert.Equal(t, catalog.Value("manual"), v)
	assert.Equal(t, []string{"a"}, ids(e.Decide(s).CandidateProducts))
}

func TestAnswer_ActsLikeApplyOtherwise(t *testing.T) {
	e := newTestEngine(t)
	s := sel("category", "janela", "opening_system", "janela-correr")
	assert.True(t, e.Apply(s, catalog.HasBlind, "sim").Equal(e.Answer(s, catalog.HasBlind, "sim")))
	assert.True(t, s.Equal(e.Answer(s, "unknown", "x")))
}

func TestBack(t *testing.T) {
	e := newTestEngine(t)
	start := sel("category", "janela", "opening_system", "janela-correr", "has_blind", "sim", "motorization", "manual")

	assert.True(t, e.Back(start, catalog.OpeningSystem).Equal(sel("category", "janela")))
	assert.True(t, e.Back(start, catalog.Category).Equal(Selections{}))
	assert.Equal(t, 0, e.Reset().Len())
}

func TestNormalize(t *testing.T) {
	e := newTestEngine(t)
	got := e.Normalize(sel("category", "porta", "colour", "red", "has_blind", "nao", "motorization", "manual", "leaf_count", "2"))
	assert.True(t, got.Equal(sel("category", "porta", "has_blind", "nao", "leaf_count", "2")), got.String())
}

// ─── Filtering ───────────────────────────────────────────────────────────────

func TestMatches_Empty(t *testing.T) {
	e := newTestEngine(t)
	assert.Len(t, e.Matches(Selections{}), 27)
}

func TestMatches_IgnoresDependentWhenPrerequisiteUnmet(t *testing.T) {
	e := newTestEngine(t)

	without := e.Matches(sel("category", "porta", "has_blind", "nao"))
	with := e.Matches(sel("category", "porta", "has_blind", "nao", "motorization", "manual"))
	assert.Equal(t, ids(without), ids(with))
	assert.Len(t, with, 15)

	onlyMotor := e.Matches(sel("motorization", "manual"))
	assert.Len(t, onlyMotor, 27, "prerequisite unanswered")
}

func TestMatches_NullFieldNeverMatches(t *testing.T) {
	manual := "manual"
	withMotor := product("with", "2")
	withMotor.HasBlind = "sim"
	withMotor.BlindMotorization = &manual

	e := customEngine(t,
		[]catalog.Facet{{ID: "motor", Field: catalog.FieldBlindMotorization}},
		[]catalog.Product{product("none", "2"), withMotor},
	)
	assert.Equal(t, []string{"with"}, ids(e.Matches(sel("motor", "manual"))))
}

func TestMatches_LooseCoercion(t *testing.T) {
	e := newTestEngine(t)

	var s Selections
	require.NoError(t, json.Unmarshal([]byte(`{"category":"porta","opening_system":"giro","leaf_count":2}`), &s))
	asText := e.Matches(sel("category", "porta", "opening_system", "giro", "leaf_count", "2"))

	assert.Equal(t, ids(asText), ids(e.Matches(s)))
	assert.Len(t, asText, 5)
}

func TestMatches_MonotonicNarrowing(t *testing.T) {
	e := newTestEngine(t)
	bases := []Selections{
		{},
		sel("category", "janela"),
		sel("category", "porta", "has_blind", "sim"),
		sel("motorization", "manual"),
	}
	for _, base := range bases {
		before := e.Matches(base)
		for _, f := range e.Schema().Facets() {
			if base.IsSet(f.ID) {
				continue
			}
			for _, v := range Values(f, e.Catalog().Products()) {
				after := e.Matches(base.with(f.ID, v))
				assert.Subset(t, ids(before), ids(after), "%s + %s=%s", base, f.ID, v)
			}
		}
	}
}

// ─── Decide ──────────────────────────────────────────────────────────────────

func TestDecide_FirstQuestionIsCategory(t *testing.T) {
	e := newTestEngine(t)
	out := e.Decide(Selections{})

	assert.False(t, out.IsFinal)
	require.NotNil(t, out.PendingQuestion)
	assert.Equal(t, catalog.Category, out.PendingQuestion.FacetID)
	assert.Equal(t, "O que você procura?", out.PendingQuestion.Title)
	assert.Equal(t, []catalog.Value{"janela", "porta"}, out.PendingQuestion.Values())
	assert.Len(t, out.CandidateProducts, 27)
	assert.Equal(t, KindQuestion, out.Kind())

	first := out.PendingQuestion.Options[0]
	assert.Equal(t, "Janela", first.Label)
	assert.Equal(t, "fa-table-columns", first.Icon)
	assert.Equal(t, "images/janela_correr_persiana-sim_motorizada_2folhas.webp", first.Image)
}

func TestDecide_SingleMatch(t *testing.T) {
	e := newTestEngine(t)
	out := e.Decide(sel("category", "janela", "opening_system", "janela-correr", "has_blind", "sim", "motorization", "motorizada"))

	assert.True(t, out.IsFinal)
	assert.Nil(t, out.PendingQuestion)
	require.Len(t, out.CandidateProducts, 1)
	p, ok := out.Single()
	require.True(t, ok)
	assert.Equal(t, "j-correr-persiana-motorizada-vidro-2", p.ID)
	assert.Equal(t, KindMatch, out.Kind())
}

func TestDecide_NoMatch(t *testing.T) {
	e := newTestEngine(t)
	out := e.Decide(sel("category", "janela", "opening_system", "giro"))

	assert.True(t, out.IsFinal)
	assert.Empty(t, out.CandidateProducts)
	assert.NotNil(t, out.CandidateProducts, "empty list, not null")
	assert.Equal(t, KindNoMatch, out.Kind())

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"candidateProducts":[]`)
	assert.Contains(t, string(data), `"pendingQuestion":null`)
}

func TestDecide_DeselectingBlindDropsMotorization(t *testing.T) {
	e := newTestEngine(t)
	s := sel("category", "porta", "opening_system", "porta-correr", "has_blind", "sim", "motorization", "motorizada")
	s = e.Apply(s, catalog.HasBlind, "nao")
	assert.False(t, s.IsSet(catalog.Motorization))

	out := e.Decide(s)
	require.NotNil(t, out.PendingQuestion)
	assert.Equal(t, catalog.FillMaterial, out.PendingQuestion.FacetID)
	assert.Equal(t, []catalog.Value{"vidro", "vidro + veneziana"}, out.PendingQuestion.Values())
	assert.False(t, out.Selections.IsSet(catalog.Motorization))

	s = e.Apply(out.Selections, catalog.HasBlind, "sim")
	out = e.Decide(s)
	require.NotNil(t, out.PendingQuestion)
	assert.Equal(t, catalog.Motorization, out.PendingQuestion.FacetID)
	assert.Equal(t, []catalog.Value{"manual", "motorizada"}, out.PendingQuestion.Values())
}

func TestDecide_AutoAssignsSingleValueFacets(t *testing.T) {
	e := newTestEngine(t)
	out := e.Decide(sel("category", "janela", "opening_system", "maxim-ar"))

	require.NotNil(t, out.PendingQuestion)
	assert.Equal(t, catalog.LeafCount, out.PendingQuestion.FacetID)
	assert.Equal(t, []catalog.Value{"1", "2", "3"}, out.PendingQuestion.Values())
	assert.Equal(t, []catalog.FacetID{catalog.HasBlind, catalog.FillMaterial}, out.Inferred)

	v, _ := out.Selections.Get(catalog.HasBlind)
	assert.Equal(t, catalog.Value("nao"), v)
	v, _ = out.Selections.Get(catalog.FillMaterial)
	assert.Equal(t, catalog.Value("vidro"), v)
	assert.False(t, out.Selections.IsSet(catalog.Motorization))
}

func TestDecide_LexicographicOptions(t *testing.T) {
	e := newTestEngine(t)
	out := e.Decide(sel("category", "porta", "opening_system", "giro"))

	require.NotNil(t, out.PendingQuestion)
	assert.Equal(t, catalog.FillMaterial, out.PendingQuestion.FacetID)
	assert.Equal(t,
		[]catalog.Value{"lambri", "veneziana", "vidro", "vidro + lambri", "vidro + veneziana"},
		out.PendingQuestion.Values())
}

func TestDecide_NumericOptionsSortByNumber(t *testing.T) {
	schema, err := catalog.DefaultSchema()
	require.NoError(t, err)
	cat, err := catalog.New([]catalog.Product{product("a", "10"), product("b", "2"), product("c", "6")})
	require.NoError(t, err)
	e := New(schema, cat)

	out := e.Decide(Selections{})
	require.NotNil(t, out.PendingQuestion)
	assert.Equal(t, catalog.LeafCount, out.PendingQuestion.FacetID)
	assert.Equal(t, []catalog.Value{"2", "6", "10"}, out.PendingQuestion.Values())
	assert.Equal(t, []catalog.FacetID{catalog.Category, catalog.OpeningSystem, catalog.HasBlind, catalog.FillMaterial}, out.Inferred)
}

func TestDecide_NoValuesAmongCandidates(t *testing.T) {
	e := customEngine(t,
		[]catalog.Facet{{ID: "motor", Field: catalog.FieldBlindMotorization}},
		[]catalog.Product{product("a", "1"), product("b", "2")},
	)
	out := e.Decide(Selections{})
	assert.True(t, out.IsFinal)
	assert.Empty(t, out.CandidateProducts)
}

func TestDecide_AllFacetsConsumed(t *testing.T) {
	twin := product("b", "2")
	e := customEngine(t,
		[]catalog.Facet{{ID: "cat", Field: catalog.FieldCategory}},
		[]catalog.Product{product("a", "2"), twin},
	)
	out := e.Decide(Selections{})
	assert.True(t, out.IsFinal)
	assert.Equal(t, []string{"a", "b"}, ids(out.CandidateProducts))
	assert.Equal(t, []catalog.FacetID{"cat"}, out.Inferred)
}

func TestDecide_Idempotent(t *testing.T) {
	e := newTestEngine(t)
	inputs := []Selections{
		{},
		sel("category", "janela", "opening_system", "maxim-ar"),
		sel("category", "porta", "opening_system", "giro", "fill_material", "vidro"),
		sel("category", "janela", "opening_system", "giro"),
	}
	for _, in := range inputs {
		a := e.Decide(in)
		b := e.Decide(in)
		assert.Equal(t, a, b)

		again := e.Decide(a.Selections)
		assert.True(t, a.Selections.Equal(again.Selections), in.String())
		assert.Equal(t, a.PendingQuestion, again.PendingQuestion)
		assert.Equal(t, ids(a.CandidateProducts), ids(again.CandidateProducts))
	}
}

// TestDecide_ExhaustiveWalk answers every question with every option and
// checks each path terminates, narrows, and that every product is reached
// exactly once.
func TestDecide_ExhaustiveWalk(t *testing.T) {
	e := newTestEngine(t)
	reached := make(map[string]int)

	var walk func(s Selections, depth, prev int)
	walk = func(s Selections, depth, prev int) {
		require.LessOrEqual(t, depth, e.Schema().Len(), "walk too deep")
		out := e.Decide(s)
		require.LessOrEqual(t, len(out.CandidateProducts), prev)

		if out.IsFinal {
			for _, p := range out.CandidateProducts {
				reached[p.ID]++
			}
			return
		}
		q := out.PendingQuestion
		require.NotNil(t, q)
		require.GreaterOrEqual(t, len(q.Options), 2)
		if q.FacetID == catalog.Motorization {
			v, _ := out.Selections.Get(catalog.HasBlind)
			require.Equal(t, catalog.Value("sim"), v, "motorization asked without a blind: %s", out.Selections)
		}
		for _, opt := range q.Options {
			walk(e.Apply(out.Selections, q.FacetID, opt.Value), depth+1, len(out.CandidateProducts))
		}
	}
	walk(Selections{}, 0, e.Catalog().Len())

	assert.Len(t, reached, 27)
	for id, n := range reached {
		assert.Equal(t, 1, n, id)
	}
}

// reachable returns every selection state a conversation can pass
// through, starting from no answers.
func reachable(t *testing.T, e *Engine) []Selections {
	t.Helper()
	var states []Selections
	seen := make(map[string]bool)
	queue := []Selections{{}}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if seen[s.String()] {
			continue
		}
		seen[s.String()] = true
		states = append(states, s)

		out := e.Decide(s)
		if out.PendingQuestion == nil {
			continue
		}
		for _, opt := range out.PendingQuestion.Options {
			queue = append(queue, e.Answer(s, out.PendingQuestion.FacetID, opt.Value))
		}
	}
	return states
}

func TestApply_Idempotent(t *testing.T) {
	e := newTestEngine(t)
	products := e.Catalog().Products()
	states := reachable(t, e)
	require.Greater(t, len(states), 1)

	for _, s := range states {
		for _, f := range e.Schema().Facets() {
			for _, v := range Values(f, products) {
				once := e.Apply(s, f.ID, v)
				twice := e.Apply(once, f.ID, v)
				assert.True(t, once.Equal(twice), "%s then %s=%s: %s != %s", s, f.ID, v, once, twice)

				if blind, _ := once.Get(catalog.HasBlind); blind != "sim" {
					assert.False(t, once.IsSet(catalog.Motorization), "motorization kept without a blind: %s", once)
				}
			}
		}
	}
}

// ─── Presentation helpers ────────────────────────────────────────────────────

func TestAnsweredAndChips(t *testing.T) {
	e := newTestEngine(t)
	answered := e.Answered(sel("leaf_count", "2", "category", "porta"))
	require.Len(t, answered, 2)
	assert.Equal(t, catalog.Category, answered[0].Facet.ID)
	assert.Equal(t, "Porta", answered[0].Label)
	assert.Equal(t, "2 Folhas", answered[1].Label)

	p, _ := e.Catalog().Lookup("p-giro-sem-vidro-lambri-1")
	assert.Equal(t, []string{"Porta", "De Giro", "Sem Persiana", "Vidro + Lambri", "1 Folha"}, e.Chips(p))
	assert.Equal(t, "Porta · De Giro · Sem Persiana · Vidro + Lambri · 1 Folha", e.Describe(p))
}

func TestSelections_JSON(t *testing.T) {
	var s Selections
	require.NoError(t, json.Unmarshal([]byte(`{"category":"janela","motorization":null,"leaf_count":3}`), &s))
	assert.True(t, s.Equal(sel("category", "janela", "leaf_count", "3")))

	data, err := json.Marshal(Selections{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	data, err = json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"category":"janela","leaf_count":"3"}`, string(data))
}
