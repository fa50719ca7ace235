// Package engine decides, from a partial set of answers, which question
// to ask next or which products remain.
//
// Everything here is pure: the same catalog, schema and selections always
// produce the same outcome, and nothing is cached between calls.
package engine

import (
	"sort"
	"strings"

	"github.com/HendryAvila/aluconfig/internal/catalog"
)

// Engine binds a facet schema to a product catalog.
type Engine struct {
	schema  *catalog.Schema
	catalog *catalog.Catalog
}

// New creates an Engine.
func New(schema *catalog.Schema, cat *catalog.Catalog) *Engine {
	return &Engine{schema: schema, catalog: cat}
}

// Default creates an Engine over the built-in schema and catalog.
func Default() (*Engine, error) {
	schema, err := catalog.DefaultSchema()
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Default()
	if err != nil {
		return nil, err
	}
	return New(schema, cat), nil
}

// Schema returns the facet schema.
func (e *Engine) Schema() *catalog.Schema { return e.schema }

// Catalog returns the product catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// ─── Transitions ─────────────────────────────────────────────────────────────

// Apply answers facet id with value. Every facet after id is cleared,
// then every facet whose prerequisites no longer hold is cleared too.
// An unknown facet leaves sel unchanged.
func (e *Engine) Apply(sel Selections, id catalog.FacetID, value catalog.Value) Selections {
	return e.transition(sel, id, &value)
}

// Answer applies a reply to a question Decide asked. When the engine
// inferred a prerequisite of id, that answer is promoted into sel first;
// otherwise pruning would discard the reply.
func (e *Engine) Answer(sel Selections, id catalog.FacetID, value catalog.Value) Selections {
	f, ok := e.schema.Facet(id)
	if !ok {
		return sel
	}
	if !f.Applicable(sel) {
		decided := e.Decide(sel).Selections
		for _, c := range f.Requires {
			if v, ok := decided.Get(c.Facet); ok && !sel.IsSet(c.Facet) {
				sel = sel.with(c.Facet, v)
			}
		}
	}
	return e.Apply(sel, id, value)
}

// Back unsets facet id and everything after it: the "jump back" action.
func (e *Engine) Back(sel Selections, id catalog.FacetID) Selections {
	return e.transition(sel, id, nil)
}

// Reset returns the empty selection set.
func (e *Engine) Reset() Selections { return Selections{} }

// Known reports whether id is a facet of the schema.
func (e *Engine) Known(id catalog.FacetID) bool {
	_, ok := e.schema.Ordinal(id)
	return ok
}

// Normalize drops answers for unknown facets and for facets whose
// prerequisites do not hold. Selections coming from outside the process
// go through here first.
func (e *Engine) Normalize(sel Selections) Selections {
	var drop []catalog.FacetID
	for id := range sel.values {
		if !e.Known(id) {
			drop = append(drop, id)
		}
	}
	return e.prune(sel.without(drop...))
}

func (e *Engine) transition(sel Selections, id catalog.FacetID, value *catalog.Value) Selections {
	k, ok := e.schema.Ordinal(id)
	if !ok {
		return sel
	}

	var later []catalog.FacetID
	for i := k + 1; i < e.schema.Len(); i++ {
		later = append(later, e.schema.At(i).ID)
	}
	next := sel.without(later...)
	if value != nil {
		next = next.with(id, *value)
	} else {
		next = next.without(id)
	}
	return e.prune(next)
}

// prune clears non-applicable facets. Prerequisites always precede their
// dependents, so one pass in order sees every prerequisite already pruned.
func (e *Engine) prune(sel Selections) Selections {
	for _, f := range e.schema.Facets() {
		if sel.IsSet(f.ID) && !f.Applicable(sel) {
			sel = sel.without(f.ID)
		}
	}
	return sel
}

// ─── Filtering ───────────────────────────────────────────────────────────────

// Matches returns, in catalog order, the products that agree with every
// answered facet. Answers to facets whose prerequisites do not hold are
// ignored. A product with a null field never matches an answered facet.
func (e *Engine) Matches(sel Selections) []catalog.Product {
	facets := e.activeFacets(sel)
	out := make([]catalog.Product, 0, e.catalog.Len())
	e.catalog.Each(func(p catalog.Product) bool {
		if matchesAll(p, facets, sel) {
			out = append(out, p)
		}
		return true
	})
	return out
}

func (e *Engine) activeFacets(sel Selections) []catalog.Facet {
	var active []catalog.Facet
	for _, f := range e.schema.Facets() {
		if sel.IsSet(f.ID) && f.Applicable(sel) {
			active = append(active, f)
		}
	}
	return active
}

func matchesAll(p catalog.Product, facets []catalog.Facet, sel Selections) bool {
	for _, f := range facets {
		want, _ := sel.Get(f.ID)
		got, ok := p.Field(f.Field)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// ─── Options ─────────────────────────────────────────────────────────────────

// Values returns the distinct non-null values of f among products, in
// presentation order.
func Values(f catalog.Facet, products []catalog.Product) []catalog.Value {
	seen := make(map[catalog.Value]bool)
	var values []catalog.Value
	for _, p := range products {
		v, ok := p.Field(f.Field)
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	SortValues(values, f.Numeric)
	return values
}

// SortValues orders values in place: ascending by number for numeric
// facets (non-numbers last), by text otherwise.
func SortValues(values []catalog.Value, numeric bool) {
	if !numeric {
		sort.SliceStable(values, func(i, j int) bool { return values[i] < values[j] })
		return
	}
	sort.SliceStable(values, func(i, j int) bool {
		a, aok := values[i].Num()
		b, bok := values[j].Num()
		switch {
		case aok && bok:
			if a != b {
				return a < b
			}
			return values[i] < values[j]
		case aok != bok:
			return aok
		default:
			return values[i] < values[j]
		}
	})
}

// Options builds the presentable choices of f among candidates.
func (e *Engine) Options(f catalog.Facet, candidates []catalog.Product) []Option {
	values := Values(f, candidates)
	opts := make([]Option, 0, len(values))
	for _, v := range values {
		opts = append(opts, Option{
			Value: v,
			Label: f.Label(v),
			Icon:  f.Icon(v),
			Image: e.previewImage(f, v, candidates),
		})
	}
	return opts
}

// previewImage is the image of the first candidate carrying v.
func (e *Engine) previewImage(f catalog.Facet, v catalog.Value, candidates []catalog.Product) string {
	for _, p := range candidates {
		if got, ok := p.Field(f.Field); ok && got == v {
			return e.catalog.ImageURL(p)
		}
	}
	return ""
}

// ─── Presentation helpers ────────────────────────────────────────────────────

// Answer is one answered facet with its display label.
type Answer struct {
	Facet catalog.Facet
	Value catalog.Value
	Label string
}

// Answered lists the answered facets in question order.
func (e *Engine) Answered(sel Selections) []Answer {
	var out []Answer
	for _, f := range e.schema.Facets() {
		if v, ok := sel.Get(f.ID); ok {
			out = append(out, Answer{Facet: f, Value: v, Label: f.Label(v)})
		}
	}
	return out
}

// Chips are the display labels of a product's facet values, skipping
// facets the product has no value for.
func (e *Engine) Chips(p catalog.Product) []string {
	var chips []string
	for _, f := range e.schema.Facets() {
		if v, ok := p.Field(f.Field); ok {
			chips = append(chips, f.Label(v))
		}
	}
	return chips
}

// Describe is a one-line summary of a product.
func (e *Engine) Describe(p catalog.Product) string {
	return strings.Join(e.Chips(p), " · ")
}
