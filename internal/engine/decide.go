package engine

import (
	"github.com/HendryAvila/aluconfig/internal/catalog"
)

// Outcome kinds, used for logs and metrics.
const (
	KindQuestion = "question"
	KindMatch    = "match"
	KindNoMatch  = "no_match"
)

// Option is one presentable answer to a question.
type Option struct {
	Value catalog.Value `json:"value"`
	Label string        `json:"label"`
	Icon  string        `json:"icon"`
	Image string        `json:"image,omitempty"`
}

// Question is the next thing to ask.
type Question struct {
	FacetID catalog.FacetID `json:"facetId"`
	Title   string          `json:"title"`
	Options []Option        `json:"options"`
}

// Values returns the option values in presentation order.
func (q *Question) Values() []catalog.Value {
	out := make([]catalog.Value, len(q.Options))
	for i, o := range q.Options {
		out[i] = o.Value
	}
	return out
}

// Outcome is the result of one decision pass.
//
// Selections include the answers the engine inferred on its own; Inferred
// lists those facets in the order they were filled. When IsFinal is false,
// PendingQuestion is set and CandidateProducts holds the products still in
// play.
type Outcome struct {
	Selections        Selections        `json:"selections"`
	IsFinal           bool              `json:"isFinal"`
	CandidateProducts []catalog.Product `json:"candidateProducts"`
	PendingQuestion   *Question         `json:"pendingQuestion"`
	Inferred          []catalog.FacetID `json:"inferred,omitempty"`
}

// Kind classifies the outcome.
func (o Outcome) Kind() string {
	switch {
	case !o.IsFinal:
		return KindQuestion
	case len(o.CandidateProducts) == 0:
		return KindNoMatch
	default:
		return KindMatch
	}
}

// Single returns the product when exactly one remains.
func (o Outcome) Single() (catalog.Product, bool) {
	if !o.IsFinal || len(o.CandidateProducts) != 1 {
		return catalog.Product{}, false
	}
	return o.CandidateProducts[0], true
}

// Decide walks the facets in order over a working copy of sel:
// facets whose prerequisites do not hold or that are already answered are
// skipped; once at most one candidate remains the result is final; a facet
// with several values among the candidates becomes the pending question; a
// facet with a single value is answered automatically; a facet with no
// value at all ends with no match. When every facet is consumed the
// remaining candidates are the result.
func (e *Engine) Decide(sel Selections) Outcome {
	working := sel
	var inferred []catalog.FacetID

	for _, f := range e.schema.Facets() {
		if !f.Applicable(working) || working.IsSet(f.ID) {
			continue
		}

		candidates := e.Matches(working)
		if len(candidates) <= 1 {
			return final(working, candidates, inferred)
		}

		values := Values(f, candidates)
		switch len(values) {
		case 0:
			return final(working, nil, inferred)
		case 1:
			working = working.with(f.ID, values[0])
			inferred = append(inferred, f.ID)
		default:
			return Outcome{
				Selections:        working,
				CandidateProducts: candidates,
				PendingQuestion: &Question{
					FacetID: f.ID,
					Title:   f.Title,
					Options: e.Options(f, candidates),
				},
				Inferred: inferred,
			}
		}
	}

	return final(working, e.Matches(working), inferred)
}

func final(sel Selections, products []catalog.Product, inferred []catalog.FacetID) Outcome {
	if products == nil {
		products = []catalog.Product{}
	}
	return Outcome{
		Selections:        sel,
		IsFinal:           true,
		CandidateProducts: products,
		Inferred:          inferred,
	}
}
