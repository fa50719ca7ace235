package syncer

import (
	"sort"

	"github.com/HendryAvila/aluconfig/internal/catalog"
	"github.com/HendryAvila/aluconfig/internal/engine"
)

// Change is one facet whose answer differs between two selection sets.
// Empty From or To means unset.
type Change struct {
	Facet catalog.FacetID
	From  catalog.Value
	To    catalog.Value
}

// Diff lists the facets that changed from old to next, sorted by facet id.
func Diff(old, next engine.Selections) []Change {
	seen := make(map[catalog.FacetID]bool)
	var out []Change
	for id, v := range old.Map() {
		seen[id] = true
		if nv, ok := next.Get(id); !ok || nv != v {
			out = append(out, Change{Facet: id, From: v, To: nv})
		}
	}
	for id, v := range next.Map() {
		if !seen[id] {
			out = append(out, Change{Facet: id, To: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Facet < out[j].Facet })
	return out
}
