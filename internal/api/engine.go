package api

import (
	"net/http"
	"strconv"

	"github.com/HendryAvila/aluconfig/internal/catalog"
	"github.com/HendryAvila/aluconfig/internal/engine"
	"github.com/HendryAvila/aluconfig/internal/observability"
	"github.com/HendryAvila/aluconfig/internal/present"
	"github.com/gin-gonic/gin"
)

// HandleCatalog lists every product with its links and display chips.
func HandleCatalog(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		views := present.Views(eng, eng.Catalog().Products())
		c.JSON(http.StatusOK, gin.H{"products": views, "count": len(views)})
	}
}

// HandleFacets lists the facet schema in question order.
func HandleFacets(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"facets": eng.Schema().Facets()})
	}
}

type decideRequest struct {
	Selections engine.Selections `json:"selections"`
}

// HandleDecide runs one decision pass over the posted selections.
func HandleDecide(eng *engine.Engine, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req decideRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, "invalid body: "+err.Error())
				return
			}
		}
		out := eng.Decide(eng.Normalize(req.Selections))
		m.Decision(out.Kind())
		c.JSON(http.StatusOK, out)
	}
}

type applyRequest struct {
	Selections engine.Selections `json:"selections"`
	Facet      catalog.FacetID   `json:"facet"`
	Value      *catalog.Value    `json:"value"`
}

// HandleApply answers one facet (or jumps back to it when value is null)
// and returns the decision for the resulting selections.
func HandleApply(eng *engine.Engine, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req applyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid body: "+err.Error())
			return
		}
		if !eng.Known(req.Facet) {
			badRequest(c, "unknown facet "+strconv.Quote(string(req.Facet)))
			return
		}

		sel := eng.Normalize(req.Selections)
		if req.Value == nil {
			sel = eng.Back(sel, req.Facet)
		} else {
			sel = eng.Apply(sel, req.Facet, *req.Value)
		}
		out := eng.Decide(sel)
		m.Decision(out.Kind())
		c.JSON(http.StatusOK, out)
	}
}
