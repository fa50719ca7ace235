// Package tools implements the MCP tool handlers of the configurator.
//
// Each tool is a struct holding its dependencies with a Definition for
// registration and a Handle compatible with mcp-go's CallToolRequest
// signature. Every tool works on a persisted session: the session store
// is the source of truth for the current selections, so a conversation
// survives a server restart.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/aluconfig/internal/catalog"
	"github.com/HendryAvila/aluconfig/internal/engine"
	"github.com/HendryAvila/aluconfig/internal/observability"
	"github.com/HendryAvila/aluconfig/internal/present"
	"github.com/HendryAvila/aluconfig/internal/session"
)

// PlatformMCP is recorded on sessions started through the MCP server.
const PlatformMCP = "mcp"

// Deps are shared by every configurator tool.
type Deps struct {
	Store      *session.Store
	Engine     *engine.Engine
	Metrics    *observability.Metrics
	Transcript Transcript
}

// loadSession fetches the session named by the session_id argument. A
// non-nil result is a user error to return as is.
func loadSession(ctx context.Context, store *session.Store, req mcp.CallToolRequest) (*session.Session, *mcp.CallToolResult, error) {
	id := req.GetString("session_id", "")
	if id == "" {
		return nil, mcp.NewToolResultError("'session_id' is required"), nil
	}
	sess, err := store.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, mcp.NewToolResultError(fmt.Sprintf("session %q not found. Use cfg_start_session to begin a new one.", id)), nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return sess, nil, nil
}

// facetArg resolves the facet argument against the schema.
func facetArg(e *engine.Engine, req mcp.CallToolRequest) (catalog.Facet, *mcp.CallToolResult) {
	raw := req.GetString("facet", "")
	if raw == "" {
		return catalog.Facet{}, mcp.NewToolResultError("'facet' is required")
	}
	f, ok := e.Schema().Facet(catalog.FacetID(raw))
	if !ok {
		return catalog.Facet{}, mcp.NewToolResultError(fmt.Sprintf("unknown facet %q. Valid facets: %s", raw, facetList(e)))
	}
	return f, nil
}

func facetList(e *engine.Engine) string {
	return strings.Join(facetIDs(e), ", ")
}

// persist stores sel on the session and returns the decision for it.
func persist(ctx context.Context, d Deps, id string, sel engine.Selections) (engine.Outcome, error) {
	if _, err := d.Store.UpdateSelection(ctx, id, sel); err != nil {
		return engine.Outcome{}, fmt.Errorf("saving selection for %s: %w", id, err)
	}
	return decide(d, sel), nil
}

func decide(d Deps, sel engine.Selections) engine.Outcome {
	out := d.Engine.Decide(sel)
	d.Metrics.Decision(out.Kind())
	return out
}

// renderStep formats the state of a session after a tool call: what has
// been answered, then the pending question with its values or the
// products found.
func renderStep(e *engine.Engine, id string, sel engine.Selections, out engine.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Session:** `%s`\n", id)

	if answers := e.Answered(sel); len(answers) > 0 {
		b.WriteString("\n## Answers\n\n")
		for _, a := range answers {
			fmt.Fprintf(&b, "- %s `%s` = `%s` (%s)\n", a.Facet.Title, a.Facet.ID, a.Value, a.Label)
		}
	}
	if len(out.Inferred) > 0 {
		b.WriteString("\nAnswered automatically (only one option left): ")
		parts := make([]string, len(out.Inferred))
		for i, id := range out.Inferred {
			parts[i] = "`" + string(id) + "`"
		}
		b.WriteString(strings.Join(parts, ", ") + "\n")
	}

	fmt.Fprintf(&b, "\n> %s\n", present.Closing(out))

	if q := out.PendingQuestion; q != nil {
		fmt.Fprintf(&b, "\n## Next question: `%s`\n\n", q.FacetID)
		for _, o := range q.Options {
			fmt.Fprintf(&b, "- `%s`: %s\n", o.Value, o.Label)
		}
		fmt.Fprintf(&b, "\n%d products still match. Call `cfg_select` with facet=`%s` and one of the values above.\n",
			len(out.CandidateProducts), q.FacetID)
		return b.String()
	}

	if len(out.CandidateProducts) == 0 {
		b.WriteString("\nNo product matches. Use `cfg_back` to change an earlier answer or `cfg_restart`.\n")
		return b.String()
	}

	b.WriteString("\n## Products\n\n")
	cat := e.Catalog()
	for _, p := range out.CandidateProducts {
		fmt.Fprintf(&b, "- **%s**: %s\n  %s\n", p.ID, e.Describe(p), cat.ProductURL(p))
	}
	b.WriteString("\nOffer `cfg_contact` if the user wants to talk to a salesperson.\n")
	return b.String()
}
