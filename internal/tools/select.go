package tools

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/aluconfig/internal/catalog"
	"github.com/HendryAvila/aluconfig/internal/engine"
	"github.com/HendryAvila/aluconfig/internal/present"
)

// SelectTool handles the cfg_select MCP tool.
type SelectTool struct {
	deps Deps
}

// NewSelectTool creates a SelectTool.
func NewSelectTool(deps Deps) *SelectTool {
	return &SelectTool{deps: deps}
}

// Definition returns the MCP tool definition for cfg_select.
func (t *SelectTool) Definition() mcp.Tool {
	return mcp.NewTool("cfg_select",
		mcp.WithDescription(
			"Answer a question of a configuration session. Answering a facet "+
				"discards every answer given after it. Returns the next question "+
				"or the matching products.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by cfg_start_session"),
		),
		mcp.WithString("facet",
			mcp.Required(),
			mcp.Description("Facet being answered, usually the pending question's facet"),
			mcp.Enum(facetIDs(t.deps.Engine)...),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("One of the option values listed for the facet (e.g. 'janela', '2')"),
		),
	)
}

// Handle processes the cfg_select tool call.
func (t *SelectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, userErr := facetArg(t.deps.Engine, req)
	if userErr != nil {
		return userErr, nil
	}
	value := catalog.Value(strings.TrimSpace(req.GetString("value", "")))
	if value == "" {
		return mcp.NewToolResultError("'value' is required"), nil
	}

	sess, userErr, err := loadSession(ctx, t.deps.Store, req)
	if userErr != nil || err != nil {
		return userErr, err
	}

	if !f.Applicable(t.deps.Engine.Decide(sess.Selection).Selections) {
		return mcp.NewToolResultError(fmt.Sprintf(
			"facet %q does not apply to the current answers", f.ID)), nil
	}
	known := engine.Values(f, t.deps.Engine.Catalog().Products())
	if !slices.Contains(known, value) {
		return mcp.NewToolResultError(fmt.Sprintf(
			"unknown value %q for facet %q. Valid values: %s", value, f.ID, joinValues(known))), nil
	}

	sel := t.deps.Engine.Answer(sess.Selection, f.ID, value)
	out, err := persist(ctx, t.deps, sess.ID, sel)
	if err != nil {
		return nil, err
	}
	record(ctx, t.deps.Transcript, sess.ID, user(f.Label(value)), assistant(present.Closing(out)))

	return mcp.NewToolResultText(renderStep(t.deps.Engine, sess.ID, sel, out)), nil
}

// ─── BackTool ───────────────────────────────────────────────────────────────

// BackTool handles the cfg_back MCP tool.
type BackTool struct {
	deps Deps
}

// NewBackTool creates a BackTool.
func NewBackTool(deps Deps) *BackTool {
	return &BackTool{deps: deps}
}

// Definition returns the MCP tool definition for cfg_back.
func (t *BackTool) Definition() mcp.Tool {
	return mcp.NewTool("cfg_back",
		mcp.WithDescription(
			"Go back to a facet: its answer and every later answer are "+
				"discarded, so the facet is asked again.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by cfg_start_session"),
		),
		mcp.WithString("facet",
			mcp.Required(),
			mcp.Description("Facet to ask again"),
			mcp.Enum(facetIDs(t.deps.Engine)...),
		),
	)
}

// Handle processes the cfg_back tool call.
func (t *BackTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, userErr := facetArg(t.deps.Engine, req)
	if userErr != nil {
		return userErr, nil
	}
	sess, userErr, err := loadSession(ctx, t.deps.Store, req)
	if userErr != nil || err != nil {
		return userErr, err
	}

	sel := t.deps.Engine.Back(sess.Selection, f.ID)
	out, err := persist(ctx, t.deps, sess.ID, sel)
	if err != nil {
		return nil, err
	}
	record(ctx, t.deps.Transcript, sess.ID, assistant(present.Closing(out)))

	return mcp.NewToolResultText(renderStep(t.deps.Engine, sess.ID, sel, out)), nil
}

// facetIDs lists the schema's facets for tool enums.
func facetIDs(e *engine.Engine) []string {
	ids := make([]string, 0, e.Schema().Len())
	for _, f := range e.Schema().Facets() {
		ids = append(ids, string(f.ID))
	}
	return ids
}

func joinValues(values []catalog.Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
