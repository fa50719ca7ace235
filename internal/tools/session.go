package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/aluconfig/internal/present"
)

// StartTool handles the cfg_start_session MCP tool.
type StartTool struct {
	deps Deps
}

// NewStartTool creates a StartTool.
func NewStartTool(deps Deps) *StartTool {
	return &StartTool{deps: deps}
}

// Definition returns the MCP tool definition for cfg_start_session.
func (t *StartTool) Definition() mcp.Tool {
	return mcp.NewTool("cfg_start_session",
		mcp.WithDescription(
			"Start a new product configuration session. Returns the session id "+
				"and the first question with its options. Always call this first.",
		),
		mcp.WithString("platform",
			mcp.Description("Channel the user is talking through (e.g. 'web', 'whatsapp'). Defaults to 'mcp'."),
		),
	)
}

// Handle processes the cfg_start_session tool call.
func (t *StartTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	platform := req.GetString("platform", PlatformMCP)

	sess, err := t.deps.Store.Create(ctx, platform)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	t.deps.Metrics.SessionStarted()

	sel := t.deps.Engine.Reset()
	out := decide(t.deps, sel)
	record(ctx, t.deps.Transcript, sess.ID, assistant(present.Greeting), assistant(present.Closing(out)))

	return mcp.NewToolResultText(
		present.Greeting + "\n\n" + renderStep(t.deps.Engine, sess.ID, sel, out),
	), nil
}

// ─── StatusTool ─────────────────────────────────────────────────────────────

// StatusTool handles the cfg_status MCP tool.
type StatusTool struct {
	deps Deps
}

// NewStatusTool creates a StatusTool.
func NewStatusTool(deps Deps) *StatusTool {
	return &StatusTool{deps: deps}
}

// Definition returns the MCP tool definition for cfg_status.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("cfg_status",
		mcp.WithDescription(
			"Show where a configuration session stands: answers so far, the "+
				"pending question or the products found, and contact data.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by cfg_start_session"),
		),
	)
}

// Handle processes the cfg_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, userErr, err := loadSession(ctx, t.deps.Store, req)
	if userErr != nil || err != nil {
		return userErr, err
	}

	out := decide(t.deps, sess.Selection)
	text := renderStep(t.deps.Engine, sess.ID, sess.Selection, out)
	text += fmt.Sprintf("\n**Status:** %s · **Platform:** %s · **Messages:** %d\n",
		sess.Status, sess.Platform, sess.MessageCount)

	ud := sess.UserData
	if ud.UserName != "" || ud.UserPhone != "" || ud.UserEmail != "" || ud.TalkToHuman {
		text += fmt.Sprintf("**Contact:** %s %s %s (talk to human: %t)\n",
			ud.UserName, ud.UserPhone, ud.UserEmail, ud.TalkToHuman)
	}
	return mcp.NewToolResultText(text), nil
}

// ─── RestartTool ────────────────────────────────────────────────────────────

// RestartTool handles the cfg_restart MCP tool.
type RestartTool struct {
	deps Deps
}

// NewRestartTool creates a RestartTool.
func NewRestartTool(deps Deps) *RestartTool {
	return &RestartTool{deps: deps}
}

// Definition returns the MCP tool definition for cfg_restart.
func (t *RestartTool) Definition() mcp.Tool {
	return mcp.NewTool("cfg_restart",
		mcp.WithDescription("Clear every answer of a session and start the questions over."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by cfg_start_session"),
		),
	)
}

// Handle processes the cfg_restart tool call.
func (t *RestartTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, userErr, err := loadSession(ctx, t.deps.Store, req)
	if userErr != nil || err != nil {
		return userErr, err
	}

	sel := t.deps.Engine.Reset()
	out, err := persist(ctx, t.deps, sess.ID, sel)
	if err != nil {
		return nil, err
	}
	record(ctx, t.deps.Transcript, sess.ID, assistant(present.Greeting), assistant(present.Closing(out)))

	return mcp.NewToolResultText(renderStep(t.deps.Engine, sess.ID, sel, out)), nil
}
