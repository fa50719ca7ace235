package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ContactTool handles the cfg_contact MCP tool.
type ContactTool struct {
	deps Deps
}

// NewContactTool creates a ContactTool.
func NewContactTool(deps Deps) *ContactTool {
	return &ContactTool{deps: deps}
}

// Definition returns the MCP tool definition for cfg_contact.
func (t *ContactTool) Definition() mcp.Tool {
	return mcp.NewTool("cfg_contact",
		mcp.WithDescription(
			"Save the user's contact data on a session so a salesperson can follow up. "+
				"Only the fields given are changed.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by cfg_start_session"),
		),
		mcp.WithString("name",
			mcp.Description("User's name"),
		),
		mcp.WithString("phone",
			mcp.Description("Phone or WhatsApp number"),
		),
		mcp.WithString("email",
			mcp.Description("E-mail address"),
		),
		mcp.WithBoolean("talk_to_human",
			mcp.Description("Whether the user asked to talk to a salesperson"),
		),
	)
}

// Handle processes the cfg_contact tool call.
func (t *ContactTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, userErr, err := loadSession(ctx, t.deps.Store, req)
	if userErr != nil || err != nil {
		return userErr, err
	}

	data := sess.UserData
	if v := strings.TrimSpace(req.GetString("name", "")); v != "" {
		data.UserName = v
	}
	if v := strings.TrimSpace(req.GetString("phone", "")); v != "" {
		data.UserPhone = v
	}
	if v := strings.TrimSpace(req.GetString("email", "")); v != "" {
		data.UserEmail = v
	}
	data.TalkToHuman = req.GetBool("talk_to_human", data.TalkToHuman)

	if err := validate.Struct(data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid contact data: %v", err)), nil
	}

	if _, err := t.deps.Store.UpdateUserData(ctx, sess.ID, data); err != nil {
		return nil, fmt.Errorf("saving contact data for %s: %w", sess.ID, err)
	}

	msg := fmt.Sprintf("Contact data saved for session `%s`.", sess.ID)
	if data.TalkToHuman {
		msg += " A salesperson will get in touch."
	}
	return mcp.NewToolResultText(msg), nil
}
