// Package prompts implements the configurator's MCP prompts.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to run a sequence of tool calls. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ConfigurePrompt handles the configure MCP prompt.
// It has the AI walk the user through the questions until products are found.
type ConfigurePrompt struct{}

// NewConfigurePrompt creates a ConfigurePrompt.
func NewConfigurePrompt() *ConfigurePrompt {
	return &ConfigurePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ConfigurePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("configure",
		mcp.WithPromptDescription(
			"Find the right window or door. The assistant asks one question at a "+
				"time and narrows the catalog down to the matching products.",
		),
		mcp.WithArgument("session_id",
			mcp.ArgumentDescription("Resume an existing session instead of starting a new one"),
		),
		mcp.WithArgument("platform",
			mcp.ArgumentDescription("Channel the user is on (e.g. 'web', 'whatsapp'). Default: mcp"),
		),
	)
}

// Handle processes the configure prompt request.
func (p *ConfigurePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments

	first := "1. Run `cfg_start_session`"
	if platform := args["platform"]; platform != "" {
		first += fmt.Sprintf(" with platform='%s'", platform)
	}
	description := "Configure a new product"
	if id := args["session_id"]; id != "" {
		first = fmt.Sprintf("1. Run `cfg_status` with session_id='%s' to see where we stopped", id)
		description = fmt.Sprintf("Resume configuration session %s", id)
	}

	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Help me find the right aluminium window or door.\n\n" +
						"Please:\n" +
						first + "\n" +
						"2. Ask me the pending question in Portuguese, showing the option labels (not the raw values)\n" +
						"3. When I answer, call `cfg_select` with the matching value\n" +
						"4. If I change my mind about an earlier answer, use `cfg_back` or answer that facet again with `cfg_select`\n" +
						"5. When products are found, show each one with its link. If none match, suggest changing an earlier answer\n" +
						"6. Finally, ask whether I want a salesperson to contact me; if so, follow the `handoff` flow",
				),
			},
		},
	}, nil
}
