package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// HandoffPrompt handles the handoff MCP prompt.
// It collects contact data so a salesperson can take over.
type HandoffPrompt struct{}

// NewHandoffPrompt creates a HandoffPrompt.
func NewHandoffPrompt() *HandoffPrompt {
	return &HandoffPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *HandoffPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("handoff",
		mcp.WithPromptDescription(
			"Hand the conversation over to a salesperson: collect the user's "+
				"name, phone and e-mail and save them on the session.",
		),
		mcp.WithArgument("session_id",
			mcp.ArgumentDescription("Session to attach the contact data to"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the handoff prompt request.
func (p *HandoffPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id := req.Params.Arguments["session_id"]
	if id == "" {
		return nil, fmt.Errorf("handoff: session_id is required")
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Hand session %s over to a salesperson", id),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I'd like to talk to a salesperson about session %s.\n\n"+
						"Please:\n"+
						"1. Run `cfg_status` with session_id='%s' and summarise what I chose\n"+
						"2. Ask for my name, then my phone (WhatsApp is fine), then optionally my e-mail\n"+
						"3. Call `cfg_contact` with session_id='%s', the data I gave and talk_to_human=true\n"+
						"4. Confirm that a salesperson will get in touch",
					id, id, id,
				)),
			},
		},
	}, nil
}
