package session

import (
	"github.com/HendryAvila/aluconfig/internal/engine"
)

// Session statuses.
const (
	StatusActive = "active"
	StatusClosed = "closed"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultPlatform is recorded when the caller does not name one.
const DefaultPlatform = "web"

// UserData is the contact information a user leaves for follow-up.
type UserData struct {
	UserName    string `json:"userName,omitempty"`
	UserPhone   string `json:"userPhone,omitempty"`
	UserEmail   string `json:"userEmail,omitempty" validate:"omitempty,email"`
	TalkToHuman bool   `json:"talkToHuman"`
}

// Message is one transcript entry.
type Message struct {
	ID        int64  `json:"id"`
	SessionID string `json:"sessionId"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// Session is a persisted configurator conversation.
type Session struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	Platform      string            `json:"platform"`
	Selection     engine.Selections `json:"selection"`
	UserData      UserData          `json:"userData"`
	LastMessage   *string           `json:"lastMessage,omitempty"`
	LastMessageAt *string           `json:"lastMessageAt,omitempty"`
	MessageCount  int               `json:"messageCount"`
	CreatedAt     string            `json:"createdAt"`
	UpdatedAt     string            `json:"updatedAt"`
}

// DebugID is the identifier shown in support tooling for id.
func DebugID(id string) string {
	return "debug_" + id
}
