package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/HendryAvila/aluconfig/internal/logging"
	"github.com/HendryAvila/aluconfig/internal/present"
	"github.com/HendryAvila/aluconfig/internal/session"
)

// Transcript records the chat lines a tool call produced. It's an
// optional dependency: tools work fine with a nil Transcript.
type Transcript interface {
	Record(ctx context.Context, sessionID string, lines ...present.Line)
}

// StoreTranscript appends transcript lines to the session store in order.
type StoreTranscript struct {
	store  *session.Store
	logger *slog.Logger
}

// NewStoreTranscript creates a transcript bridge. Returns a nil
// Transcript if store is nil.
func NewStoreTranscript(store *session.Store, logger *slog.Logger) Transcript {
	if store == nil {
		return nil
	}
	return &StoreTranscript{store: store, logger: logging.Or(logger)}
}

// Record appends lines one after another so the stored order is the
// conversation order.
//
// Best-effort: failures are logged, the tool call still succeeds.
func (t *StoreTranscript) Record(ctx context.Context, sessionID string, lines ...present.Line) {
	for _, l := range lines {
		if l.Text == "" {
			continue
		}
		msg := session.Message{
			Role:      l.Role,
			Text:      l.Text,
			Timestamp: timeNow().UTC().Format(time.RFC3339),
		}
		if _, err := t.store.AppendMessage(ctx, sessionID, msg); err != nil {
			t.logger.Warn("transcript write failed", "session_id", sessionID, "role", l.Role, "error", err)
			return
		}
	}
}

// timeNow is a package-level var to allow test injection.
var timeNow = time.Now

// record is a nil-safe helper called from tool Handle methods.
func record(ctx context.Context, t Transcript, sessionID string, lines ...present.Line) {
	if t == nil {
		return
	}
	t.Record(ctx, sessionID, lines...)
}

func assistant(text string) present.Line {
	return present.Line{Role: session.RoleAssistant, Text: text}
}

func user(text string) present.Line {
	return present.Line{Role: session.RoleUser, Text: text}
}
