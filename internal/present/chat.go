// Package present turns engine outcomes into something a person can read:
// the chat replay shared by every front-end and a terminal renderer for
// the interactive CLI.
package present

import (
	"fmt"

	"github.com/HendryAvila/aluconfig/internal/engine"
	"github.com/HendryAvila/aluconfig/internal/session"
)

// Fixed assistant lines.
const (
	Greeting = "Olá! Sou o assistente virtual da AluConfig. Vou te ajudar a encontrar a esquadria perfeita."
	NoMatch  = "Hmm, parece que não encontrei nenhum produto exato com essa combinação. Tente mudar algumas das opções anteriores."
)

// Found is the assistant line for a non-empty result.
func Found(n int) string {
	return fmt.Sprintf("Ótima notícia! Encontrei %d produtos que combinam com o que você precisa. Dê uma olhada nas opções ao lado.", n)
}

// Line is one chat bubble.
type Line struct {
	Role string
	Text string
}

// Replay rebuilds the conversation from the user's selections: the
// greeting, a question and answer pair per answered facet, then the
// closing line for out. Facets the engine answered on its own are not
// replayed, so sel must be the user's selections and not out.Selections.
func Replay(e *engine.Engine, sel engine.Selections, out engine.Outcome) []Line {
	lines := []Line{{Role: session.RoleAssistant, Text: Greeting}}
	for _, a := range e.Answered(sel) {
		lines = append(lines,
			Line{Role: session.RoleAssistant, Text: a.Facet.Title},
			Line{Role: session.RoleUser, Text: a.Label},
		)
	}
	return append(lines, Line{Role: session.RoleAssistant, Text: Closing(out)})
}

// Closing is the assistant's last word for out: the pending question's
// title, or the result announcement.
func Closing(out engine.Outcome) string {
	switch out.Kind() {
	case engine.KindQuestion:
		return out.PendingQuestion.Title
	case engine.KindMatch:
		return Found(len(out.CandidateProducts))
	default:
		return NoMatch
	}
}
