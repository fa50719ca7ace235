// Package server wires the configurator components together.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools, prompts, resources and HTTP handlers that
// depend on them. No business logic lives here, only wiring.
package server

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/aluconfig/internal/config"
	"github.com/HendryAvila/aluconfig/internal/logging"
	"github.com/HendryAvila/aluconfig/internal/observability"
	"github.com/HendryAvila/aluconfig/internal/prompts"
	"github.com/HendryAvila/aluconfig/internal/resources"
	"github.com/HendryAvila/aluconfig/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with all tools, prompts and resources
// registered. This is the single place where MCP dependencies are
// resolved.
//
// The returned cleanup function closes the session store and the
// notifier and must be called on shutdown (typically via defer). It is
// always non-nil and safe to call even if New failed.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*server.MCPServer, func(), error) {
	logger = logging.Or(logger)

	// --- Create shared dependencies ---

	eng, err := NewEngine(cfg)
	if err != nil {
		return nil, noop, err
	}

	backend, err := Open(ctx, cfg, logger)
	if err != nil {
		return nil, noop, err
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"aluconfig",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register configurator tools ---

	deps := tools.Deps{
		Store:      backend.Store,
		Engine:     eng,
		Metrics:    metrics,
		Transcript: tools.NewStoreTranscript(backend.Store, logger),
	}

	startTool := tools.NewStartTool(deps)
	s.AddTool(startTool.Definition(), startTool.Handle)

	selectTool := tools.NewSelectTool(deps)
	s.AddTool(selectTool.Definition(), selectTool.Handle)

	backTool := tools.NewBackTool(deps)
	s.AddTool(backTool.Definition(), backTool.Handle)

	restartTool := tools.NewRestartTool(deps)
	s.AddTool(restartTool.Definition(), restartTool.Handle)

	statusTool := tools.NewStatusTool(deps)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	contactTool := tools.NewContactTool(deps)
	s.AddTool(contactTool.Definition(), contactTool.Handle)

	// --- Register prompts ---

	configurePrompt := prompts.NewConfigurePrompt()
	s.AddPrompt(configurePrompt.Definition(), configurePrompt.Handle)

	handoffPrompt := prompts.NewHandoffPrompt()
	s.AddPrompt(handoffPrompt.Definition(), handoffPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(backend.Store, eng)
	s.AddResource(resourceHandler.CatalogResource(), resourceHandler.HandleCatalog)
	s.AddResource(resourceHandler.FacetsResource(), resourceHandler.HandleFacets)
	s.AddResourceTemplate(resourceHandler.SessionTemplate(), resourceHandler.HandleSession)

	logger.Info("mcp server ready",
		"version", Version,
		"products", eng.Catalog().Len(),
		"facets", eng.Schema().Len(),
		"data_dir", cfg.DataDir,
	)
	return s, backend.Close, nil
}

func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to drive the configurator.
func serverInstructions() string {
	return `You have access to AluConfig, a guided product configurator for
aluminium windows and doors (janelas e portas).

## HOW IT WORKS

The catalog is narrowed down one question (facet) at a time, always in the
same order: category, opening_system, has_blind, motorization (only when
has_blind = sim), fill_material, leaf_count. When only one option remains
for a facet it is answered automatically. The conversation ends when at most
one product is left or every facet has been asked.

## TOOLS

1. cfg_start_session: always first. Returns the session id and first question.
2. cfg_select: answer the pending question with one of the listed values.
   Answering an earlier facet again discards every later answer.
3. cfg_back: ask a facet again (its answer and later ones are discarded).
4. cfg_restart: clear everything.
5. cfg_status: where a session stands (use it to resume).
6. cfg_contact: save name, phone and e-mail for a salesperson.

## RULES

- Talk to the user in Portuguese. Show option LABELS, send option VALUES.
- Never invent values: only use the ones listed by the last tool result.
- Ask one question at a time.
- When no product matches, suggest changing an earlier answer with cfg_back.
- When products are found, show each with its link and offer a salesperson.

## RESOURCES

- aluconfig://catalog: every product with links and chips.
- aluconfig://facets: the questions, labels and prerequisites.
- aluconfig://session/{id}: a session's selections, decision and transcript.`
}
