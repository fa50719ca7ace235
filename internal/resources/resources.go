// Package resources implements the configurator's MCP resources.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (aluconfig://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/aluconfig/internal/engine"
	"github.com/HendryAvila/aluconfig/internal/present"
	"github.com/HendryAvila/aluconfig/internal/session"
)

// Resource URIs.
const (
	CatalogURI         = "aluconfig://catalog"
	FacetsURI          = "aluconfig://facets"
	SessionURITemplate = "aluconfig://session/{id}"
	sessionURIPrefix   = "aluconfig://session/"
)

// transcriptLimit caps the messages embedded in a session resource.
const transcriptLimit = 50

// Handler manages configurator resource endpoints.
type Handler struct {
	store  *session.Store
	engine *engine.Engine
}

// NewHandler creates a resource Handler with its dependencies. store may
// be nil, in which case the session template is not served.
func NewHandler(store *session.Store, eng *engine.Engine) *Handler {
	return &Handler{store: store, engine: eng}
}

// CatalogResource returns the MCP resource definition for the catalog.
func (h *Handler) CatalogResource() mcp.Resource {
	return mcp.NewResource(
		CatalogURI,
		"Product catalog",
		mcp.WithResourceDescription("Every product variant with its facet values, page link and display chips"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleCatalog returns the catalog as JSON.
func (h *Handler) HandleCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, map[string]any{
		"products": present.Views(h.engine, h.engine.Catalog().Products()),
		"count":    h.engine.Catalog().Len(),
	})
}

// FacetsResource returns the MCP resource definition for the facet schema.
func (h *Handler) FacetsResource() mcp.Resource {
	return mcp.NewResource(
		FacetsURI,
		"Facet schema",
		mcp.WithResourceDescription("The questions in the order they are asked, with value labels and prerequisites"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleFacets returns the facet schema as JSON.
func (h *Handler) HandleFacets(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, map[string]any{"facets": h.engine.Schema().Facets()})
}

// SessionTemplate returns the MCP resource template for session snapshots.
func (h *Handler) SessionTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		SessionURITemplate,
		"Configuration session",
		mcp.WithTemplateDescription("A session's selections, contact data, current decision and recent transcript"),
		mcp.WithTemplateMIMEType("application/json"),
	)
}

type sessionSnapshot struct {
	Session  *session.Session  `json:"session"`
	Decision engine.Outcome    `json:"decision"`
	Messages []session.Message `json:"messages"`
}

// HandleSession returns the session named in the URI as JSON.
func (h *Handler) HandleSession(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := strings.TrimPrefix(uri, sessionURIPrefix)
	if id == "" || id == uri {
		return errorResource(uri, "expected "+SessionURITemplate), nil
	}

	sess, err := h.store.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return errorResource(uri, fmt.Sprintf("session %q not found", id)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	msgs, err := h.store.Messages(ctx, id, transcriptLimit)
	if err != nil {
		return nil, fmt.Errorf("loading transcript of %s: %w", id, err)
	}
	if msgs == nil {
		msgs = []session.Message{}
	}

	return jsonResource(uri, sessionSnapshot{
		Session:  sess,
		Decision: h.engine.Decide(sess.Selection),
		Messages: msgs,
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
