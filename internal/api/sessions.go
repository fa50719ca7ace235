package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/HendryAvila/aluconfig/internal/catalog"
	"github.com/HendryAvila/aluconfig/internal/engine"
	"github.com/HendryAvila/aluconfig/internal/observability"
	"github.com/HendryAvila/aluconfig/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// HandleStatus reports liveness and database reachability.
func HandleStatus(store *session.Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			logger.Error("status: store unreachable", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "store": "disconnected"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "connected"})
	}
}

type startRequest struct {
	Platform string `json:"platform"`
}

// HandleStartSession creates a session. The body is optional.
func HandleStartSession(store *session.Store, m *observability.Metrics, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req startRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, "invalid body: "+err.Error())
				return
			}
		}

		sess, err := store.Create(c.Request.Context(), req.Platform)
		if err != nil {
			m.SessionWrite("start_session", "error")
			respondError(c, logger, err)
			return
		}
		m.SessionStarted()
		m.SessionWrite("start_session", "ok")
		logger.Info("session started", "session_id", sess.ID, "platform", sess.Platform)

		c.JSON(http.StatusOK, gin.H{
			"sessionId": sess.ID,
			"debugId":   session.DebugID(sess.ID),
			"debug":     true,
		})
	}
}

// HandleGetSession returns the session snapshot.
func HandleGetSession(store *session.Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := store.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, sess)
	}
}

// HandleListMessages returns the transcript; ?limit=N keeps the latest N.
func HandleListMessages(store *session.Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				badRequest(c, "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		id := c.Param("id")
		if _, err := store.Get(c.Request.Context(), id); err != nil {
			respondError(c, logger, err)
			return
		}
		msgs, err := store.Messages(c.Request.Context(), id, limit)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		if msgs == nil {
			msgs = []session.Message{}
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}

type productChoiceRequest struct {
	Selection json.RawMessage `json:"selection"`
}

// HandleProductChoice replaces the stored selection. Answers to unknown
// facets, or to facets whose prerequisites do not hold, are dropped.
func HandleProductChoice(store *session.Store, eng *engine.Engine, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req productChoiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid body: "+err.Error())
			return
		}
		if len(req.Selection) == 0 || string(req.Selection) == "null" {
			badRequest(c, "selection is required")
			return
		}
		var sel engine.Selections
		if err := json.Unmarshal(req.Selection, &sel); err != nil {
			badRequest(c, err.Error())
			return
		}
		sel = eng.Normalize(sel)

		sess, err := store.UpdateSelection(c.Request.Context(), c.Param("id"), sel)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "selection": sess.Selection, "updatedAt": sess.UpdatedAt})
	}
}

type userDataRequest struct {
	UserData *session.UserData `json:"userData"`
}

// HandleUserData replaces the stored contact data.
func HandleUserData(store *session.Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req userDataRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid body: "+err.Error())
			return
		}
		if req.UserData == nil {
			badRequest(c, "userData is required")
			return
		}
		if err := validate.Struct(req.UserData); err != nil {
			badRequest(c, "invalid userData: "+err.Error())
			return
		}

		sess, err := store.UpdateUserData(c.Request.Context(), c.Param("id"), *req.UserData)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "userData": sess.UserData})
	}
}

type appendMessageRequest struct {
	Message *struct {
		Role      string `json:"role" validate:"omitempty,oneof=user assistant"`
		Text      string `json:"text"`
		Timestamp string `json:"timestamp"`
	} `json:"message"`
}

// HandleAppendMessage adds a transcript line.
func HandleAppendMessage(store *session.Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req appendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid body: "+err.Error())
			return
		}
		if req.Message == nil {
			badRequest(c, "message.text is required")
			return
		}
		if err := validate.Struct(req.Message); err != nil {
			badRequest(c, "role must be user or assistant")
			return
		}

		sess, err := store.AppendMessage(c.Request.Context(), c.Param("id"), session.Message{
			Role:      req.Message.Role,
			Text:      req.Message.Text,
			Timestamp: req.Message.Timestamp,
		})
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "messageCount": sess.MessageCount})
	}
}

type answerRequest struct {
	Facet catalog.FacetID `json:"facet"`
	Value *catalog.Value  `json:"value"`
}

// HandleAnswer applies one answer to the stored selection, persists the
// result and returns the next decision. A null value jumps back to the
// facet.
func HandleAnswer(store *session.Store, eng *engine.Engine, m *observability.Metrics, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req answerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid body: "+err.Error())
			return
		}
		if !eng.Known(req.Facet) {
			badRequest(c, "unknown facet "+strconv.Quote(string(req.Facet)))
			return
		}

		ctx := c.Request.Context()
		id := c.Param("id")
		sess, err := store.Get(ctx, id)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		sel := eng.Normalize(sess.Selection)
		if req.Value == nil {
			sel = eng.Back(sel, req.Facet)
		} else {
			sel = eng.Answer(sel, req.Facet, *req.Value)
		}
		out := eng.Decide(sel)
		m.Decision(out.Kind())

		if _, err := store.UpdateSelection(ctx, id, sel); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
