package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/HendryAvila/aluconfig/internal/observability"
	"github.com/HendryAvila/aluconfig/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWatch upgrades to a websocket and pushes the session snapshot
// now and after every write, until either side closes.
func HandleWatch(store *session.Store, notifier session.Notifier, m *observability.Metrics, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if notifier == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "watch is not enabled"})
			return
		}
		id := c.Param("id")

		// Subscribe before loading so no write slips between the two.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		snaps, err := notifier.Subscribe(ctx, id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		current, err := store.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("watch: websocket upgrade failed", "session_id", id, "error", err)
			return
		}
		defer func() { _ = ws.Close() }()

		m.WatcherOpened()
		defer m.WatcherClosed()
		logger.Info("watch: client connected", "session_id", id)

		// Reads only detect the peer going away.
		go func() {
			defer cancel()
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := send(ws, current); err != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				logger.Info("watch: client disconnected", "session_id", id)
				return
			case snap, ok := <-snaps:
				if !ok {
					return
				}
				if err := send(ws, &snap); err != nil {
					logger.Warn("watch: write failed", "session_id", id, "error", err)
					return
				}
			}
		}
	}
}

func send(ws *websocket.Conn, snap *session.Session) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(snap)
}
