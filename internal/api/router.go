// Package api is the HTTP face of aluconfig: the session service used by
// front-ends, stateless engine endpoints, a websocket push channel for
// session snapshots, and the metrics endpoint.
package api

import (
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/HendryAvila/aluconfig/internal/engine"
	"github.com/HendryAvila/aluconfig/internal/logging"
	"github.com/HendryAvila/aluconfig/internal/observability"
	"github.com/HendryAvila/aluconfig/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Options carries the router dependencies. Metrics and Notifier may be nil.
type Options struct {
	Store          *session.Store
	Notifier       session.Notifier
	Engine         *engine.Engine
	Metrics        *observability.Metrics
	Logger         *slog.Logger
	AllowedOrigins []string
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Options) *gin.Engine {
	logger := logging.Or(opts.Logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	r.Use(requestLogger(logger, opts.Metrics))

	r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))

	apiGroup := r.Group("/api")
	apiGroup.GET("/status", HandleStatus(opts.Store, logger))
	apiGroup.GET("/catalog", HandleCatalog(opts.Engine))
	apiGroup.GET("/facets", HandleFacets(opts.Engine))

	eng := apiGroup.Group("/engine")
	eng.POST("/decide", HandleDecide(opts.Engine, opts.Metrics))
	eng.POST("/apply", HandleApply(opts.Engine, opts.Metrics))

	sessions := apiGroup.Group("/session")
	sessions.POST("/start", HandleStartSession(opts.Store, opts.Metrics, logger))
	sessions.GET("/:id", HandleGetSession(opts.Store, logger))
	sessions.GET("/:id/messages", HandleListMessages(opts.Store, logger))
	sessions.PUT("/:id/product-choice", HandleProductChoice(opts.Store, opts.Engine, logger))
	sessions.PUT("/:id/user-data", HandleUserData(opts.Store, logger))
	sessions.POST("/:id/messages", HandleAppendMessage(opts.Store, logger))
	sessions.POST("/:id/answer", HandleAnswer(opts.Store, opts.Engine, opts.Metrics, logger))
	sessions.GET("/:id/watch", HandleWatch(opts.Store, opts.Notifier, opts.Metrics, logger))

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// requestLogger logs every request and feeds the HTTP metrics, keyed by
// route template so ids do not explode label cardinality.
func requestLogger(logger *slog.Logger, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		m.Request(route, strconv.Itoa(status), elapsed)

		level := slog.LevelDebug
		if status >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"elapsed", elapsed,
		)
	}
}
