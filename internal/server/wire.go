package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/HendryAvila/aluconfig/internal/catalog"
	"github.com/HendryAvila/aluconfig/internal/config"
	"github.com/HendryAvila/aluconfig/internal/engine"
	"github.com/HendryAvila/aluconfig/internal/logging"
	"github.com/HendryAvila/aluconfig/internal/session"
)

// NewEngine builds the decision engine from the configured catalog and
// facet files. Empty paths select the built-in data.
func NewEngine(cfg *config.Config) (*engine.Engine, error) {
	schema, err := catalog.LoadSchema(cfg.FacetsPath)
	if err != nil {
		return nil, fmt.Errorf("loading facets: %w", err)
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return engine.New(schema, cat.WithLinks(cfg.BaseURL, cfg.ImageBase)), nil
}

// Backend is the persistence side shared by the HTTP service and the MCP
// server.
type Backend struct {
	Store    *session.Store
	Notifier session.Notifier

	closers []func() error
	logger  *slog.Logger
}

// Close releases everything Open created, in reverse order. Errors are
// logged, not returned, so Close can be deferred.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			b.logger.Warn("backend close", "error", err)
		}
	}
	b.closers = nil
}

// Open creates the change notifier selected by cfg and the session store
// that publishes to it.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	logger = logging.Or(logger)
	b := &Backend{logger: logger}

	switch cfg.Notifier.Backend {
	case config.NotifierRedis:
		n, err := session.NewRedisNotifier(ctx, cfg.Notifier.RedisAddr, cfg.Notifier.Channel, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting notifier: %w", err)
		}
		b.Notifier = n
		b.closers = append(b.closers, n.Close)
	default:
		b.Notifier = session.NewHub(logger)
	}

	store, err := session.New(session.Config{
		DataDir:  cfg.DataDir,
		Notifier: b.Notifier,
		Logger:   logger,
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	b.Store = store
	b.closers = append(b.closers, store.Close)

	logger.Debug("backend opened", "notifier", cfg.Notifier.Backend, "data_dir", cfg.DataDir)
	return b, nil
}
