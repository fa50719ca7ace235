package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/aluconfig/internal/api"
	"github.com/HendryAvila/aluconfig/internal/config"
	"github.com/HendryAvila/aluconfig/internal/observability"
	"github.com/HendryAvila/aluconfig/internal/server"
)

const readHeaderTimeout = 10 * time.Second

func newServeCommand(o *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session HTTP service",
		Long: `Serve the session API used by web front-ends: session start, selections,
contact data, transcript messages, the websocket watch channel, the
stateless engine endpoints and Prometheus metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			logger, closeLog := o.logger(cfg, false)
			defer func() { _ = closeLog() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger, nil)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}

// serve runs the HTTP service until ctx is done, then shuts it down
// within cfg.HTTP.ShutdownTimeout. ready, when set, receives the bound
// address once the listener is open.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, ready func(addr string)) error {
	eng, err := server.NewEngine(cfg)
	if err != nil {
		return err
	}
	backend, err := server.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.Options{
		Store:          backend.Store,
		Notifier:       backend.Notifier,
		Engine:         eng,
		Metrics:        observability.New(),
		Logger:         logger,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})

	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.HTTP.Addr, err)
	}
	srv := &http.Server{Handler: router, ReadHeaderTimeout: readHeaderTimeout}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("session service listening",
			"addr", ln.Addr().String(),
			"version", server.Version,
			"products", eng.Catalog().Len(),
			"notifier", cfg.Notifier.Backend,
		)
		if ready != nil {
			ready(ln.Addr().String())
		}
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down session service")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
