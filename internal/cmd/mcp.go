package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/aluconfig/internal/observability"
	"github.com/HendryAvila/aluconfig/internal/server"
	"github.com/HendryAvila/aluconfig/internal/updater"
)

const updateCheckTimeout = 5 * time.Second

func newMCPCommand(o *options) *cobra.Command {
	var noUpdateCheck bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		Long: `Start the MCP server (stdio transport) so an AI assistant can drive the
configurator. Add it to your tool's MCP config:

  {
    "mcpServers": {
      "aluconfig": {
        "command": "aluconfig",
        "args": ["mcp"]
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			// stdout belongs to the protocol; logs go to stderr.
			logger, closeLog := o.logger(cfg, false)
			defer func() { _ = closeLog() }()

			s, cleanup, err := server.New(cmd.Context(), cfg, logger, observability.New())
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			if !noUpdateCheck {
				go checkForUpdates(cmd.Context(), cmd.ErrOrStderr(), newUpdater())
			}
			return mcpserver.ServeStdio(s)
		},
	}
	cmd.Flags().BoolVar(&noUpdateCheck, "no-update-check", false, "skip the background release check")
	return cmd
}

// checkForUpdates prints a notice to w when a newer release exists.
// Failures are ignored.
func checkForUpdates(ctx context.Context, w io.Writer, u *updater.Updater) {
	ctx, cancel := context.WithTimeout(ctx, updateCheckTimeout)
	defer cancel()

	c, err := u.Check(ctx, server.Version)
	if err != nil || !c.Available {
		return
	}
	fmt.Fprintf(w,
		"\n  Update available: v%s → v%s\n"+
			"     Run: aluconfig update\n"+
			"     Release: %s\n\n",
		c.Current, c.Latest, c.URL,
	)
}
