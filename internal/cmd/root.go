// Package cmd holds the aluconfig command tree.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/aluconfig/internal/config"
	"github.com/HendryAvila/aluconfig/internal/logging"
	"github.com/HendryAvila/aluconfig/internal/server"
)

// serviceName tags every log record.
const serviceName = "aluconfig"

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	envFile    string
	logLevel   string
	logJSON    bool
}

// NewRootCommand creates and returns the root cobra command for aluconfig
func NewRootCommand() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "aluconfig",
		Short: "Guided configurator for aluminium windows and doors",
		Long: `aluconfig narrows a catalog of windows and doors down to the product a
customer needs, one question at a time.

It runs as an HTTP session service for web front-ends, as an MCP server
for AI assistants, or as an interactive chat in the terminal.`,
		Version: server.Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "aluconfig.yaml", "YAML config file (missing file means defaults)")
	flags.StringVar(&o.envFile, "env-file", ".env", "dotenv file loaded before ALUCONFIG_* variables")
	flags.StringVar(&o.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	flags.BoolVar(&o.logJSON, "log-json", false, "log as JSON")

	cmd.AddCommand(newServeCommand(o))
	cmd.AddCommand(newMCPCommand(o))
	cmd.AddCommand(newAskCommand(o))
	cmd.AddCommand(newCatalogCommand(o))
	cmd.AddCommand(newVersionCommand())
	cmd.AddCommand(newUpdateCommand())

	return cmd
}

// load builds the configuration: file, then environment, then flags.
func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(o.envFile); err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logJSON {
		cfg.Log.JSON = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logger builds the process logger. quiet drops stderr output, which the
// interactive chat needs.
func (o *options) logger(cfg *config.Config, quiet bool) (*slog.Logger, func() error) {
	return logging.New(logging.Config{
		Level:   cfg.Log.Level,
		JSON:    cfg.Log.JSON,
		Service: serviceName,
		LogDir:  cfg.Log.Dir,
		Quiet:   quiet,
	})
}
