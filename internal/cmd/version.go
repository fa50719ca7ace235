package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/aluconfig/internal/server"
	"github.com/HendryAvila/aluconfig/internal/updater"
)

// newUpdater is swapped in tests.
var newUpdater = updater.New

func newVersionCommand() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "aluconfig v%s\n", server.Version)
			if !check {
				return nil
			}
			c, err := newUpdater().Check(cmd.Context(), server.Version)
			if err != nil {
				return err
			}
			if c.Available {
				fmt.Fprintf(out, "latest v%s available: %s\n", c.Latest, c.URL)
			} else {
				fmt.Fprintf(out, "up to date (latest v%s)\n", c.Latest)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "also look up the latest release")
	return cmd
}

func newUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update to the latest release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.ErrOrStderr()
			u := newUpdater()
			fmt.Fprintln(w, "Checking for updates...")

			c, err := u.Check(cmd.Context(), server.Version)
			if err != nil {
				return err
			}
			if err := u.Apply(cmd.Context(), c); err != nil {
				if errors.Is(err, updater.ErrUpToDate) {
					fmt.Fprintf(w, "Already at the latest version (v%s)\n", c.Current)
					return nil
				}
				fmt.Fprintf(w, "\n   You can download manually from:\n   %s\n", c.URL)
				return err
			}
			fmt.Fprintf(w, "Updated v%s → v%s. Restart aluconfig to use it.\n", c.Current, c.Latest)
			return nil
		},
	}
}
