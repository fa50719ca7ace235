// aluconfig: guided configurator for aluminium windows and doors.
//
// Usage:
//
//	aluconfig serve     # session HTTP service for web front-ends
//	aluconfig mcp       # MCP server (stdio transport)
//	aluconfig ask       # interactive chat in the terminal
//	aluconfig catalog   # list or validate the product catalog
//	aluconfig update    # update to the latest version
package main

import (
	"fmt"
	"os"

	"github.com/HendryAvila/aluconfig/internal/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
