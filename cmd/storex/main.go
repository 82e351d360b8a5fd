// Command storex replays action scripts against a demo store and serves the
// devtools inspector.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "storex",
		Short: "Inspect and drive storex state containers",
		Long: `storex drives an in-memory state container built from demo slices
(todos, filter, counter).

Configuration is read from an optional YAML file and STOREX_* environment
variables; see internal/config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")

	cmd.AddCommand(
		replayCmd(&configPath),
		serveCmd(&configPath),
		versionCmd(),
	)
	return cmd
}
