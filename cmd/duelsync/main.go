// duelsync is the synchronization server for two-sided turn-based matches.
//
// Usage:
//
//	duelsync serve           - Start the websocket server
//	duelsync games           - List registered rule sets
//
// Global flags:
//
//	--config <path> - Configuration file (default: search order)
//	--addr <addr>   - Listen address (overrides config)
//	--db <path>     - Match database path (overrides config)
//	--log-level <l> - Log level: debug, info, warn, error
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Import engines to register them
	_ "github.com/vovakirdan/duelsync/internal/game/duel"
)

var (
	// Global flags
	flagConfig   string
	flagAddr     string
	flagDBPath   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "duelsync",
	Short: "duelsync - sync server for two-sided hidden-information matches",
	Long: `duelsync keeps every viewer of a running match in sync: players see
their own hidden information, spectators see none of it, and privileged
spectators see one side's. Clients connect over websocket and receive
role-filtered diffs of the authoritative match state.

Available commands:
  serve    - Start the websocket server
  games    - List registered rule sets

Examples:
  duelsync serve
  duelsync serve --addr :9000 --db ./matches.db
  duelsync games`,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", "", "Listen address (host:port)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to match database")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(gamesCmd)
}
