// Package main is the entry point for the distancelog CLI.
//
// distancelog can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	distancelog run -c config.yaml      # Run one update cycle
//	distancelog serve -c config.yaml    # Update periodically and serve the API
//	distancelog validate -c config.yaml # Validate configuration
//	distancelog version                 # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "distancelog",
	Short: "Track world record changes on Distance leaderboards",
	Long: `distancelog tracks world record changes on Distance leaderboards.

It polls the top scores of every official and workshop level through a
Steamworks leaderboard service, keeps the latest results as a snapshot, and
appends an entry to a changelist whenever a record improves.

Quick start:
  1. Start the leaderboard service
  2. Create a config file (distancelog.yaml)
  3. Run: distancelog serve -c distancelog.yaml
  4. Open http://localhost:8080/api/changelist

Example config:
  rpc:
    address: 127.0.0.1:25565
  update:
    delay: 5m`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// newLogger creates a JSON logger for CLI use at the level given by the
// --log-level flag.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	raw, _ := cmd.Flags().GetString("log-level")

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", raw, err)
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})), nil
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this distancelog binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("distancelog %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
