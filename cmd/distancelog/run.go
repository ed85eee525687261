package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Seeker14491/distancelog"
	"github.com/Seeker14491/distancelog/config"
)

// runCmd performs a single update cycle.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one update cycle",
	Long: `Run a single update cycle and exit.

The cycle will:
  - Load the previous snapshot and changelist
  - Fetch the top scores of all official and workshop levels
  - Append every improved record to the changelist
  - Save the changelist and the new snapshot

Exit codes:
  0 - Cycle completed (individual leaderboard failures are logged)
  1 - Cycle failed (error chain logged to stderr)

Example:
  distancelog run -c config.yaml`,
	SilenceUsage: true,
	RunE:         runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := engine.RunCycle(ctx); err != nil {
		logger.Error("update cycle failed", distancelog.ErrorAttrs(err)...)
		return fmt.Errorf("update failed: %w", err)
	}
	return nil
}
