package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Seeker14491/distancelog"
	"github.com/Seeker14491/distancelog/config"
	"github.com/Seeker14491/distancelog/internal/server"
	"github.com/Seeker14491/distancelog/internal/store"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd runs update cycles forever and serves the changelist API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Update periodically and serve the changelist API",
	Long: `Run update cycles periodically and serve the changelist over HTTP.

The server will:
  - Load configuration from the specified YAML file
  - Run an update cycle, then wait update.delay before the next one
  - Serve the changelist, snapshot and last cycle report on server.port
  - Stream new changelist entries over SSE (/api/sse) and websockets (/api/ws)
  - Publish new entries to Redis if redis.address is set

A failed cycle is logged and retried after the delay. The server runs until
interrupted (Ctrl+C) or receives SIGTERM.

Example:
  distancelog serve -c config.yaml
  distancelog serve --config /etc/distancelog/config.yaml`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"rpc_address", cfg.RPC.Address,
		"workshop", cfg.Workshop.IsEnabled(),
	)
	logger.Info("starting server",
		"port", cfg.Server.Port,
		"delay", cfg.Update.Interval().String(),
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feed := store.NewFeed()
	engine, cleanup, err := buildEngine(ctx, cfg, logger,
		distancelog.WithChangeCallback(feed.Publish),
	)
	if err != nil {
		return err
	}
	defer cleanup()

	status := func() any {
		report, ok := engine.LastReport()
		if !ok {
			return map[string]string{"state": "waiting for first cycle"}
		}
		return report
	}

	httpServer := server.NewServer(config.BuildStore(cfg), feed, status, cfg.Server.Port, logger)
	if err := httpServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// start update loop - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- engine.Run(ctx, cfg.Update.Interval(), cfg.Update.DelayStart)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("update loop error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for the running cycle with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("update loop error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
