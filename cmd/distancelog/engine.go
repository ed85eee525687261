package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Seeker14491/distancelog"
	"github.com/Seeker14491/distancelog/config"
	"github.com/Seeker14491/distancelog/internal/rpc"
)

// buildEngine creates the engine described by cfg together with its
// connections. Redis notification is registered when configured; an
// unreachable Redis server is logged and skipped. The returned cleanup
// closes every connection.
func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, extra ...distancelog.Option) (*distancelog.Engine, func(), error) {
	transport := config.BuildTransport(cfg, logger)
	closers := []func() error{transport.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	opts := config.BuildOptions(cfg, rpc.NewClient(transport), logger)

	notifier, client, err := config.BuildNotifier(ctx, cfg, logger)
	switch {
	case err != nil:
		logger.Warn("redis notification disabled", distancelog.ErrorAttrs(err)...)
	case notifier != nil:
		closers = append(closers, client.Close)
		opts = append(opts, distancelog.WithChangeCallback(func(entries []distancelog.ChangelistEntry) {
			notifier.Notify(ctx, entries)
		}))
		logger.Info("redis notification enabled",
			"address", cfg.Redis.Address,
			"channel", cfg.Redis.Channel,
		)
	}

	engine, err := distancelog.New(append(opts, extra...)...)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return engine, cleanup, nil
}
