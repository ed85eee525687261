package config

import (
	"context"
	"log/slog"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/Seeker14491/distancelog"
	"github.com/Seeker14491/distancelog/internal/level"
	"github.com/Seeker14491/distancelog/internal/notify"
	"github.com/Seeker14491/distancelog/internal/rpc"
	"github.com/Seeker14491/distancelog/internal/store"
)

// BuildTransport creates the connection to the leaderboard service. The
// caller must close it.
func BuildTransport(cfg *Config, logger *slog.Logger) *rpc.Transport {
	return rpc.Dial(cfg.RPC.Address,
		rpc.WithReconnectDelay(cfg.RPC.ReconnectDelay.Duration()),
		rpc.WithIOTimeout(cfg.RPC.IOTimeout.Duration()),
		rpc.WithTransportLogger(logger),
	)
}

// BuildStore returns the file store for the configured data paths.
func BuildStore(cfg *Config) *store.FileStore {
	return &store.FileStore{
		SnapshotPath:   cfg.Data.Snapshot,
		ChangelistPath: cfg.Data.Changelist,
	}
}

// BuildCatalog converts the level configuration into a catalog. With no
// official levels configured the catalog uses the built-in list.
func BuildCatalog(cfg *Config, logger *slog.Logger) *level.Catalog {
	c := &level.Catalog{
		Workshop: level.WorkshopQuery{
			Enabled:    cfg.Workshop.IsEnabled(),
			MaxResults: cfg.Workshop.MaxResults,
			Search:     cfg.Workshop.Search,
		},
		Logger: logger,
	}

	if !cfg.OfficialLevels.IsEmpty() {
		c.Official = make(level.OfficialNames, len(level.Modes))
		for mode, names := range cfg.OfficialLevels.byMode() {
			if len(names) > 0 {
				c.Official[mode] = slices.Clone(names)
			}
		}
	}
	return c
}

// BuildOptions converts parsed configuration into engine options using
// client to reach the leaderboard service.
func BuildOptions(cfg *Config, client distancelog.Client, logger *slog.Logger) []distancelog.Option {
	opts := []distancelog.Option{
		distancelog.WithClient(client),
		distancelog.WithStore(BuildStore(cfg)),
		distancelog.WithCatalog(BuildCatalog(cfg, logger)),
		distancelog.WithMaxConcurrency(cfg.Fetch.MaxConcurrency),
		distancelog.WithIdleTimeout(cfg.Fetch.IdleTimeout.Duration()),
		distancelog.WithQueryTimeout(cfg.Fetch.QueryTimeout.Duration()),
		distancelog.WithCycleTimeout(cfg.Update.CycleTimeout.Duration()),
	}
	if logger != nil {
		opts = append(opts, distancelog.WithLogger(logger))
	}
	return opts
}

// BuildNotifier connects to Redis and returns a notifier publishing to the
// configured channel, or nil when Redis is not configured. The caller must
// close the returned client.
func BuildNotifier(ctx context.Context, cfg *Config, logger *slog.Logger) (*notify.Redis, *redis.Client, error) {
	if !cfg.Redis.Enabled() {
		return nil, nil, nil
	}

	client, err := notify.Connect(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	return notify.NewRedis(client, cfg.Redis.Channel, logger), client, nil
}
