package distancelog

import (
	"errors"
	"log/slog"
	"time"

	"github.com/Seeker14491/distancelog/internal/level"
	"github.com/Seeker14491/distancelog/internal/store"
)

// engineConfig holds mutable state during Engine construction.
type engineConfig struct {
	client         Client
	store          store.Store
	catalog        *level.Catalog
	maxConcurrency int
	idleTimeout    time.Duration
	queryTimeout   time.Duration
	cycleTimeout   time.Duration
	logger         *slog.Logger
	callbacks      []func([]ChangelistEntry)
}

// Option is a function that configures an [Engine] during construction.
//
// Options return an error if validation fails.
type Option func(*engineConfig) error

// WithClient sets the leaderboard service client. Required.
//
// Example:
//
//	transport := rpc.Dial("127.0.0.1:25565")
//	defer transport.Close()
//
//	engine, err := distancelog.New(
//	    distancelog.WithClient(rpc.NewClient(transport)),
//	    distancelog.WithStore(store.NewFileStore(".")),
//	)
func WithClient(c Client) Option {
	return func(cfg *engineConfig) error {
		if c == nil {
			return errors.New("client cannot be nil")
		}
		cfg.client = c
		return nil
	}
}

// WithStore sets where the snapshot and changelist are persisted. Required.
func WithStore(s store.Store) Option {
	return func(cfg *engineConfig) error {
		if s == nil {
			return errors.New("store cannot be nil")
		}
		cfg.store = s
		return nil
	}
}

// WithCatalog sets which levels are polled each cycle.
//
// Defaults to the built-in official levels plus every workshop level.
//
// Example:
//
//	engine, err := distancelog.New(
//	    distancelog.WithClient(client),
//	    distancelog.WithStore(st),
//	    distancelog.WithCatalog(&level.Catalog{
//	        Official: level.OfficialNames{level.Sprint: {"Broken Symmetry"}},
//	    }),
//	)
func WithCatalog(c *level.Catalog) Option {
	return func(cfg *engineConfig) error {
		if c == nil {
			return errors.New("catalog cannot be nil")
		}
		cfg.catalog = c
		return nil
	}
}

// WithMaxConcurrency sets the maximum number of leaderboard queries in
// flight at once. Defaults to 16.
//
// Returns an error if the value is zero or negative.
func WithMaxConcurrency(n int) Option {
	return func(cfg *engineConfig) error {
		if n <= 0 {
			return errors.New("max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithIdleTimeout sets how long a fetch batch may go without a completed
// query before the remaining queries are abandoned. Defaults to 60 seconds.
//
// Returns an error if the duration is zero or negative.
func WithIdleTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d <= 0 {
			return errors.New("idle timeout must be positive")
		}
		cfg.idleTimeout = d
		return nil
	}
}

// WithQueryTimeout bounds each individual leaderboard query. Zero, the
// default, leaves queries bounded only by the idle timeout.
//
// Returns an error if the duration is negative.
func WithQueryTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d < 0 {
			return errors.New("query timeout cannot be negative")
		}
		cfg.queryTimeout = d
		return nil
	}
}

// WithCycleTimeout bounds a whole update cycle. Zero, the default, means no
// bound.
//
// Returns an error if the duration is negative.
func WithCycleTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d < 0 {
			return errors.New("cycle timeout cannot be negative")
		}
		cfg.cycleTimeout = d
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the engine and the components it
// drives. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *engineConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithChangeCallback registers a function called after every successful
// cycle with the entries it appended to the changelist, oldest first. The
// slice is empty when nothing changed.
//
// Multiple callbacks may be registered; they execute in registration order,
// each with its own copy of the entries.
//
// Callbacks run synchronously on the cycle goroutine and delay the next cycle
// while they run. Panics within callbacks are recovered and logged.
//
// Example:
//
//	engine, err := distancelog.New(
//	    distancelog.WithClient(client),
//	    distancelog.WithStore(st),
//	    distancelog.WithChangeCallback(func(entries []distancelog.ChangelistEntry) {
//	        for _, e := range entries {
//	            log.Printf("new record on %s by %s", e.MapName, e.NewRecordholder)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithChangeCallback(cb func([]ChangelistEntry)) Option {
	return func(cfg *engineConfig) error {
		if cb != nil {
			cfg.callbacks = append(cfg.callbacks, cb)
		}
		return nil
	}
}
