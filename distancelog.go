package distancelog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Seeker14491/distancelog/internal/changelist"
	"github.com/Seeker14491/distancelog/internal/fetch"
	"github.com/Seeker14491/distancelog/internal/level"
	"github.com/Seeker14491/distancelog/internal/store"
)

// Client is the leaderboard service the engine polls. [rpc.Client]
// implements it.
type Client interface {
	fetch.Querier
	level.WorkshopSource
}

// Engine runs update cycles: it polls every catalogued leaderboard, merges the
// results into the last snapshot and appends record changes to the
// changelist.
//
// The typical lifecycle is:
//
//	engine, err := distancelog.New(
//	    distancelog.WithClient(client),
//	    distancelog.WithStore(store.NewFileStore(".")),
//	)
//	if err != nil {
//	    slog.Error("failed to create engine", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	engine.Run(ctx, 5*time.Minute, false) // blocks until context cancelled
//
// An Engine must be the only writer of its store. Cycles never overlap.
type Engine struct {
	client       Client
	store        store.Store
	catalog      *level.Catalog
	fetcher      *fetch.Fetcher
	cycleTimeout time.Duration
	logger       *slog.Logger
	callbacks    []func([]ChangelistEntry)

	cycleMu sync.Mutex

	mu   sync.RWMutex
	last *CycleReport
}

// New creates a new [Engine] with the given options.
//
// [WithClient] and [WithStore] are required. Other options have defaults:
//   - Catalog: built-in official levels plus all workshop levels
//   - Max concurrency: 16
//   - Idle timeout: 60 seconds
//   - Query and cycle timeouts: none
func New(opts ...Option) (*Engine, error) {
	cfg := &engineConfig{
		maxConcurrency: fetch.DefaultMaxConcurrency,
		idleTimeout:    fetch.DefaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.client == nil {
		return nil, errors.New("a client is required")
	}
	if cfg.store == nil {
		return nil, errors.New("a store is required")
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	catalog := cfg.catalog
	if catalog == nil {
		catalog = &level.Catalog{Workshop: level.WorkshopQuery{Enabled: true}}
	}
	if catalog.Logger == nil {
		c := *catalog
		c.Logger = logger
		catalog = &c
	}

	fetcher := fetch.New(cfg.client,
		fetch.WithMaxConcurrency(cfg.maxConcurrency),
		fetch.WithIdleTimeout(cfg.idleTimeout),
		fetch.WithQueryTimeout(cfg.queryTimeout),
		fetch.WithLogger(logger),
	)

	return &Engine{
		client:       cfg.client,
		store:        cfg.store,
		catalog:      catalog,
		fetcher:      fetcher,
		cycleTimeout: cfg.cycleTimeout,
		logger:       logger,
		callbacks:    cfg.callbacks,
	}, nil
}

// RunCycle performs one update: load the previous snapshot and changelist,
// enumerate and fetch all levels, merge, diff, and persist.
//
// Individual leaderboard failures and an idle batch timeout do not fail the
// cycle; their levels keep the values of the previous snapshot. A corrupt
// store file, a failed workshop query, a failed save or a cancelled context
// do, and leave the store untouched where nothing was saved yet.
//
// The changelist is only saved when a previous snapshot existed. The
// snapshot is saved last, after the changelist.
func (e *Engine) RunCycle(ctx context.Context) (CycleReport, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	report := CycleReport{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	logger := e.logger.With("cycle_id", report.ID)

	if e.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cycleTimeout)
		defer cancel()
	}

	appended, err := e.runCycle(ctx, logger, &report)
	report.Duration = time.Since(report.StartedAt)
	if err != nil {
		report.Error = err.Error()
		e.setLast(report)
		return report, err
	}
	report.NewEntries = len(appended)
	e.setLast(report)

	logger.Info("update cycle completed",
		"levels", report.Levels,
		"failed", report.Failed,
		"abandoned", report.Abandoned,
		"new_entries", report.NewEntries,
		"duration_ms", report.Duration.Milliseconds(),
	)

	for _, cb := range e.callbacks {
		invokeCallbackSafe(cb, slices.Clone(appended), logger)
	}
	return report, nil
}

func (e *Engine) runCycle(ctx context.Context, logger *slog.Logger, report *CycleReport) ([]changelist.Entry, error) {
	old, err := e.store.LoadSnapshot()
	hadSnapshot := err == nil
	if err != nil && !errors.Is(err, store.ErrNotExist) {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	existing, err := e.store.LoadChangelist()
	if err != nil && !errors.Is(err, store.ErrNotExist) {
		return nil, fmt.Errorf("failed to load changelist: %w", err)
	}

	levels, err := e.catalog.Levels(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("failed to build level catalog: %w", err)
	}
	report.Levels = len(levels)
	logger.Info("update cycle started",
		"levels", len(levels),
		"previous_snapshot", hadSnapshot,
	)

	fresh, err := e.collect(ctx, levels, logger, report)
	if err != nil {
		return nil, err
	}

	merged := changelist.Merge(fresh, old)

	var appended []changelist.Entry
	if hadSnapshot {
		var updated []changelist.Entry
		updated, appended = changelist.Update(existing, merged, old)
		if err := e.store.SaveChangelist(updated); err != nil {
			return nil, fmt.Errorf("failed to save changelist: %w", err)
		}
	}

	if err := e.store.SaveSnapshot(merged); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return appended, nil
}

// collect drains one fetch batch and returns the successfully fetched levels.
func (e *Engine) collect(ctx context.Context, levels []level.Level, logger *slog.Logger, report *CycleReport) ([]level.Level, error) {
	stream := e.fetcher.Fetch(ctx, levels)

	fresh := make([]level.Level, 0, len(levels))
	for result := range stream.Results() {
		if result.Err != nil {
			report.Failed++
			logger.Warn("leaderboard query failed",
				"leaderboard", result.Level.LeaderboardName,
				"latency_ms", result.Latency.Milliseconds(),
				"error", result.Err,
			)
			continue
		}
		fresh = append(fresh, result.Level)
	}
	report.Abandoned = stream.Abandoned()

	switch err := stream.Err(); {
	case err == nil:
	case errors.Is(err, fetch.ErrBatchTimeout):
		logger.Warn("fetch batch timed out, continuing with partial results",
			"fetched", len(fresh),
			"abandoned", report.Abandoned,
		)
	default:
		return nil, fmt.Errorf("failed to fetch leaderboards: %w", err)
	}
	return fresh, nil
}

// Run performs update cycles until ctx is cancelled, waiting delay after each
// cycle finishes. With delayStart set, the first cycle also waits delay.
//
// Failed cycles are logged and retried after the delay. Returns nil once ctx
// is cancelled.
func (e *Engine) Run(ctx context.Context, delay time.Duration, delayStart bool) error {
	if delay < 0 {
		return fmt.Errorf("delay cannot be negative, got %s", delay)
	}

	e.logger.Info("distancelog starting",
		"delay", delay.String(),
		"delay_start", delayStart,
	)

	timer := time.NewTimer(0)
	defer timer.Stop()
	if delayStart {
		timer.Reset(delay)
	}

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("distancelog stopped")
			return nil
		case <-timer.C:
		}

		if _, err := e.RunCycle(ctx); err != nil && ctx.Err() == nil {
			e.logger.Error("update cycle failed", ErrorAttrs(err)...)
		}
		timer.Reset(delay)
	}
}

// LastReport returns the report of the most recent cycle, or false if no
// cycle has completed yet.
func (e *Engine) LastReport() (CycleReport, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return CycleReport{}, false
	}
	return *e.last, true
}

func (e *Engine) setLast(r CycleReport) {
	e.mu.Lock()
	e.last = &r
	e.mu.Unlock()
}

// invokeCallbackSafe calls a change callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func([]ChangelistEntry), entries []ChangelistEntry, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("change callback panicked",
				"panic", r,
				"entries", len(entries),
			)
		}
	}()
	cb(entries)
}
