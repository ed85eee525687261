package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Seeker14491/distancelog/internal/level"
	"github.com/Seeker14491/distancelog/internal/rpc"
)

// Default orchestrator settings.
const (
	DefaultMaxConcurrency = 16
	DefaultIdleTimeout    = 60 * time.Second
)

// Only the top two entries of each leaderboard are fetched.
const (
	rankStart int32 = 1
	rankEnd   int32 = 2
)

// ErrBatchTimeout is reported by [Stream.Err] when no query completed within
// the idle timeout and the remaining queries were abandoned.
var ErrBatchTimeout = errors.New("fetch batch idle timeout")

// QueryError is the failure of a single leaderboard query.
type QueryError struct {
	LeaderboardName string
	Err             error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("leaderboard query %q failed: %v", e.LeaderboardName, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Querier fetches a rank range of a leaderboard. [rpc.Client] implements it.
type Querier interface {
	LeaderboardRange(ctx context.Context, leaderboardName string, start, end int32) (rpc.LeaderboardResponse, error)
}

// Result is the outcome of fetching one level.
type Result struct {
	// Level is the requested level. On success its Leaderboard and FetchedAt
	// are filled in.
	Level level.Level

	// Err is a *QueryError when the query failed.
	Err error

	// Latency is the time the query took.
	Latency time.Duration
}

// Option configures a [Fetcher].
type Option func(*Fetcher)

// WithMaxConcurrency bounds the number of queries in flight at once.
func WithMaxConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxConcurrency = n
		}
	}
}

// WithIdleTimeout sets how long a batch may go without a completed query
// before the remaining queries are abandoned.
func WithIdleTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.idleTimeout = d
		}
	}
}

// WithQueryTimeout bounds each individual query. Zero means no per-query
// bound; the idle timeout still applies.
func WithQueryTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d >= 0 {
			f.queryTimeout = d
		}
	}
}

// WithLogger sets the logger for batch events.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Fetcher runs batches of leaderboard queries through a bounded worker pool.
//
// A Fetcher holds only configuration and may run any number of batches,
// sequentially or concurrently.
type Fetcher struct {
	querier        Querier
	maxConcurrency int
	idleTimeout    time.Duration
	queryTimeout   time.Duration
	logger         *slog.Logger
}

// New creates a [Fetcher] that queries through q.
func New(q Querier, opts ...Option) *Fetcher {
	f := &Fetcher{
		querier:        q,
		maxConcurrency: DefaultMaxConcurrency,
		idleTimeout:    DefaultIdleTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Stream is a running batch. Results are delivered in completion order.
//
// A Stream is finite and cannot be restarted: the Results channel closes once
// every level has a result, the idle watchdog fires, or the batch context is
// cancelled.
type Stream struct {
	results chan Result
	total   int

	mu        sync.Mutex
	abandoned int
	err       error
}

// Results returns the channel of per-level results.
func (s *Stream) Results() <-chan Result {
	return s.results
}

// Total returns the number of levels submitted to the batch.
func (s *Stream) Total() int {
	return s.total
}

// Abandoned returns the number of levels that never produced a result. Final
// once Results is closed.
func (s *Stream) Abandoned() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abandoned
}

// Err returns [ErrBatchTimeout] if the watchdog cut the batch short, the
// context error if the batch context was cancelled, or nil. Final once
// Results is closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) finish(abandoned int, err error) {
	s.mu.Lock()
	s.abandoned = abandoned
	s.err = err
	s.mu.Unlock()
}

// Fetch starts querying the rank 1-2 range of every level and returns
// immediately. Item failures are reported in-stream and never stop sibling
// queries.
//
// Within one level there is exactly one query; across levels there is no
// ordering. Queries still blocked when the batch ends are cancelled through
// their context.
func (f *Fetcher) Fetch(ctx context.Context, levels []level.Level) *Stream {
	s := &Stream{
		results: make(chan Result, len(levels)),
		total:   len(levels),
	}
	if len(levels) == 0 {
		close(s.results)
		return s
	}

	workCtx, cancel := context.WithCancel(ctx)

	jobs := make(chan level.Level, len(levels))
	for _, lvl := range levels {
		jobs <- lvl
	}
	close(jobs)

	// sized for every level so workers never block on a finished batch
	completed := make(chan Result, len(levels))

	workers := min(f.maxConcurrency, len(levels))
	for i := 0; i < workers; i++ {
		go func() {
			for lvl := range jobs {
				if workCtx.Err() != nil {
					return
				}
				completed <- f.query(workCtx, lvl)
			}
		}()
	}

	go f.watch(ctx, cancel, s, completed)

	return s
}

// watch forwards completed results and closes the stream when the batch is
// done, idle for too long, or cancelled.
func (f *Fetcher) watch(ctx context.Context, cancel context.CancelFunc, s *Stream, completed <-chan Result) {
	defer close(s.results)
	defer cancel()

	idle := time.NewTimer(f.idleTimeout)
	defer idle.Stop()

	remaining := s.total
	for remaining > 0 {
		select {
		case r := <-completed:
			s.results <- r
			remaining--
			idle.Reset(f.idleTimeout)

		case <-idle.C:
			f.logger.Warn("fetch batch idle, abandoning remaining queries",
				"abandoned", remaining,
				"total", s.total,
				"idle_timeout", f.idleTimeout.String(),
			)
			s.finish(remaining, ErrBatchTimeout)
			return

		case <-ctx.Done():
			s.finish(remaining, ctx.Err())
			return
		}
	}
}

// query fetches one level, converting panics into item errors.
func (f *Fetcher) query(ctx context.Context, lvl level.Level) (result Result) {
	start := time.Now()
	result.Level = lvl

	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			f.logger.Error("leaderboard query panic",
				"correlation_id", correlationID,
				"leaderboard", lvl.LeaderboardName,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			result.Err = &QueryError{
				LeaderboardName: lvl.LeaderboardName,
				Err:             fmt.Errorf("query panic (correlation_id: %s)", correlationID),
			}
			result.Latency = time.Since(start)
		}
	}()

	if f.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.queryTimeout)
		defer cancel()
	}

	resp, err := f.querier.LeaderboardRange(ctx, lvl.LeaderboardName, rankStart, rankEnd)
	result.Latency = time.Since(start)
	if err != nil {
		result.Err = &QueryError{LeaderboardName: lvl.LeaderboardName, Err: err}
		return result
	}

	result.Level.Leaderboard = resp
	result.Level.FetchedAt = time.Now().UTC()
	return result
}
