package distancelog

import (
	"errors"
	"time"

	"github.com/Seeker14491/distancelog/internal/changelist"
	"github.com/Seeker14491/distancelog/internal/level"
)

// GameMode is the game mode of a leaderboard.
type GameMode = level.Mode

// Game modes with leaderboards.
const (
	Sprint    = level.Sprint
	Challenge = level.Challenge
	Stunt     = level.Stunt
)

// Level is a leaderboard together with the level it belongs to.
type Level = level.Level

// ChangelistEntry records one improvement of a level's top score.
type ChangelistEntry = changelist.Entry

// CycleReport summarizes one update cycle.
//
// CycleReport is immutable after the cycle ends. It is what /api/status
// serves in server mode.
type CycleReport struct {
	// ID is the uuid attached to every log line of the cycle.
	ID string `json:"id"`

	// StartedAt is when the cycle started.
	StartedAt time.Time `json:"started_at"`

	// Duration is how long the cycle took.
	Duration time.Duration `json:"duration_ns"`

	// Levels is the number of levels in the catalog.
	Levels int `json:"levels"`

	// Failed is the number of leaderboard queries that returned an error.
	Failed int `json:"failed"`

	// Abandoned is the number of queries cut off by the idle timeout.
	Abandoned int `json:"abandoned"`

	// NewEntries is the number of changelist entries appended.
	NewEntries int `json:"new_entries"`

	// Error is the failure that aborted the cycle, empty on success.
	Error string `json:"error,omitempty"`
}

// ErrorAttrs returns slog attributes for err and every error it wraps: the
// top-level message under "error" followed by one "caused by" per unwrapped
// level.
func ErrorAttrs(err error) []any {
	if err == nil {
		return nil
	}
	attrs := []any{"error", err.Error()}
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		attrs = append(attrs, "caused by", cause.Error())
	}
	return attrs
}
