package store

import (
	"errors"
	"fmt"

	"github.com/Seeker14491/distancelog/internal/changelist"
	"github.com/Seeker14491/distancelog/internal/level"
)

// ErrNotExist is returned by the Load methods when nothing has been saved
// yet. Callers treat it as "no prior data".
var ErrNotExist = errors.New("no saved data")

// CorruptError is returned by the Load methods when saved data exists but
// cannot be decoded.
type CorruptError struct {
	// Path identifies the unreadable data, a file path for [FileStore].
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt data in %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Store persists the snapshot of the last poll and the changelist.
//
// Saves replace the stored value as a whole and are all-or-nothing: after a
// failed save the previous value is still loadable. Implementations must be
// safe for concurrent readers alongside a single writer.
type Store interface {
	// LoadSnapshot returns the last saved snapshot, or ErrNotExist.
	LoadSnapshot() ([]level.Level, error)

	// SaveSnapshot replaces the saved snapshot.
	SaveSnapshot(levels []level.Level) error

	// LoadChangelist returns the saved changelist, or ErrNotExist.
	LoadChangelist() ([]changelist.Entry, error)

	// SaveChangelist replaces the saved changelist.
	SaveChangelist(entries []changelist.Entry) error
}
