package changelist

import (
	"cmp"
	"slices"

	"github.com/Seeker14491/distancelog/internal/level"
)

// Update compares the current records of fresh against old and returns the
// changelist with the new entries appended, along with just the appended
// entries.
//
// A level gets an entry when its fresh rank 1 score is strictly better than
// its old one under the mode's ordering. A level that old does not know is a
// first observation and gets no entry; a level that old knows without any
// record gets a first-record entry with no previous holder. Entries that are
// likely duplicates of any existing entry are dropped.
//
// Levels are processed in ascending workshop item id (official levels first)
// and the surviving entries are appended in reverse processing order.
// existing is not modified.
func Update(existing []Entry, fresh, old []level.Level) (updated, appended []Entry) {
	ordered := slices.Clone(fresh)
	slices.SortStableFunc(ordered, func(a, b level.Level) int {
		return cmp.Compare(a.WorkshopID(), b.WorkshopID())
	})

	previous := make(map[string]level.Level, len(old))
	for _, lvl := range old {
		if _, dup := previous[lvl.LeaderboardName]; !dup {
			previous[lvl.LeaderboardName] = lvl
		}
	}

	for _, lvl := range ordered {
		first, ok := recordOf(lvl)
		if !ok {
			continue
		}
		prevLevel, known := previous[lvl.LeaderboardName]
		if !known {
			continue
		}

		var entry Entry
		if prev, had := recordOf(prevLevel); had {
			if !lvl.Mode.Better(first.score, prev.score) {
				continue
			}
			entry = newEntry(lvl, first, prev)
		} else {
			entry = newEntry(lvl, first, nil)
		}

		if slices.ContainsFunc(existing, entry.IsLikelyDuplicateOf) {
			continue
		}
		appended = append(appended, entry)
	}

	slices.Reverse(appended)

	updated = make([]Entry, 0, len(existing)+len(appended))
	updated = append(updated, existing...)
	updated = append(updated, appended...)
	return updated, appended
}
