package changelist

import (
	"cmp"
	"slices"

	"github.com/Seeker14491/distancelog/internal/level"
)

// Merge reconciles a freshly fetched snapshot with the previous one.
//
// Levels missing from fresh, and levels whose fresh leaderboard is empty
// while the old one was not, are taken from old: the service occasionally
// returns nothing for a leaderboard that has entries. Both sides are sorted
// by leaderboard name and merge-joined. Duplicate leaderboard names keep
// their first occurrence. The result is sorted by leaderboard name and does
// not alias either input.
func Merge(fresh, old []level.Level) []level.Level {
	f := sortedUnique(fresh)
	o := sortedUnique(old)

	merged := make([]level.Level, 0, max(len(f), len(o)))
	i, j := 0, 0
	for i < len(f) && j < len(o) {
		switch c := cmp.Compare(f[i].LeaderboardName, o[j].LeaderboardName); {
		case c < 0:
			merged = append(merged, f[i])
			i++
		case c > 0:
			merged = append(merged, o[j])
			j++
		default:
			if len(f[i].Leaderboard.Entries) == 0 && len(o[j].Leaderboard.Entries) > 0 {
				merged = append(merged, o[j])
			} else {
				merged = append(merged, f[i])
			}
			i++
			j++
		}
	}
	merged = append(merged, f[i:]...)
	merged = append(merged, o[j:]...)

	return merged
}

// sortedUnique returns a copy of levels sorted by leaderboard name with
// later duplicates removed.
func sortedUnique(levels []level.Level) []level.Level {
	out := slices.Clone(levels)
	slices.SortStableFunc(out, func(a, b level.Level) int {
		return cmp.Compare(a.LeaderboardName, b.LeaderboardName)
	})
	return slices.CompactFunc(out, func(a, b level.Level) bool {
		return a.LeaderboardName == b.LeaderboardName
	})
}
