// Package level defines the levels whose leaderboards are polled.
//
// A [Level] is identified by its leaderboard name, derived from the level
// name, the [Mode] and, for workshop levels, the owner's steam id. The
// [Catalog] produces the official and workshop levels for one poll cycle.
package level
