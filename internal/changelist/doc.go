// Package changelist detects record changes between two snapshots.
//
// [Merge] fills gaps in a freshly fetched snapshot from the previous one, and
// [Update] diffs the merged snapshot against the previous one to append new
// [Entry] values to the append-only changelist.
package changelist
