// Package store persists snapshots and changelists.
//
// The main components are:
//
//   - [Store]: load/save interface for the snapshot and the changelist
//   - [FileStore]: JSON files replaced atomically on every save
//   - [MemoryStore]: in-memory implementation for tests and embedding
//   - [Feed]: pub/sub of newly appended changelist entries
//
// A missing file loads as [ErrNotExist]; an undecodable one as
// [*CorruptError]. Only one writer, the update cycle, touches the files.
package store
