package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Seeker14491/distancelog/internal/changelist"
	"github.com/Seeker14491/distancelog/internal/level"
)

// Default file names inside the data directory.
const (
	SnapshotFileName   = "query_results.json"
	ChangelistFileName = "changelist.json"
)

const filePerm fs.FileMode = 0o600

// FileStore keeps the snapshot and changelist as JSON arrays in two files.
//
// Every save marshals the data, decodes it again to verify it, writes it to
// a temporary file in the target directory and renames that over the target,
// so readers and crashes only ever see a complete file.
type FileStore struct {
	SnapshotPath   string
	ChangelistPath string
}

// NewFileStore returns a [FileStore] using the default file names in dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		SnapshotPath:   filepath.Join(dir, SnapshotFileName),
		ChangelistPath: filepath.Join(dir, ChangelistFileName),
	}
}

// LoadSnapshot implements [Store].
func (s *FileStore) LoadSnapshot() ([]level.Level, error) {
	return loadFile[level.Level](s.SnapshotPath)
}

// SaveSnapshot implements [Store].
func (s *FileStore) SaveSnapshot(levels []level.Level) error {
	return saveFile(s.SnapshotPath, levels)
}

// LoadChangelist implements [Store].
func (s *FileStore) LoadChangelist() ([]changelist.Entry, error) {
	return loadFile[changelist.Entry](s.ChangelistPath)
}

// SaveChangelist implements [Store].
func (s *FileStore) SaveChangelist(entries []changelist.Entry) error {
	return saveFile(s.ChangelistPath, entries)
}

func loadFile[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}
	return out, nil
}

func saveFile[T any](path string, data []T) error {
	if data == nil {
		data = []T{}
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	var check []T
	if err := json.Unmarshal(encoded, &check); err != nil {
		return fmt.Errorf("encoded data for %s does not decode: %w", path, err)
	}

	return writeFileAtomic(path, encoded)
}

// writeFileAtomic replaces path with data via a synced temporary file in the
// same directory. The temporary file is removed on any failure.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err = tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
