package durable

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/josedab/quicksilver/internal/errors"
	"github.com/josedab/quicksilver/internal/vm"
)

// StorageBackend persists durable-object snapshots keyed by object id.
// Backends see one request at a time: the manager owns exclusive access.
type StorageBackend interface {
	// Load returns the persisted state for id, or ok=false when none exists.
	Load(id string) (map[string]vm.Value, bool, error)
	Save(id string, state map[string]vm.Value) error
	Delete(id string) error
	ListObjects() ([]string, error)
}

// WalBackend is implemented by backends that journal mutations eagerly so a
// crash between persists loses nothing.
type WalBackend interface {
	AppendWal(id string, entry WalEntry) error
	LoadWal(id string) ([]WalEntry, error)
	TruncateWal(id string) error
}

// ---------------------------------------------------------------------------
// MemoryStorage
// ---------------------------------------------------------------------------

// MemoryStorage is an in-process backend, sufficient for tests. No
// persistence across instances unless the same MemoryStorage is shared.
type MemoryStorage struct {
	data map[string]map[string]vm.Value
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]map[string]vm.Value)}
}

func (s *MemoryStorage) Load(id string) (map[string]vm.Value, bool, error) {
	state, ok := s.data[id]
	if !ok {
		return nil, false, nil
	}
	clone := make(map[string]vm.Value, len(state))
	for k, v := range state {
		clone[k] = v
	}
	return clone, true, nil
}

func (s *MemoryStorage) Save(id string, state map[string]vm.Value) error {
	clone := make(map[string]vm.Value, len(state))
	for k, v := range state {
		clone[k] = v
	}
	s.data[id] = clone
	return nil
}

func (s *MemoryStorage) Delete(id string) error {
	delete(s.data, id)
	return nil
}

func (s *MemoryStorage) ListObjects() ([]string, error) {
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// FileStorage
// ---------------------------------------------------------------------------

// FileStorage keeps one pretty-printed JSON snapshot per object id.
// Snapshots write atomically: a temp file is written then renamed onto the
// destination.
type FileStorage struct {
	baseDir string
}

// NewFileStorage opens (or creates) a storage directory.
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errors.NewModuleError("Failed to create storage directory: %v", err)
	}
	return &FileStorage{baseDir: baseDir}, nil
}

func (s *FileStorage) dataPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStorage) tmpPath(id string) string {
	return filepath.Join(s.baseDir, id+".tmp.json")
}

func (s *FileStorage) walPath(id string) string {
	return filepath.Join(s.baseDir, id+".wal.json")
}

func (s *FileStorage) Load(id string) (map[string]vm.Value, bool, error) {
	content, err := os.ReadFile(s.dataPath(id))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewModuleError("Failed to read: %v", err)
	}
	state, uerr := unmarshalState(content)
	if uerr != nil {
		return nil, false, uerr
	}
	return state, true, nil
}

func (s *FileStorage) Save(id string, state map[string]vm.Value) error {
	data, err := marshalState(state)
	if err != nil {
		return err
	}
	tmp := s.tmpPath(id)
	if werr := os.WriteFile(tmp, data, 0o644); werr != nil {
		return errors.NewModuleError("Failed to write tmp: %v", werr)
	}
	if rerr := os.Rename(tmp, s.dataPath(id)); rerr != nil {
		return errors.NewModuleError("Failed to rename: %v", rerr)
	}
	return nil
}

func (s *FileStorage) Delete(id string) error {
	for _, path := range []string{s.dataPath(id), s.walPath(id), s.tmpPath(id)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.NewModuleError("Failed to delete: %v", err)
		}
	}
	return nil
}

func (s *FileStorage) ListObjects() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, errors.NewModuleError("Failed to list dir: %v", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") ||
			strings.Contains(name, ".wal.") || strings.Contains(name, ".tmp.") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// WalFileStorage
// ---------------------------------------------------------------------------

// WalFileStorage adds eager WAL journaling on top of FileStorage: every
// mutation flushes `<id>.wal.json` before the in-memory state changes, and a
// successful snapshot deletes the journal. Hydrating replays any journal
// left behind by a crash.
type WalFileStorage struct {
	FileStorage
	wals map[string][]WalEntry
}

// NewWalFileStorage opens (or creates) a WAL-journaled storage directory.
func NewWalFileStorage(baseDir string) (*WalFileStorage, error) {
	fs, err := NewFileStorage(baseDir)
	if err != nil {
		return nil, err
	}
	return &WalFileStorage{FileStorage: *fs, wals: make(map[string][]WalEntry)}, nil
}

func (s *WalFileStorage) AppendWal(id string, entry WalEntry) error {
	s.wals[id] = append(s.wals[id], entry)
	data, err := marshalWal(s.wals[id])
	if err != nil {
		return err
	}
	if werr := os.WriteFile(s.walPath(id), data, 0o644); werr != nil {
		return errors.NewModuleError("WAL write failed: %v", werr)
	}
	return nil
}

func (s *WalFileStorage) LoadWal(id string) ([]WalEntry, error) {
	content, err := os.ReadFile(s.walPath(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewModuleError("Failed to read WAL: %v", err)
	}
	entries, uerr := unmarshalWal(content)
	if uerr != nil {
		return nil, uerr
	}
	s.wals[id] = entries
	return entries, nil
}

func (s *WalFileStorage) TruncateWal(id string) error {
	delete(s.wals, id)
	if err := os.Remove(s.walPath(id)); err != nil && !os.IsNotExist(err) {
		return errors.NewModuleError("WAL truncate failed: %v", err)
	}
	return nil
}

// Save persists the snapshot and drops the journal: the snapshot now covers
// everything the WAL recorded.
func (s *WalFileStorage) Save(id string, state map[string]vm.Value) error {
	if err := s.FileStorage.Save(id, state); err != nil {
		return err
	}
	return s.TruncateWal(id)
}
