package store

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// snapshotFile is the on-disk shape of a persisted in-process store: the
// same (namespace -> hash, namespace -> set) pair MemoryBackend.Snapshot
// returns. Mirrors the original implementation's pickle.dump(self.data, f)
// at the architecture level — one opaque blob holding the whole store.
type snapshotFile struct {
	Hash map[string]map[string][]byte
	Set  map[string]map[string]struct{}
}

// WriteSnapshot persists the store to path, atomically: it writes to a
// temp file in the same directory and renames over path, so a crash or
// concurrent reader never observes a partially written snapshot. Only
// meaningful when the store's backend is a *MemoryBackend — an external
// cache backend persists itself (e.g. Redis's own RDB/AOF).
func (s *Store) WriteSnapshot(path string) error {
	mb, ok := s.backend.(*MemoryBackend)
	if !ok {
		return fmt.Errorf("snapshot requires a memory-backed store")
	}
	hash, set := mb.Snapshot()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("creating snapshot temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	enc := gob.NewEncoder(tmp)
	if err := enc.Encode(snapshotFile{Hash: hash, Set: set}); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("installing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot restores a store previously written by WriteSnapshot. A
// missing file is not an error — callers use this at startup, where "no
// snapshot yet" just means a static load is still required.
func (s *Store) LoadSnapshot(path string) (found bool, err error) {
	mb, ok := s.backend.(*MemoryBackend)
	if !ok {
		return false, fmt.Errorf("snapshot requires a memory-backed store")
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	var sf snapshotFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return false, fmt.Errorf("decoding snapshot: %w", err)
	}
	mb.Restore(sf.Hash, sf.Set)
	return true, nil
}
