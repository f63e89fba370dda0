package store

import "sync"

// MemoryBackend is the in-process Backend: a mapping from namespace to
// either a key->value hash or a set, held entirely in memory and guarded
// by a single RWMutex. This generalizes the teacher's MemoryStorage (which
// keyed its maps by feed) to the namespace-keyed shape this store's
// contract requires.
type MemoryBackend struct {
	mu    sync.RWMutex
	hash  map[string]map[string][]byte
	set   map[string]map[string]struct{}
}

// NewMemoryBackend returns an empty in-process Backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		hash: map[string]map[string][]byte{},
		set:  map[string]map[string]struct{}{},
	}
}

func (m *MemoryBackend) Get(ns, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.hash[ns][key]
	if !ok {
		return nil, false, nil
	}
	// return a copy: callers (gob decode, or a caller unpacking a fixed
	// record) must not observe later writes through an aliased slice.
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (m *MemoryBackend) Set(ns, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hash[ns] == nil {
		m.hash[ns] = map[string][]byte{}
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m.hash[ns][key] = cp
	return nil
}

func (m *MemoryBackend) Delete(ns, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hash[ns], key)
	return nil
}

func (m *MemoryBackend) Add(ns, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.set[ns] == nil {
		m.set[ns] = map[string]struct{}{}
	}
	m.set[ns][member] = struct{}{}
	return nil
}

func (m *MemoryBackend) Remove(ns, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.set[ns], member)
	return nil
}

func (m *MemoryBackend) Has(ns, member string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.set[ns][member]
	return ok, nil
}

func (m *MemoryBackend) Cardinality(ns string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.set[ns]), nil
}

func (m *MemoryBackend) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hash = map[string]map[string][]byte{}
	m.set = map[string]map[string]struct{}{}
	return nil
}

// ReplaceNamespaces atomically swaps a set of namespaces for new contents,
// leaving all other namespaces untouched: the whole batch is installed
// under a single lock acquisition, so a reader sees either all of the old
// namespaces or all of the new ones. parse.LoadStatic does not use it; it
// writes entities into the store one at a time.
func (m *MemoryBackend) ReplaceNamespaces(hash map[string]map[string][]byte, set map[string]map[string]struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ns, kv := range hash {
		m.hash[ns] = kv
	}
	for ns, members := range set {
		m.set[ns] = members
	}
}

// Snapshot returns a deep copy of the backend's contents, suitable for gob
// encoding by the persistence layer.
func (m *MemoryBackend) Snapshot() (hash map[string]map[string][]byte, set map[string]map[string]struct{}) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hash = make(map[string]map[string][]byte, len(m.hash))
	for ns, kv := range m.hash {
		cp := make(map[string][]byte, len(kv))
		for k, v := range kv {
			vv := make([]byte, len(v))
			copy(vv, v)
			cp[k] = vv
		}
		hash[ns] = cp
	}
	set = make(map[string]map[string]struct{}, len(m.set))
	for ns, members := range m.set {
		cp := make(map[string]struct{}, len(members))
		for k := range members {
			cp[k] = struct{}{}
		}
		set[ns] = cp
	}
	return hash, set
}

// Restore replaces the backend's entire contents, used when loading a
// persisted snapshot at startup.
func (m *MemoryBackend) Restore(hash map[string]map[string][]byte, set map[string]map[string]struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hash = hash
	m.set = set
}
