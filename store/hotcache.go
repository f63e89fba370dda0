package store

import (
	"sync"
	"time"
)

// cachedBackend decorates another Backend with an in-process hot cache,
// active only for namespaces whose NamespaceConfig.Cache is true. This is
// the Go shape of the original Store.get's inline "if is_cachable" branch:
// a value fetched from the external backend is held alongside a fetch
// timestamp, and served from memory until it ages past Expiry.
//
// Only Get reads through the hot cache. Set and Delete write straight to
// the wrapped backend and then evict the key's hot entry, so a write is
// not shadowed by a stale cached value. Set operations (Add/Remove/Has/
// Cardinality) always go straight to the wrapped backend and are never
// cached.
type cachedBackend struct {
	inner      Backend
	namespaces map[string]NamespaceConfig

	mu    sync.Mutex
	entry map[string]hotEntry
}

type hotEntry struct {
	value    []byte
	storedAt time.Time
}

func newCachedBackend(inner Backend, namespaces map[string]NamespaceConfig) *cachedBackend {
	return &cachedBackend{
		inner:      inner,
		namespaces: namespaces,
		entry:      map[string]hotEntry{},
	}
}

func hotKey(ns, key string) string { return ns + "\x00" + key }

func (c *cachedBackend) Get(ns, key string) ([]byte, bool, error) {
	cfg, cacheable := c.namespaces[ns]
	if !cacheable || !cfg.Cache {
		return c.inner.Get(ns, key)
	}

	k := hotKey(ns, key)
	c.mu.Lock()
	e, ok := c.entry[k]
	c.mu.Unlock()
	if ok {
		if cfg.NoExpiry || time.Since(e.storedAt) < cfg.Expiry {
			return e.value, true, nil
		}
		c.mu.Lock()
		delete(c.entry, k)
		c.mu.Unlock()
	}

	v, found, err := c.inner.Get(ns, key)
	if err != nil || !found {
		return v, found, err
	}
	c.mu.Lock()
	c.entry[k] = hotEntry{value: v, storedAt: time.Now()}
	c.mu.Unlock()
	return v, true, nil
}

func (c *cachedBackend) Set(ns, key string, value []byte) error {
	if err := c.inner.Set(ns, key, value); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.entry, hotKey(ns, key))
	c.mu.Unlock()
	return nil
}

func (c *cachedBackend) Delete(ns, key string) error {
	if err := c.inner.Delete(ns, key); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.entry, hotKey(ns, key))
	c.mu.Unlock()
	return nil
}

func (c *cachedBackend) Add(ns, member string) error      { return c.inner.Add(ns, member) }
func (c *cachedBackend) Remove(ns, member string) error    { return c.inner.Remove(ns, member) }
func (c *cachedBackend) Has(ns, member string) (bool, error) { return c.inner.Has(ns, member) }
func (c *cachedBackend) Cardinality(ns string) (int, error)  { return c.inner.Cardinality(ns) }

func (c *cachedBackend) Clear() error {
	c.mu.Lock()
	c.entry = map[string]hotEntry{}
	c.mu.Unlock()
	return c.inner.Clear()
}

// NewRedisStore constructs a Store backed by Redis, with a hot cache in
// front of it governed by namespaces (typically DefaultNamespaceConfig()).
func NewRedisStore(backend *RedisBackend, namespaces map[string]NamespaceConfig) *Store {
	return New(newCachedBackend(backend, namespaces))
}
