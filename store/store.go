// Package store implements the two-tier namespaced KV store: every key is
// (namespace, key) -> value for hashes, or (namespace) -> set<value> for
// sets, addressable against either an in-process backend or an external
// cache (Redis), with an optional per-namespace hot cache sitting in front
// of the latter. This generalizes the original implementation's single
// Store class, which branched on "is redis configured" inline; here the
// branch is a Backend interface and a decorator.
package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Backend is the storage tier a Store addresses. Both the in-process and
// the external-cache tier implement it uniformly: hash values cross the
// interface as opaque byte blobs, matching the external backend's actual
// constraint (Redis cannot hold a Go struct) and keeping both tiers on one
// code path.
type Backend interface {
	Get(ns, key string) ([]byte, bool, error)
	Set(ns, key string, value []byte) error
	Delete(ns, key string) error
	Add(ns, member string) error
	Remove(ns, member string) error
	Has(ns, member string) (bool, error)
	Cardinality(ns string) (int, error)
	Clear() error
}

// Store is the namespaced KV store handle used by the loader, ingestor and
// resolver. It never performs I/O of its own beyond what its Backend does;
// construction decides whether that's process memory or a network round
// trip.
type Store struct {
	backend Backend
}

// New wraps a Backend in a Store. Use NewMemoryStore or NewRedisStore for
// the two concrete backends this module supports.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// NewMemoryStore constructs a Store backed entirely by process memory.
func NewMemoryStore() *Store {
	return New(NewMemoryBackend())
}

// GetBytes fetches a namespaced key's raw bytes, as stored. Used for
// PackedTrip/PackedStopTime values, which are already a fixed-width byte
// encoding and would only pay for nothing by round-tripping through gob.
func (s *Store) GetBytes(ns, key string) ([]byte, bool, error) {
	return s.backend.Get(ns, key)
}

// SetBytes stores a namespaced key's raw bytes.
func (s *Store) SetBytes(ns, key string, value []byte) error {
	return s.backend.Set(ns, key, value)
}

// Get decodes a namespaced key into dst (a pointer), gob-decoding the
// stored blob. Returns found=false (and leaves dst untouched) on a miss or
// on a corrupted entry — per the KV store's failure semantics, a bad blob
// must never crash the process, only be treated as absent.
func (s *Store) Get(ns, key string, dst any) (bool, error) {
	raw, found, err := s.backend.Get(ns, key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(dst); err != nil {
		return false, nil
	}
	return true, nil
}

// Set gob-encodes value and stores it under (ns, key).
func (s *Store) Set(ns, key string, value any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return fmt.Errorf("encoding value for %s/%s: %w", ns, key, err)
	}
	return s.backend.Set(ns, key, buf.Bytes())
}

// Delete removes a namespaced key.
func (s *Store) Delete(ns, key string) error {
	return s.backend.Delete(ns, key)
}

// Add inserts a member into a namespace's set.
func (s *Store) Add(ns, member string) error {
	return s.backend.Add(ns, member)
}

// Remove deletes a member from a namespace's set.
func (s *Store) Remove(ns, member string) error {
	return s.backend.Remove(ns, member)
}

// Has reports whether a member is present in a namespace's set.
func (s *Store) Has(ns, member string) (bool, error) {
	return s.backend.Has(ns, member)
}

// Cardinality returns the number of distinct members in a namespace's set.
func (s *Store) Cardinality(ns string) (int, error) {
	return s.backend.Cardinality(ns)
}

// Clear discards every namespace's contents.
func (s *Store) Clear() error {
	return s.backend.Clear()
}

// Backend exposes the underlying Backend, e.g. so a snapshot writer can
// downcast to *MemoryBackend.
func (s *Store) Backend() Backend {
	return s.backend
}
