package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreHashRoundTrip(t *testing.T) {
	s := NewMemoryStore()

	type route struct {
		Name     string
		AgencyID string
	}

	require.NoError(t, s.Set(NSRoute, "49", route{Name: "49", AgencyID: "dublinbus"}))

	var got route
	found, err := s.Get(NSRoute, "49", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, route{Name: "49", AgencyID: "dublinbus"}, got)

	found, err = s.Get(NSRoute, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreBytesRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.SetBytes(NSTrip, "3582_11643", []byte{1, 2, 3}))

	got, found, err := s.GetBytes(NSTrip, "3582_11643")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestMemoryStoreSetSemantics(t *testing.T) {
	s := NewMemoryStore()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Add(NSStopNumbers, "1358"))
	}
	require.NoError(t, s.Add(NSStopNumbers, "1359"))

	n, err := s.Cardinality(NSStopNumbers)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	has, err := s.Has(NSStopNumbers, "1358")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.Remove(NSStopNumbers, "1358"))
	has, err = s.Has(NSStopNumbers, "1358")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set(NSAgency, "dublinbus", "Dublin Bus"))
	require.NoError(t, s.Add(NSStopNumbers, "1358"))

	path := filepath.Join(t.TempDir(), "snapshot.gob")
	require.NoError(t, s.WriteSnapshot(path))

	restored := NewMemoryStore()
	found, err := restored.LoadSnapshot(path)
	require.NoError(t, err)
	assert.True(t, found)

	var agency string
	found, err = restored.Get(NSAgency, "dublinbus", &agency)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Dublin Bus", agency)

	has, err := restored.Has(NSStopNumbers, "1358")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestLoadSnapshotMissingFileIsNotAnError(t *testing.T) {
	s := NewMemoryStore()
	found, err := s.LoadSnapshot(filepath.Join(t.TempDir(), "does-not-exist.gob"))
	require.NoError(t, err)
	assert.False(t, found)
}

// fakeBackend lets the hot-cache decorator tests drive Get without a real
// Redis instance: it counts calls so freshness behavior is observable.
type fakeBackend struct {
	MemoryBackend
	gets int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{MemoryBackend: *NewMemoryBackend()}
}

func (f *fakeBackend) Get(ns, key string) ([]byte, bool, error) {
	f.gets++
	return f.MemoryBackend.Get(ns, key)
}

func TestHotCacheFreshness(t *testing.T) {
	backend := newFakeBackend()
	cached := newCachedBackend(backend, map[string]NamespaceConfig{
		NSRoute: {Cache: true, Expiry: 20 * time.Millisecond},
	})

	require.NoError(t, backend.Set(NSRoute, "49", []byte("x")))

	_, _, err := cached.Get(NSRoute, "49")
	require.NoError(t, err)
	_, _, err = cached.Get(NSRoute, "49")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.gets, "second read within expiry should be served from the hot cache")

	time.Sleep(30 * time.Millisecond)
	_, _, err = cached.Get(NSRoute, "49")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.gets, "read past expiry must refetch from the backend")
}

func TestHotCacheOnlyAppliesToCacheableNamespaces(t *testing.T) {
	backend := newFakeBackend()
	cached := newCachedBackend(backend, map[string]NamespaceConfig{
		NSRoute: {Cache: true, NoExpiry: true},
	})
	require.NoError(t, backend.Set(NSAgency, "dublinbus", []byte("x")))

	_, _, err := cached.Get(NSAgency, "dublinbus")
	require.NoError(t, err)
	_, _, err = cached.Get(NSAgency, "dublinbus")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.gets, "uncacheable namespace must always hit the backend")
}
