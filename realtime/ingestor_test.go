package realtime

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanblanchfield/tfi-gtfs/store"
)

func emptyFeed(t *testing.T) []byte {
	t.Helper()
	buf, err := proto.Marshal(&gtfsproto.FeedMessage{
		Header: &gtfsproto.FeedHeader{
			GtfsRealtimeVersion: strp("2.0"),
			Timestamp:           uint64p(1000),
		},
	})
	require.NoError(t, err)
	return buf
}

func TestIngestorPollSuccessResetsRateLimit(t *testing.T) {
	var gotAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("x-api-key")
		w.WriteHeader(http.StatusOK)
		w.Write(emptyFeed(t))
	}))
	defer srv.Close()

	ing := NewIngestor(srv.URL, "secret-key", time.Second, nil, discardLogger())
	ing.rateLimitCount = 3

	require.NoError(t, ing.Poll(store.NewMemoryStore()))
	assert.Equal(t, "secret-key", gotAPIKey)
	assert.Equal(t, 0, ing.RateLimitCount())
}

func TestIngestorPollRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ing := NewIngestor(srv.URL, "k", time.Second, nil, discardLogger())
	require.NoError(t, ing.Poll(store.NewMemoryStore()))
	assert.Equal(t, 1, ing.RateLimitCount())
}

func TestIngestorPollServerErrorIsNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ing := NewIngestor(srv.URL, "k", time.Second, nil, discardLogger())
	require.NoError(t, ing.Poll(store.NewMemoryStore()))
	assert.Equal(t, 0, ing.RateLimitCount())
}

func TestIngestorPollNetworkErrorIsNonFatal(t *testing.T) {
	ing := NewIngestor("http://127.0.0.1:1", "k", time.Second, nil, discardLogger())
	require.NoError(t, ing.Poll(store.NewMemoryStore()))
}

func TestIngestorNextIntervalBacksOffExponentially(t *testing.T) {
	ing := NewIngestor("http://example.invalid", "k", 10*time.Second, nil, discardLogger())
	assert.Equal(t, 10*time.Second, ing.nextInterval())

	ing.rateLimitCount = 1
	assert.Equal(t, 15*time.Second, ing.nextInterval())

	ing.rateLimitCount = 2
	assert.Equal(t, 22500*time.Millisecond, ing.nextInterval())
}

func TestIngestorStartStopPollsPeriodically(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
		w.Write(emptyFeed(t))
	}))
	defer srv.Close()

	ing := NewIngestor(srv.URL, "k", time.Second, nil, discardLogger())
	ing.Start(store.NewMemoryStore())
	defer ing.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&hits) >= 1
	}, 3*time.Second, 50*time.Millisecond)

	ing.Stop()
	afterStop := atomic.LoadInt32(&hits)
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, afterStop, atomic.LoadInt32(&hits))
}
