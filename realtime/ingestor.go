package realtime

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/seanblanchfield/tfi-gtfs/metrics"
	"github.com/seanblanchfield/tfi-gtfs/store"
)

// Ingestor periodically fetches a GTFS-realtime feed and applies it to a
// Store, backing off exponentially while the upstream API rate-limits it.
type Ingestor struct {
	LiveURL        string
	APIKey         string
	PollingPeriod  time.Duration
	FilterStops    map[string]bool
	HTTPClient     *http.Client
	Log            *slog.Logger

	mu             sync.Mutex
	rateLimitCount int
	cron           *cron.Cron
	entryID        cron.EntryID
}

// NewIngestor constructs an Ingestor with a default 10s HTTP client.
func NewIngestor(liveURL, apiKey string, pollingPeriod time.Duration, filterStops map[string]bool, log *slog.Logger) *Ingestor {
	if log == nil {
		log = slog.Default()
	}
	return &Ingestor{
		LiveURL:       liveURL,
		APIKey:        apiKey,
		PollingPeriod: pollingPeriod,
		FilterStops:   filterStops,
		HTTPClient:    &http.Client{Timeout: 10 * time.Second},
		Log:           log,
	}
}

// RateLimitCount returns the current consecutive-429 count, for metrics.
func (ing *Ingestor) RateLimitCount() int {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	return ing.rateLimitCount
}

// Start schedules periodic polling against s. The effective interval
// backs off to polling_period * 1.5^rate_limit_count while the upstream
// API is rate-limiting; Stop cancels the schedule.
func (ing *Ingestor) Start(s *store.Store) {
	ing.cron = cron.New(cron.WithSeconds())
	id, err := ing.cron.AddFunc(everySpec(ing.nextInterval()), func() { ing.tick(s) })
	if err != nil {
		ing.Log.Error("scheduling live ingest", "error", err)
		return
	}
	ing.entryID = id
	ing.cron.Start()
}

// Stop cancels the scheduled polling.
func (ing *Ingestor) Stop() {
	if ing.cron != nil {
		ing.cron.Stop()
	}
}

func (ing *Ingestor) nextInterval() time.Duration {
	backoff := math.Pow(1.5, float64(ing.RateLimitCount()))
	return time.Duration(float64(ing.PollingPeriod) * backoff)
}

func everySpec(d time.Duration) string {
	return fmt.Sprintf("@every %s", d.String())
}

// tick runs one ingest pass and reschedules itself at the (possibly
// backed-off) next interval, since robfig/cron entries run on a fixed
// spec rather than one that can change between firings.
func (ing *Ingestor) tick(s *store.Store) {
	if err := ing.Poll(s); err != nil {
		ing.Log.Error("polling live feed", "error", err)
	}

	if ing.cron == nil {
		return
	}
	ing.cron.Remove(ing.entryID)
	id, err := ing.cron.AddFunc(everySpec(ing.nextInterval()), func() { ing.tick(s) })
	if err != nil {
		ing.Log.Error("rescheduling live ingest", "error", err)
		return
	}
	ing.entryID = id
}

// Poll performs a single fetch-and-apply iteration.
func (ing *Ingestor) Poll(s *store.Store) error {
	req, err := http.NewRequest(http.MethodGet, ing.LiveURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("x-api-key", ing.APIKey)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := ing.HTTPClient.Do(req)
	if err != nil {
		ing.Log.Error("fetching real time updates", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		ing.mu.Lock()
		ing.rateLimitCount++
		ing.mu.Unlock()
		metrics.RecordRateLimit()
		ing.Log.Warn("rate limited fetching live feed")
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		ing.Log.Error("error fetching real time updates", "status", resp.StatusCode)
		return nil
	}

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	counts, err := ParseAndApply(s, buf, ing.FilterStops, ing.Log)
	if err != nil {
		return fmt.Errorf("applying live feed: %w", err)
	}
	metrics.RecordLiveIngest(counts.Updates, counts.Unrecognised, counts.Added, counts.Cancelled)

	ing.mu.Lock()
	ing.rateLimitCount = 0
	ing.mu.Unlock()
	return nil
}
