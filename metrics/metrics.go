// Package metrics exposes the module's Prometheus counters/gauges/
// histogram and the HTTP handler that serves them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	liveUpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gtfs_live_updates_total",
		Help: "Total scheduled stop_time_update records applied across all ingest passes",
	})
	liveUnrecognisedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gtfs_live_unrecognised_trips_total",
		Help: "Total stop_time_update records referencing a trip_id not found in the loaded static data",
	})
	liveAddedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gtfs_live_added_trips_total",
		Help: "Total stop_time_update records of unscheduled (added) trips reported via the realtime feed",
	})
	liveCancelledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gtfs_live_cancelled_trips_total",
		Help: "Total stop_time_update records of trips marked cancelled via the realtime feed",
	})
	rateLimitTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gtfs_live_rate_limited_total",
		Help: "Total HTTP 429 responses received while polling the realtime feed",
	})
	staticLoadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gtfs_static_load_duration_seconds",
		Help:    "Duration of a full static feed load",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	resolverQueryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gtfs_resolver_query_duration_seconds",
		Help:    "Duration of a single GetScheduledArrivals resolution",
		Buckets: prometheus.DefBuckets,
	})
	tripsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gtfs_trips_loaded",
		Help: "Number of trips held by the most recently completed static load",
	})
)

func init() {
	prometheus.MustRegister(
		liveUpdatesTotal, liveUnrecognisedTotal, liveAddedTotal, liveCancelledTotal,
		rateLimitTotal, staticLoadDuration, resolverQueryDuration, tripsLoaded,
	)
}

// RecordLiveIngest updates the counters touched by one realtime ingest
// pass.
func RecordLiveIngest(updates, unrecognised, added, cancelled int) {
	liveUpdatesTotal.Add(float64(updates))
	liveUnrecognisedTotal.Add(float64(unrecognised))
	liveAddedTotal.Add(float64(added))
	liveCancelledTotal.Add(float64(cancelled))
}

// RecordRateLimit increments the 429 counter.
func RecordRateLimit() {
	rateLimitTotal.Inc()
}

// RecordStaticLoad records the duration of a completed static load and
// the number of trips it produced.
func RecordStaticLoad(d time.Duration, numTrips int) {
	staticLoadDuration.Observe(d.Seconds())
	tripsLoaded.Set(float64(numTrips))
}

// ObserveResolverQuery records how long one arrival resolution took.
func ObserveResolverQuery(d time.Duration) {
	resolverQueryDuration.Observe(d.Seconds())
}

// Handler returns the HTTP handler serving /metrics in the Prometheus
// exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
