package store

import (
	"fmt"
	"time"
)

// Namespace names used throughout the loader, ingestor and resolver. Kept
// as plain strings (not an enum) because the KV store's own contract is
// namespace-agnostic; these are simply the names this module's callers
// agree on.
const (
	NSAgency            = "agency"
	NSRoute             = "route"
	NSService           = "service"
	NSException         = "exception"
	NSStop              = "stop"
	NSStopNumbers       = "stop_numbers" // set
	NSTrip              = "trip"
	NSStopTimes         = "stop_times"
	NSLiveDelays        = "live_delays"
	NSLiveAdditions     = "live_additions"
	NSLiveCancellations = "live_cancellations" // set
	NSStatus            = "status"
)

// StatusInitializedKey is the key in NSStatus marking that a static load
// has completed.
const StatusInitializedKey = "initialized"

// StopTimeBucketKey builds the composite key a StopTimeBucket is stored
// under: one bucket per (stop_number, hour).
func StopTimeBucketKey(stopNumber string, hour int) string {
	return fmt.Sprintf("%s:%d", stopNumber, hour)
}

// ExceptionKey builds the composite key a calendar_dates exception is
// stored under.
func ExceptionKey(serviceID, date string) string {
	return fmt.Sprintf("%s:%s", serviceID, date)
}

// NamespaceConfig is a namespace's {cache, expiry} declaration. It only
// affects behavior when the namespace lives on an external backend: a
// cacheable namespace's reads are additionally held in an in-process hot
// cache for Expiry (or forever, if NoExpiry).
type NamespaceConfig struct {
	Cache    bool
	Expiry   time.Duration
	NoExpiry bool
}

// DefaultNamespaceConfig is the hot-cache policy applied when an external
// backend is in use, matching the original implementation's redis
// namespace_config (cache + 3600s expiry on exactly these four
// namespaces). Only hash reads are cached, so it takes effect for route,
// service and stop lookups; stop_numbers is a set, and set membership
// checks always go to the backend.
func DefaultNamespaceConfig() map[string]NamespaceConfig {
	hot := NamespaceConfig{Cache: true, Expiry: time.Hour}
	return map[string]NamespaceConfig{
		NSRoute:       hot,
		NSService:     hot,
		NSStop:        hot,
		NSStopNumbers: hot,
	}
}
