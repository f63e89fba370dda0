package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanblanchfield/tfi-gtfs/model"
	"github.com/seanblanchfield/tfi-gtfs/pack"
	"github.com/seanblanchfield/tfi-gtfs/store"
)

func setupFeed(t *testing.T, s *store.Store) {
	t.Helper()
	require.NoError(t, s.Set(store.NSAgency, "A1", "Dublin Bus"))
	require.NoError(t, s.Set(store.NSRoute, "R1", model.Route{AgencyID: "A1", ShortName: "15"}))
	require.NoError(t, s.Set(store.NSService, "WD", model.Service{
		StartDate: "20260101", EndDate: "20261231",
		Weekday: [7]bool{true, true, true, true, true, true, true},
	}))
	packedTrip, err := pack.PackTrip("R1", "WD")
	require.NoError(t, err)
	require.NoError(t, s.SetBytes(store.NSTrip, "T1", packedTrip[:]))
	require.NoError(t, s.Add(store.NSStopNumbers, "7612"))
}

func TestGetTripInfo(t *testing.T) {
	s := store.NewMemoryStore()
	setupFeed(t, s)

	info, err := GetTripInfo(s, "T1")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "15", info.Route)
	assert.Equal(t, "Dublin Bus", info.Agency)
	assert.Equal(t, "WD", info.ServiceID)

	info, err = GetTripInfo(s, "unknown")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetScheduledArrivalsBasic(t *testing.T) {
	s := store.NewMemoryStore()
	setupFeed(t, s)

	packed, err := pack.PackStopTime("T1", 8, 5, 0, 1)
	require.NoError(t, err)
	require.NoError(t, s.SetBytes(store.NSStopTimes, store.StopTimeBucketKey("7612", 8), packed[:]))

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) // 2026-03-02 is a Monday.
	arrivals, err := GetScheduledArrivals(s, "7612", now, time.Hour)
	require.NoError(t, err)
	require.Len(t, arrivals, 1)
	assert.Equal(t, "15", arrivals[0].Route)
	assert.Nil(t, arrivals[0].RealTimeArrival)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 5, 0, 0, time.UTC), arrivals[0].ScheduledArrival)
}

func TestGetScheduledArrivalsAppliesLiveDelay(t *testing.T) {
	s := store.NewMemoryStore()
	setupFeed(t, s)

	packed, err := pack.PackStopTime("T1", 8, 5, 0, 1)
	require.NoError(t, err)
	require.NoError(t, s.SetBytes(store.NSStopTimes, store.StopTimeBucketKey("7612", 8), packed[:]))

	delaySeconds := int32(120)
	require.NoError(t, s.Set(store.NSLiveDelays, "T1", []model.LiveDelay{
		{StopSequence: 1, StopNumber: "7612", DelaySeconds: &delaySeconds},
	}))

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	arrivals, err := GetScheduledArrivals(s, "7612", now, time.Hour)
	require.NoError(t, err)
	require.Len(t, arrivals, 1)
	require.NotNil(t, arrivals[0].RealTimeArrival)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 7, 0, 0, time.UTC), *arrivals[0].RealTimeArrival)
}

func TestGetScheduledArrivalsSkipsCancelled(t *testing.T) {
	s := store.NewMemoryStore()
	setupFeed(t, s)

	packed, err := pack.PackStopTime("T1", 8, 5, 0, 1)
	require.NoError(t, err)
	require.NoError(t, s.SetBytes(store.NSStopTimes, store.StopTimeBucketKey("7612", 8), packed[:]))
	require.NoError(t, s.Add(store.NSLiveCancellations, "T1"))

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	arrivals, err := GetScheduledArrivals(s, "7612", now, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, arrivals)
}

func TestGetScheduledArrivalsDayRollover(t *testing.T) {
	s := store.NewMemoryStore()
	setupFeed(t, s)

	// A trip scheduled at 00:10, queried late the previous evening:
	// without rollover this reads as 23h40m in the past rather than 20m
	// in the future.
	packed, err := pack.PackStopTime("T1", 0, 10, 0, 1)
	require.NoError(t, err)
	require.NoError(t, s.SetBytes(store.NSStopTimes, store.StopTimeBucketKey("7612", 0), packed[:]))

	now := time.Date(2026, 3, 2, 23, 50, 0, 0, time.UTC) // Monday evening.
	arrivals, err := GetScheduledArrivals(s, "7612", now, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, arrivals, 1)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 10, 0, 0, time.UTC), arrivals[0].ScheduledArrival)
}

func TestGetScheduledArrivalsExceptionRemoved(t *testing.T) {
	s := store.NewMemoryStore()
	setupFeed(t, s)

	packed, err := pack.PackStopTime("T1", 8, 5, 0, 1)
	require.NoError(t, err)
	require.NoError(t, s.SetBytes(store.NSStopTimes, store.StopTimeBucketKey("7612", 8), packed[:]))
	require.NoError(t, s.Set(store.NSException, store.ExceptionKey("WD", "20260302"), model.ExceptionRemoved))

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	arrivals, err := GetScheduledArrivals(s, "7612", now, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, arrivals)
}

func TestGetScheduledArrivalsLiveAddition(t *testing.T) {
	s := store.NewMemoryStore()
	setupFeed(t, s)

	arrivalTime := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	require.NoError(t, s.Set(store.NSLiveAdditions, "7612", []model.LiveAddition{
		{RouteID: "R1", Arrival: arrivalTime, ObservedAt: 1},
	}))

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	arrivals, err := GetScheduledArrivals(s, "7612", now, time.Hour)
	require.NoError(t, err)
	require.Len(t, arrivals, 1)
	assert.Equal(t, "15", arrivals[0].Route)
	require.NotNil(t, arrivals[0].RealTimeArrival)
	assert.Equal(t, arrivalTime, *arrivals[0].RealTimeArrival)
}

func TestIsValidStopNumber(t *testing.T) {
	s := store.NewMemoryStore()
	setupFeed(t, s)

	ok, err := IsValidStopNumber(s, "7612")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsValidStopNumber(s, "9999")
	require.NoError(t, err)
	assert.False(t, ok)
}
