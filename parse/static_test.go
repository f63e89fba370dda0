package parse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanblanchfield/tfi-gtfs/store"
)

func writeFeedFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func minimalFeed() map[string]string {
	return map[string]string{
		"timestamp.txt": "2026-07-30T12:00:00Z\n",
		"agency.txt": `agency_id,agency_name
1,Dublin Bus`,
		"routes.txt": `route_id,agency_id,route_short_name
R1,1,15`,
		"calendar.txt": `service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
WD,1,1,1,1,1,0,0,20260101,20261231`,
		"calendar_dates.txt": `service_id,date,exception_type
WD,20260101,2`,
		"stops.txt": `stop_id,stop_code
S1,7612
S2,7613`,
		"stop_times.txt": `trip_id,arrival_time,departure_time,stop_id,stop_sequence
T1,08:00:00,08:00:30,S1,1
T1,08:15:00,08:15:30,S2,2`,
		"trips.txt": `route_id,service_id,trip_id
R1,WD,T1`,
	}
}

func TestLoadStatic(t *testing.T) {
	dir := t.TempDir()
	writeFeedFiles(t, dir, minimalFeed())

	s := store.NewMemoryStore()
	meta, err := LoadStatic(s, dir, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.NumTrips)
	assert.Equal(t, 2026, meta.Timestamp.Year())

	var initialized bool
	found, err := s.Get(store.NSStatus, store.StatusInitializedKey, &initialized)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, initialized)
}

func TestLoadStaticMissingTimestamp(t *testing.T) {
	dir := t.TempDir()
	files := minimalFeed()
	delete(files, "timestamp.txt")
	writeFeedFiles(t, dir, files)

	s := store.NewMemoryStore()
	_, err := LoadStatic(s, dir, nil, nil)
	assert.Error(t, err)
}

func TestLoadStaticMissingCalendarFiles(t *testing.T) {
	dir := t.TempDir()
	files := minimalFeed()
	delete(files, "calendar.txt")
	delete(files, "calendar_dates.txt")
	writeFeedFiles(t, dir, files)

	s := store.NewMemoryStore()
	_, err := LoadStatic(s, dir, nil, nil)
	assert.Error(t, err)
}

func TestLoadStaticWithStopFilter(t *testing.T) {
	dir := t.TempDir()
	writeFeedFiles(t, dir, minimalFeed())

	s := store.NewMemoryStore()
	filter := map[string]bool{"7612": true}
	meta, err := LoadStatic(s, dir, filter, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.NumTrips) // T1 reaches stop 7612, so it's whitelisted.

	_, found, err := s.GetBytes(store.NSTrip, "T1")
	require.NoError(t, err)
	assert.True(t, found)
}
