package parse

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/seanblanchfield/tfi-gtfs/pack"
	"github.com/seanblanchfield/tfi-gtfs/store"
)

// StopTimeCSV is stop_times.txt, columns trip_id, arrival_time,
// departure_time, stop_id, stop_sequence — mirroring the five columns the
// original implementation reads via row[0:5]. departure_time is parsed for
// validation but the resolver only ever needs arrival_time.
type StopTimeCSV struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  int64  `csv:"stop_sequence"`
}

// parseHMS splits "HH:MM:SS" into three bytes, allowing HH to exceed 23
// (GTFS's post-midnight convention) but otherwise validating each field's
// range, matching the PackedStopTime contract: H is signed but always
// non-negative; the widest legal value is 127 before it would overflow i8.
func parseHMS(s string) (h, m, sec int8, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("expected HH:MM:SS, got %q", s)
	}
	hms := [3]int{}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("non-integer component in %q: %w", s, err)
		}
		hms[i] = v
	}
	if hms[0] < 0 || hms[0] > 127 {
		return 0, 0, 0, fmt.Errorf("hour out of range in %q", s)
	}
	if hms[1] < 0 || hms[1] > 59 {
		return 0, 0, 0, fmt.Errorf("minute out of range in %q", s)
	}
	if hms[2] < 0 || hms[2] > 59 {
		return 0, 0, 0, fmt.Errorf("second out of range in %q", s)
	}
	return int8(hms[0]), int8(hms[1]), int8(hms[2]), nil
}

// ParseStopTimes loads stop_times.txt, writing one StopTimeBucket per
// (stop_number, hour) and returning stop_number -> set(trip_id), used by
// the caller to compute a trip whitelist when a stop filter is active.
//
// Malformed rows are logged and skipped rather than aborting the whole
// load, per this loader's StaticMalformed policy; an unresolvable stop_id
// is treated the same way, since a dangling reference in one row
// shouldn't sink an otherwise-good feed.
func ParseStopTimes(
	s *store.Store,
	data io.Reader,
	stopNumber map[string]string,
	filterStops map[string]bool,
	log *slog.Logger,
) (map[string]map[string]bool, error) {
	rows := []*StopTimeCSV{}
	if err := gocsv.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling stop_times csv: %w", err)
	}

	buckets := map[string][]byte{} // "stopNumber:hour" -> concatenated PackedStopTime
	stopTrips := map[string]map[string]bool{}
	seenSeq := map[string]map[int8]bool{}

	for i, st := range rows {
		if i > 0 && i%10000 == 0 {
			log.Info("loading stop_times.txt", "rows", i)
		}

		number, ok := stopNumber[st.StopID]
		if !ok {
			log.Warn("stop_times.txt: unknown stop_id, skipping row", "row", i+1, "stop_id", st.StopID)
			continue
		}

		if stopTrips[number] == nil {
			stopTrips[number] = map[string]bool{}
		}
		stopTrips[number][st.TripID] = true

		if filterStops != nil && !filterStops[number] {
			continue
		}

		h, m, sec, err := parseHMS(st.ArrivalTime)
		if err != nil {
			log.Warn("stop_times.txt: bad arrival_time, skipping row", "row", i+1, "error", err)
			continue
		}
		if _, _, _, err := parseHMS(st.DepartureTime); err != nil {
			log.Warn("stop_times.txt: bad departure_time, skipping row", "row", i+1, "error", err)
			continue
		}
		if st.StopSequence < 0 || st.StopSequence > 127 {
			log.Warn("stop_times.txt: stop_sequence out of i8 range, skipping row", "row", i+1, "stop_sequence", st.StopSequence)
			continue
		}
		seq := int8(st.StopSequence)

		if seenSeq[st.TripID] == nil {
			seenSeq[st.TripID] = map[int8]bool{}
		}
		if seenSeq[st.TripID][seq] {
			log.Warn("stop_times.txt: duplicate stop_sequence for trip, skipping row", "row", i+1, "trip_id", st.TripID, "stop_sequence", seq)
			continue
		}
		seenSeq[st.TripID][seq] = true

		packed, err := pack.PackStopTime(st.TripID, h, m, sec, seq)
		if err != nil {
			log.Warn("stop_times.txt: trip_id too long to pack, skipping row", "row", i+1, "trip_id", st.TripID)
			continue
		}

		hour := int(h) % 24
		key := store.StopTimeBucketKey(number, hour)
		buckets[key] = append(buckets[key], packed[:]...)
	}

	for key, blob := range buckets {
		if err := s.SetBytes(store.NSStopTimes, key, blob); err != nil {
			return nil, fmt.Errorf("writing stop_times bucket %q: %w", key, err)
		}
	}

	return stopTrips, nil
}
