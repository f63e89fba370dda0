package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/seanblanchfield/tfi-gtfs/pack"
	"github.com/seanblanchfield/tfi-gtfs/store"
)

// TripCSV is trips.txt, columns 0-2: route_id, service_id, trip_id.
type TripCSV struct {
	RouteID   string `csv:"route_id"`
	ServiceID string `csv:"service_id"`
	TripID    string `csv:"trip_id"`
}

// ParseTrips loads trips.txt, writing a PackedTrip per trip_id. When
// tripWhitelist is non-nil (a stop filter is active), trips not reachable
// from the filtered stops are skipped entirely — this is the load-order
// dependency that requires stop_times.txt to have been read first.
func ParseTrips(
	s *store.Store,
	data io.Reader,
	routes map[string]bool,
	services map[string]bool,
	tripWhitelist map[string]bool,
) (int, error) {
	rows := []*TripCSV{}
	if err := gocsv.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("unmarshaling trips csv: %w", err)
	}

	seen := map[string]bool{}
	written := 0
	for _, t := range rows {
		if t.TripID == "" {
			return 0, fmt.Errorf("empty trip_id")
		}
		if seen[t.TripID] {
			return 0, fmt.Errorf("repeated trip_id: %q", t.TripID)
		}
		seen[t.TripID] = true

		if tripWhitelist != nil && !tripWhitelist[t.TripID] {
			continue
		}

		if !routes[t.RouteID] {
			return 0, fmt.Errorf("trip_id %q references unknown route_id %q", t.TripID, t.RouteID)
		}
		if !services[t.ServiceID] {
			return 0, fmt.Errorf("trip_id %q references unknown service_id %q", t.TripID, t.ServiceID)
		}

		packed, err := pack.PackTrip(t.RouteID, t.ServiceID)
		if err != nil {
			return 0, fmt.Errorf("packing trip_id %q: %w", t.TripID, err)
		}
		if err := s.SetBytes(store.NSTrip, t.TripID, packed[:]); err != nil {
			return 0, fmt.Errorf("writing trip %q: %w", t.TripID, err)
		}
		written++
	}

	return written, nil
}
