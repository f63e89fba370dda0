package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/seanblanchfield/tfi-gtfs/model"
	"github.com/seanblanchfield/tfi-gtfs/store"
)

// RouteCSV is the subset of routes.txt columns 0-2 the resolver needs:
// route_id, agency_id, route_short_name.
type RouteCSV struct {
	ID        string `csv:"route_id"`
	AgencyID  string `csv:"agency_id"`
	ShortName string `csv:"route_short_name"`
}

// ParseRoutes loads routes.txt, requiring every agency_id to resolve
// against the agency set ParseAgency produced. Returns the set of known
// route_ids for use by ParseTrips's referential check.
func ParseRoutes(s *store.Store, data io.Reader, agency map[string]bool) (map[string]bool, error) {
	rows := []*RouteCSV{}
	if err := gocsv.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling routes csv: %w", err)
	}

	routes := map[string]bool{}
	for _, r := range rows {
		if r.ID == "" {
			return nil, fmt.Errorf("route has no route_id")
		}
		if routes[r.ID] {
			return nil, fmt.Errorf("repeated route_id: %q", r.ID)
		}
		routes[r.ID] = true

		if !agency[r.AgencyID] {
			return nil, fmt.Errorf("route_id %q references unknown agency_id %q", r.ID, r.AgencyID)
		}

		err := s.Set(store.NSRoute, r.ID, model.Route{
			AgencyID:  r.AgencyID,
			ShortName: r.ShortName,
		})
		if err != nil {
			return nil, fmt.Errorf("writing route %q: %w", r.ID, err)
		}
	}

	return routes, nil
}
