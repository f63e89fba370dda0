package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/seanblanchfield/tfi-gtfs/store"
)

// AgencyCSV is the subset of agency.txt this loader reads: the store only
// ever needs an agency's display name, keyed by agency_id.
type AgencyCSV struct {
	ID   string `csv:"agency_id"`
	Name string `csv:"agency_name"`
}

// ParseAgency loads agency.txt, returning the set of known agency_ids for
// use by ParseRoutes's referential check.
func ParseAgency(s *store.Store, data io.Reader) (map[string]bool, error) {
	rows := []*AgencyCSV{}
	if err := gocsv.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling agency csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no agency record found")
	}

	agency := map[string]bool{}
	for _, a := range rows {
		if agency[a.ID] {
			return nil, fmt.Errorf("duplicated agency_id: %q", a.ID)
		}
		agency[a.ID] = true

		if a.Name == "" {
			return nil, fmt.Errorf("agency_id %q has no agency_name", a.ID)
		}

		if err := s.Set(store.NSAgency, a.ID, a.Name); err != nil {
			return nil, fmt.Errorf("writing agency %q: %w", a.ID, err)
		}
	}

	return agency, nil
}
