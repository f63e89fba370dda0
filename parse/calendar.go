package parse

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/seanblanchfield/tfi-gtfs/model"
	"github.com/seanblanchfield/tfi-gtfs/store"
)

// CalendarCSV is calendar.txt: service_id, Mon..Sun boolean flags,
// start_date/end_date (YYYYMMDD).
type CalendarCSV struct {
	ServiceID string `csv:"service_id"`
	Monday    int8   `csv:"monday"`
	Tuesday   int8   `csv:"tuesday"`
	Wednesday int8   `csv:"wednesday"`
	Thursday  int8   `csv:"thursday"`
	Friday    int8   `csv:"friday"`
	Saturday  int8   `csv:"saturday"`
	Sunday    int8   `csv:"sunday"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
}

// ParseCalendar loads calendar.txt, returning the set of known service_ids
// for use by ParseTrips's referential check.
func ParseCalendar(s *store.Store, data io.Reader) (map[string]bool, error) {
	rows := []*CalendarCSV{}
	if err := gocsv.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling calendar csv: %w", err)
	}

	services := map[string]bool{}
	for _, c := range rows {
		if c.ServiceID == "" {
			return nil, fmt.Errorf("empty service_id")
		}
		if services[c.ServiceID] {
			return nil, fmt.Errorf("repeated service_id: %q", c.ServiceID)
		}
		services[c.ServiceID] = true

		if _, err := time.ParseInLocation("20060102", c.StartDate, time.UTC); err != nil {
			return nil, fmt.Errorf("service_id %q: parsing start_date: %w", c.ServiceID, err)
		}
		if _, err := time.ParseInLocation("20060102", c.EndDate, time.UTC); err != nil {
			return nil, fmt.Errorf("service_id %q: parsing end_date: %w", c.ServiceID, err)
		}

		weekday, err := parseWeekdayFlags(c)
		if err != nil {
			return nil, fmt.Errorf("service_id %q: %w", c.ServiceID, err)
		}

		err = s.Set(store.NSService, c.ServiceID, model.Service{
			StartDate: c.StartDate,
			EndDate:   c.EndDate,
			Weekday:   weekday,
		})
		if err != nil {
			return nil, fmt.Errorf("writing service %q: %w", c.ServiceID, err)
		}
	}

	return services, nil
}

func parseWeekdayFlags(c *CalendarCSV) ([7]bool, error) {
	var weekday [7]bool
	flags := []struct {
		name string
		v    int8
	}{
		{"monday", c.Monday}, {"tuesday", c.Tuesday}, {"wednesday", c.Wednesday},
		{"thursday", c.Thursday}, {"friday", c.Friday}, {"saturday", c.Saturday}, {"sunday", c.Sunday},
	}
	for i, f := range flags {
		if f.v != 0 && f.v != 1 {
			return weekday, fmt.Errorf("invalid %s value %d", f.name, f.v)
		}
		weekday[i] = f.v == 1
	}
	return weekday, nil
}
