package parse

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/seanblanchfield/tfi-gtfs/model"
	"github.com/seanblanchfield/tfi-gtfs/store"
)

// CalendarDateCSV is calendar_dates.txt: a sparse (service_id, date)
// override of Service, exception_type in {1 (added), 2 (removed)}.
type CalendarDateCSV struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType int8   `csv:"exception_type"`
}

// ParseCalendarDates loads calendar_dates.txt, returning the set of
// service_ids it references (a calendar-dates-only feed has no
// calendar.txt at all, so this set can be the sole source of known
// services).
func ParseCalendarDates(s *store.Store, data io.Reader) (map[string]bool, error) {
	rows := []*CalendarDateCSV{}
	if err := gocsv.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling calendar_dates csv: %w", err)
	}

	services := map[string]bool{}
	seen := map[string]bool{}
	for _, cd := range rows {
		if cd.ExceptionType != 1 && cd.ExceptionType != 2 {
			return nil, fmt.Errorf("service_id %q: illegal exception_type %d", cd.ServiceID, cd.ExceptionType)
		}
		if _, err := time.ParseInLocation("20060102", cd.Date, time.UTC); err != nil {
			return nil, fmt.Errorf("service_id %q: parsing date %q: %w", cd.ServiceID, cd.Date, err)
		}

		key := store.ExceptionKey(cd.ServiceID, cd.Date)
		if seen[key] {
			return nil, fmt.Errorf("duplicate service_id/date: %q/%q", cd.ServiceID, cd.Date)
		}
		seen[key] = true
		services[cd.ServiceID] = true

		err := s.Set(store.NSException, key, model.ExceptionType(cd.ExceptionType))
		if err != nil {
			return nil, fmt.Errorf("writing exception %q: %w", key, err)
		}
	}

	return services, nil
}
