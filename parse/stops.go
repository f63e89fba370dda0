package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/seanblanchfield/tfi-gtfs/store"
)

// StopCSV is stops.txt: stop_id and the human-facing stop_code. Some
// agencies leave stop_code blank, in which case stop_id itself is the
// number printed on the pole.
type StopCSV struct {
	ID   string `csv:"stop_id"`
	Code string `csv:"stop_code"`
}

// ParseStops loads stops.txt, writing Stop and StopNumberSet, and returns
// a stop_id -> stop_number map for ParseStopTimes.
func ParseStops(s *store.Store, data io.Reader) (map[string]string, error) {
	rows := []*StopCSV{}
	if err := gocsv.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling stops csv: %w", err)
	}

	stopNumber := map[string]string{}
	for _, st := range rows {
		if st.ID == "" {
			return nil, fmt.Errorf("empty stop_id")
		}
		if _, dup := stopNumber[st.ID]; dup {
			return nil, fmt.Errorf("repeated stop_id: %q", st.ID)
		}

		number := st.Code
		if number == "" {
			number = st.ID
		}
		stopNumber[st.ID] = number

		if err := s.Set(store.NSStop, st.ID, number); err != nil {
			return nil, fmt.Errorf("writing stop %q: %w", st.ID, err)
		}
		if err := s.Add(store.NSStopNumbers, number); err != nil {
			return nil, fmt.Errorf("recording stop_number %q: %w", number, err)
		}
	}

	return stopNumber, nil
}
