// Package parse implements the Static Loader: a one-shot CSV ingest that
// populates a store.Store from a directory of GTFS text files, optionally
// filtered to a stop whitelist.
package parse

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"

	"github.com/seanblanchfield/tfi-gtfs/store"
)

func init() {
	// LazyCSVReader survives sloppy quoting; the BOM reader strips a
	// leading UTF-8 BOM, which European and Irish agencies routinely emit.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})
}

// Metadata is the handful of facts the loader learns about a feed while
// reading it.
type Metadata struct {
	Timestamp time.Time
	NumTrips  int
}

// LoadStatic reads agency.txt, routes.txt, calendar.txt,
// calendar_dates.txt, stops.txt, trips.txt and stop_times.txt from dir,
// and the sibling timestamp.txt freshness marker, writing entities into s.
// filterStops, if non-nil, retains only StopTimeBuckets and Trips
// reachable from that whitelist. Ordering: agencies, routes, calendar,
// exceptions, stops, stop_times, then trips — load order only matters
// when filterStops is set.
func LoadStatic(s *store.Store, dir string, filterStops map[string]bool, log *slog.Logger) (*Metadata, error) {
	if log == nil {
		log = slog.Default()
	}

	ts, err := readTimestamp(dir)
	if err != nil {
		return nil, fmt.Errorf("reading timestamp.txt: %w", err)
	}

	agency, err := parseFile(dir, "agency.txt", func(f *os.File) (map[string]bool, error) {
		return ParseAgency(s, f)
	})
	if err != nil {
		return nil, fmt.Errorf("parsing agency.txt: %w", err)
	}

	routes, err := parseFile(dir, "routes.txt", func(f *os.File) (map[string]bool, error) {
		return ParseRoutes(s, f, agency)
	})
	if err != nil {
		return nil, fmt.Errorf("parsing routes.txt: %w", err)
	}

	services, err := loadCalendarAndExceptions(s, dir)
	if err != nil {
		return nil, err
	}

	stopNumber, err := parseFile(dir, "stops.txt", func(f *os.File) (map[string]string, error) {
		return ParseStops(s, f)
	})
	if err != nil {
		return nil, fmt.Errorf("parsing stops.txt: %w", err)
	}

	var stopTrips map[string]map[string]bool
	stopTrips, err = parseFile(dir, "stop_times.txt", func(f *os.File) (map[string]map[string]bool, error) {
		return ParseStopTimes(s, f, stopNumber, filterStops, log)
	})
	if err != nil {
		return nil, fmt.Errorf("parsing stop_times.txt: %w", err)
	}

	var tripWhitelist map[string]bool
	if filterStops != nil {
		tripWhitelist = map[string]bool{}
		for stopNum := range filterStops {
			for tripID := range stopTrips[stopNum] {
				tripWhitelist[tripID] = true
			}
		}
	}

	numTrips, err := parseFile(dir, "trips.txt", func(f *os.File) (int, error) {
		return ParseTrips(s, f, routes, services, tripWhitelist)
	})
	if err != nil {
		return nil, fmt.Errorf("parsing trips.txt: %w", err)
	}

	if err := s.Set(store.NSStatus, store.StatusInitializedKey, true); err != nil {
		return nil, fmt.Errorf("marking initialized: %w", err)
	}

	return &Metadata{Timestamp: ts, NumTrips: numTrips}, nil
}

// loadCalendarAndExceptions reads calendar.txt and/or calendar_dates.txt —
// at least one must be present — and returns the union of service_ids
// either names.
func loadCalendarAndExceptions(s *store.Store, dir string) (map[string]bool, error) {
	calendarPath := filepath.Join(dir, "calendar.txt")
	datesPath := filepath.Join(dir, "calendar_dates.txt")

	_, calendarErr := os.Stat(calendarPath)
	_, datesErr := os.Stat(datesPath)
	if os.IsNotExist(calendarErr) && os.IsNotExist(datesErr) {
		return nil, fmt.Errorf("missing both calendar.txt and calendar_dates.txt")
	}

	services := map[string]bool{}

	if calendarErr == nil {
		fromCalendar, err := parseFile(dir, "calendar.txt", func(f *os.File) (map[string]bool, error) {
			return ParseCalendar(s, f)
		})
		if err != nil {
			return nil, fmt.Errorf("parsing calendar.txt: %w", err)
		}
		for id := range fromCalendar {
			services[id] = true
		}
	}

	if datesErr == nil {
		fromDates, err := parseFile(dir, "calendar_dates.txt", func(f *os.File) (map[string]bool, error) {
			return ParseCalendarDates(s, f)
		})
		if err != nil {
			return nil, fmt.Errorf("parsing calendar_dates.txt: %w", err)
		}
		for id := range fromDates {
			services[id] = true
		}
	}

	return services, nil
}

func readTimestamp(dir string) (time.Time, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "timestamp.txt"))
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339, trimTrailingNewline(string(raw)))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing ISO-8601 timestamp: %w", err)
	}
	return ts, nil
}

func trimTrailingNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func parseFile[T any](dir, name string, fn func(f *os.File) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return fn(f)
}
