// Package model holds the external-facing entity types shared across the
// loader, live ingestor and resolver.
package model

import "time"

// Agency is a transit operator. Small in number (tens per feed).
type Agency struct {
	ID       string
	Name     string
	URL      string
	Timezone string
}

// Route is a named service, e.g. a bus line. Stored keyed by route_id, so
// the id itself is not repeated in the value.
type Route struct {
	AgencyID  string
	ShortName string
}

// Service is a weekly pattern of active days within a date window, shared
// by many trips. Stored keyed by service_id. Weekday[0] is Monday.
type Service struct {
	StartDate string // YYYYMMDD
	EndDate   string // YYYYMMDD
	Weekday   [7]bool
}

// Active reports whether the service runs on the given date, ignoring
// calendar_dates exceptions.
func (s *Service) Active(date string, weekday time.Weekday) bool {
	if date < s.StartDate || date > s.EndDate {
		return false
	}
	return s.Weekday[weekdayIndex(weekday)]
}

// weekdayIndex maps time.Weekday (Sunday=0) onto the GTFS calendar.txt
// column order (Monday=0 .. Sunday=6).
func weekdayIndex(w time.Weekday) int {
	if w == time.Sunday {
		return 6
	}
	return int(w) - 1
}

// ExceptionType is calendar_dates.txt's exception_type column.
type ExceptionType int8

const (
	ExceptionAdded   ExceptionType = 1
	ExceptionRemoved ExceptionType = 2
)

// Exception is a sparse override of a Service on a single calendar date.
type Exception struct {
	ServiceID     string
	Date          string // YYYYMMDD
	ExceptionType ExceptionType
}

// Stop maps a GTFS stop_id to the human-facing stop_number printed on
// signage. stop_number falls back to stop_id when stops.txt leaves the
// stop_code column blank.
type Stop struct {
	ID         string
	StopNumber string
}

// TripInfo is the joined view get_trip_info produces: trip, route, agency
// and service composed together for the resolver.
type TripInfo struct {
	Route     string
	Agency    string
	ServiceID string
	StartDate string
	EndDate   string
	Weekday   [7]bool
}

// Arrival is one entry in a get_scheduled_arrivals response.
type Arrival struct {
	Route            string
	Agency           string
	ScheduledArrival time.Time
	RealTimeArrival  *time.Time
}

// SortKey is the time used to order Arrivals: real-time if known, else
// scheduled.
func (a Arrival) SortKey() time.Time {
	if a.RealTimeArrival != nil {
		return *a.RealTimeArrival
	}
	return a.ScheduledArrival
}

// LiveDelay is one entry of a trip's live-update timeline, ordered by
// StopSequence ascending.
type LiveDelay struct {
	StopSequence    int8
	StopNumber      string
	DelaySeconds    *int32
	AbsoluteArrival *time.Time
	ObservedAt      uint64
}

// LiveAddition is an unscheduled trip reported only through the realtime
// feed, identified by its absolute arrival at a stop.
type LiveAddition struct {
	RouteID    string
	Arrival    time.Time
	ObservedAt uint64
}
