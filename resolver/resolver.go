// Package resolver implements the Arrival Resolver: the per-query join of
// static schedule, calendar exceptions and live delays that produces the
// sorted arrival list for a stop.
package resolver

import (
	"sort"
	"time"

	"github.com/seanblanchfield/tfi-gtfs/model"
	"github.com/seanblanchfield/tfi-gtfs/pack"
	"github.com/seanblanchfield/tfi-gtfs/store"
)

// IsValidStopNumber reports whether stopNumber is known to the loaded
// static data.
func IsValidStopNumber(s *store.Store, stopNumber string) (bool, error) {
	return s.Has(store.NSStopNumbers, stopNumber)
}

// GetTripInfo composes Trip, Route, Agency and Service into the joined
// view the resolver needs. Returns nil, nil when any link is missing —
// an unrecognised trip is not itself an error.
func GetTripInfo(s *store.Store, tripID string) (*model.TripInfo, error) {
	blob, found, err := s.GetBytes(store.NSTrip, tripID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var packed pack.PackedTrip
	copy(packed[:], blob)
	routeID, serviceID := pack.UnpackTrip(packed)

	var route model.Route
	found, err = s.Get(store.NSRoute, routeID, &route)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var agencyName string
	found, err = s.Get(store.NSAgency, route.AgencyID, &agencyName)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var service model.Service
	found, err = s.Get(store.NSService, serviceID, &service)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	return &model.TripInfo{
		Route:     route.ShortName,
		Agency:    agencyName,
		ServiceID: serviceID,
		StartDate: service.StartDate,
		EndDate:   service.EndDate,
		Weekday:   service.Weekday,
	}, nil
}

// getLiveDelay finds the delay to apply to stopSequence on tripID: an
// exact stop_sequence match if one exists, else the delay of the nearest
// earlier update, propagating the most recent upstream observation
// forward to stops that haven't themselves been reported on. Returns nil
// when the matching entry carries an absolute arrival rather than a
// delay, or when no update applies.
func getLiveDelay(s *store.Store, tripID string, stopSequence int8) (*int32, error) {
	var updates []model.LiveDelay
	found, err := s.Get(store.NSLiveDelays, tripID, &updates)
	if err != nil || !found {
		return nil, err
	}

	left, right := 0, len(updates)-1
	for left <= right {
		mid := (left + right) / 2
		switch {
		case updates[mid].StopSequence < stopSequence:
			left = mid + 1
		case updates[mid].StopSequence > stopSequence:
			right = mid - 1
		default:
			return updates[mid].DelaySeconds, nil
		}
	}
	if left == 0 {
		return nil, nil
	}
	return updates[left-1].DelaySeconds, nil
}

// weekdayIndex maps time.Weekday (Sunday=0) onto calendar.txt's column
// order (Monday=0 .. Sunday=6).
func weekdayIndex(w time.Weekday) int {
	if w == time.Sunday {
		return 6
	}
	return int(w) - 1
}

// dateKey formats a date the way Exception keys store it: YYYYMMDD.
func dateKey(t time.Time) string {
	return t.Format("20060102")
}

// GetScheduledArrivals resolves arrivals at stopNumber from the stop-time
// buckets tryHours selects, joining static schedule, calendar exceptions
// and live delays/additions/cancellations. A scheduled entry is kept when
// its scheduled or real-time arrival is after now; there is no cut-off at
// exactly now + maxWait, so every entry in the last bucket hour is kept.
// Live additions are appended without any time filter. Results are sorted
// ascending by real-time arrival where known, else scheduled arrival.
func GetScheduledArrivals(s *store.Store, stopNumber string, now time.Time, maxWait time.Duration) ([]model.Arrival, error) {
	var arrivals []model.Arrival

	tryHours := tryHours(now, maxWait)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	timeSinceMidnight := now.Sub(midnight)

	for _, hour := range tryHours {
		blob, found, err := s.GetBytes(store.NSStopTimes, store.StopTimeBucketKey(stopNumber, hour))
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}

		for off := 0; off+16 <= len(blob); off += 16 {
			var packed pack.PackedStopTime
			copy(packed[:], blob[off:off+16])
			tripID, h, m, sec, stopSequence := pack.UnpackStopTime(packed)

			arrivalOffset := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second

			// Day-rollover rule: a schedule time more than 12h behind
			// the current time-of-day is assumed to refer to tomorrow.
			if timeSinceMidnight-12*time.Hour > arrivalOffset {
				arrivalOffset += 24 * time.Hour
			}
			arrivalDatetime := midnight.Add(arrivalOffset)

			info, err := GetTripInfo(s, tripID)
			if err != nil {
				return nil, err
			}
			if info == nil {
				continue
			}

			arrivalDate := dateKey(arrivalDatetime)
			serviceIsScheduled := info.StartDate <= arrivalDate && arrivalDate <= info.EndDate &&
				info.Weekday[weekdayIndex(arrivalDatetime.Weekday())]

			var exc model.ExceptionType
			excFound, err := s.Get(store.NSException, store.ExceptionKey(info.ServiceID, arrivalDate), &exc)
			if err != nil {
				return nil, err
			}
			added := excFound && exc == model.ExceptionAdded
			removed := excFound && exc == model.ExceptionRemoved

			if !(added || (serviceIsScheduled && !removed)) {
				continue
			}

			cancelled, err := s.Has(store.NSLiveCancellations, tripID)
			if err != nil {
				return nil, err
			}
			if cancelled {
				continue
			}

			delay, err := getLiveDelay(s, tripID, stopSequence)
			if err != nil {
				return nil, err
			}

			arrival := model.Arrival{
				Route:            info.Route,
				Agency:           info.Agency,
				ScheduledArrival: arrivalDatetime,
			}
			if delay != nil {
				realTime := arrivalDatetime.Add(time.Duration(*delay) * time.Second)
				arrival.RealTimeArrival = &realTime
			}

			if arrival.ScheduledArrival.After(now) || (arrival.RealTimeArrival != nil && arrival.RealTimeArrival.After(now)) {
				arrivals = append(arrivals, arrival)
			}
		}
	}

	var additions []model.LiveAddition
	_, err := s.Get(store.NSLiveAdditions, stopNumber, &additions)
	if err != nil {
		return nil, err
	}
	for _, add := range additions {
		var route model.Route
		found, err := s.Get(store.NSRoute, add.RouteID, &route)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		var agencyName string
		found, err = s.Get(store.NSAgency, route.AgencyID, &agencyName)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		arrivals = append(arrivals, model.Arrival{
			Route:            route.ShortName,
			Agency:           agencyName,
			ScheduledArrival: add.Arrival,
			RealTimeArrival:  &add.Arrival,
		})
	}

	sort.SliceStable(arrivals, func(i, j int) bool {
		return arrivals[i].SortKey().Before(arrivals[j].SortKey())
	})

	return arrivals, nil
}

// tryHours returns the bucket hours worth checking: the hour before now
// (wrapping at midnight) through now.Hour()+ceil(maxWait), each mod 24.
func tryHours(now time.Time, maxWait time.Duration) []int {
	hourBefore := now.Hour() - 1
	if now.Hour() == 0 {
		hourBefore = 23
	}
	hours := []int{hourBefore}

	extra := int(maxWait / time.Hour)
	if maxWait%time.Hour != 0 {
		extra++
	}
	for h := now.Hour(); h <= now.Hour()+extra; h++ {
		hours = append(hours, h%24)
	}
	return hours
}
