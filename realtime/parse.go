// Package realtime implements the Live Ingestor: periodic fetch and parse
// of a GTFS-realtime FeedMessage, writing delays, additions and
// cancellations into the store.
package realtime

import (
	"fmt"
	"log/slog"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/seanblanchfield/tfi-gtfs/model"
	"github.com/seanblanchfield/tfi-gtfs/resolver"
	"github.com/seanblanchfield/tfi-gtfs/store"
)

// https://developers.google.com/transit/gtfs-realtime/reference#enum-schedulerelationship-2
const (
	tripScheduled = 0
	tripAdded     = 1
	tripCancelled = 3
)

// https://developers.google.com/transit/gtfs-realtime/reference#enum-schedulerelationship
const stopScheduled = 0

// maxNegativeDelay drops delays more negative than one week; observed
// upstream garbage is roughly equal in magnitude to the feed timestamp but
// negative.
const maxNegativeDelay = -604800

// Counts summarizes one ingest pass for logging.
type Counts struct {
	Updates      int
	Unrecognised int
	Added        int
	Cancelled    int
}

// ParseAndApply unmarshals buf as a GTFS-realtime FeedMessage and applies
// its trip updates to s. filterStops, if non-nil, is the active stop
// whitelist: stop_ids outside it are silently skipped rather than warned
// about, since their absence is expected, not anomalous.
func ParseAndApply(s *store.Store, buf []byte, filterStops map[string]bool, log *slog.Logger) (Counts, error) {
	if log == nil {
		log = slog.Default()
	}

	feed := &gtfsproto.FeedMessage{}
	if err := proto.Unmarshal(buf, feed); err != nil {
		return Counts{}, fmt.Errorf("unmarshaling protobuf: %w", err)
	}

	timestamp := feed.GetHeader().GetTimestamp()
	var c Counts

	for _, entity := range feed.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}
		tripID := tu.GetTrip().GetTripId()
		scheduleRelationship := int(tu.GetTrip().GetScheduleRelationship())

		var delays []model.LiveDelay
		for _, stu := range tu.GetStopTimeUpdate() {
			if int(stu.GetScheduleRelationship()) != stopScheduled {
				continue
			}

			var stopNumber string
			found, err := s.Get(store.NSStop, stu.GetStopId(), &stopNumber)
			if err != nil {
				return c, fmt.Errorf("looking up stop_id %q: %w", stu.GetStopId(), err)
			}
			if !found {
				if filterStops == nil {
					log.Warn("unrecognised stop_id in live data feed", "stop_id", stu.GetStopId())
				}
				continue
			}

			if filterStops != nil && !filterStops[stopNumber] {
				continue
			}

			switch scheduleRelationship {
			case tripAdded:
				if stu.GetArrival().GetTime() == 0 {
					continue
				}
				c.Added++
				addition := model.LiveAddition{
					RouteID:    tu.GetTrip().GetRouteId(),
					Arrival:    time.Unix(stu.GetArrival().GetTime(), 0).UTC(),
					ObservedAt: timestamp,
				}
				if err := appendAddition(s, stopNumber, addition); err != nil {
					return c, fmt.Errorf("appending live addition at stop %q: %w", stopNumber, err)
				}

			case tripCancelled:
				c.Cancelled++
				if err := s.Add(store.NSLiveCancellations, tripID); err != nil {
					return c, fmt.Errorf("recording cancellation for trip %q: %w", tripID, err)
				}

			case tripScheduled:
				info, err := resolver.GetTripInfo(s, tripID)
				if err != nil {
					return c, fmt.Errorf("looking up trip %q: %w", tripID, err)
				}
				if info == nil {
					c.Unrecognised++
					continue
				}

				d := model.LiveDelay{
					StopSequence: int8(stu.GetStopSequence()),
					StopNumber:   stopNumber,
					ObservedAt:   timestamp,
				}
				if t := stu.GetArrival().GetTime(); t != 0 {
					at := time.Unix(t, 0).UTC()
					d.AbsoluteArrival = &at
				} else {
					delay := stu.GetArrival().GetDelay()
					if delay < maxNegativeDelay {
						continue
					}
					d.DelaySeconds = &delay
				}
				c.Updates++
				delays = append(delays, d)
			}
		}

		if len(delays) > 0 {
			if err := s.Set(store.NSLiveDelays, tripID, delays); err != nil {
				return c, fmt.Errorf("writing live delays for trip %q: %w", tripID, err)
			}
		}
	}

	log.Info("parsed live feed",
		"updates", c.Updates, "unrecognised", c.Unrecognised,
		"added", c.Added, "cancelled", c.Cancelled)
	return c, nil
}

func appendAddition(s *store.Store, stopNumber string, addition model.LiveAddition) error {
	var existing []model.LiveAddition
	_, err := s.Get(store.NSLiveAdditions, stopNumber, &existing)
	if err != nil {
		return err
	}
	existing = append(existing, addition)
	return s.Set(store.NSLiveAdditions, stopNumber, existing)
}
