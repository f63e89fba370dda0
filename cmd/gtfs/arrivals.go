package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seanblanchfield/tfi-gtfs/resolver"
	"github.com/seanblanchfield/tfi-gtfs/store"
)

var (
	arrivalsStops      []string
	arrivalsSnapshot   string
	arrivalsMaxMinutes int
)

var arrivalsCmd = &cobra.Command{
	Use:   "arrivals",
	Short: "Print scheduled arrivals for one or more stops from a loaded snapshot",
	RunE:  runArrivals,
}

func init() {
	arrivalsCmd.Flags().StringSliceVar(&arrivalsStops, "stop", nil, "stop_number to query (repeatable)")
	arrivalsCmd.Flags().StringVar(&arrivalsSnapshot, "snapshot", "snapshot.gob", "path to a store snapshot written by 'gtfs load'")
	arrivalsCmd.Flags().IntVar(&arrivalsMaxMinutes, "max-minutes", 60, "how far ahead to look for arrivals")
}

func runArrivals(cmd *cobra.Command, args []string) error {
	if len(arrivalsStops) == 0 {
		return fmt.Errorf("at least one --stop is required")
	}

	s := store.NewMemoryStore()
	found, err := s.LoadSnapshot(arrivalsSnapshot)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if !found {
		return fmt.Errorf("snapshot %q not found; run 'gtfs load' first", arrivalsSnapshot)
	}

	now := time.Now()
	maxWait := time.Duration(arrivalsMaxMinutes) * time.Minute

	for _, stopNumber := range arrivalsStops {
		valid, err := resolver.IsValidStopNumber(s, stopNumber)
		if err != nil {
			return fmt.Errorf("checking stop %q: %w", stopNumber, err)
		}
		if !valid {
			fmt.Printf("stop %s: unknown\n", stopNumber)
			continue
		}

		arrivals, err := resolver.GetScheduledArrivals(s, stopNumber, now, maxWait)
		if err != nil {
			return fmt.Errorf("resolving arrivals at %q: %w", stopNumber, err)
		}

		fmt.Printf("stop %s:\n", stopNumber)
		for _, a := range arrivals {
			eta := a.SortKey().Sub(now).Round(time.Second)
			realtime := ""
			if a.RealTimeArrival != nil {
				realtime = fmt.Sprintf(" (live %s)", a.RealTimeArrival.Format(time.Kitchen))
			}
			fmt.Printf("  %-8s %-20s %s in %s%s\n", a.Route, a.Agency, a.ScheduledArrival.Format(time.Kitchen), eta, realtime)
		}
	}

	return nil
}
