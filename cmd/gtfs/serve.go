package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/seanblanchfield/tfi-gtfs/metrics"
	"github.com/seanblanchfield/tfi-gtfs/parse"
	"github.com/seanblanchfield/tfi-gtfs/realtime"
	"github.com/seanblanchfield/tfi-gtfs/resolver"
	"github.com/seanblanchfield/tfi-gtfs/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load a feed, poll its live updates, and serve arrivals over HTTP",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	var s *store.Store
	if cfg.Cache.BackendURL != "" {
		client, err := store.DialRedis(cfg.Cache.BackendURL)
		if err != nil {
			return fmt.Errorf("connecting to cache backend: %w", err)
		}
		s = store.NewRedisStore(store.NewRedisBackend(client, cmd.Context()), store.DefaultNamespaceConfig())
	} else {
		s = store.NewMemoryStore()
	}

	filter := cfg.Feed.FilterStopSet()

	start := time.Now()
	meta, err := parse.LoadStatic(s, cfg.Feed.DataDir, filter, log)
	if err != nil {
		return fmt.Errorf("loading static feed: %w", err)
	}
	metrics.RecordStaticLoad(time.Since(start), meta.NumTrips)
	log.Info("static feed loaded", "trips", meta.NumTrips, "feed_timestamp", meta.Timestamp)

	ingestor := realtime.NewIngestor(cfg.Feed.LiveURL, cfg.Feed.APIKey, cfg.Feed.PollingPeriod, filter, log)
	ingestor.Start(s)
	defer ingestor.Stop()

	if cfg.Metrics.Enabled {
		go func() {
			log.Info("serving metrics", "addr", cfg.Metrics.Addr)
			mux := http.NewServeMux()
			mux.Handle(cfg.Metrics.Path, metrics.Handler())
			srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server exited", "error", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/arrivals", arrivalsHandler(s, cfg.Feed.MaxMinutes))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Info("serving arrivals", "addr", cfg.Server.Addr)
	return srv.ListenAndServe()
}

func arrivalsHandler(s *store.Store, defaultMaxMinutes int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stopNumber := r.URL.Query().Get("stop")
		if stopNumber == "" {
			http.Error(w, "missing required query parameter: stop", http.StatusBadRequest)
			return
		}

		valid, err := resolver.IsValidStopNumber(s, stopNumber)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !valid {
			http.Error(w, fmt.Sprintf("unknown stop_number: %q", stopNumber), http.StatusNotFound)
			return
		}

		maxMinutes := defaultMaxMinutes
		if raw := r.URL.Query().Get("max_minutes"); raw != "" {
			var parsed int
			if _, err := fmt.Sscanf(raw, "%d", &parsed); err == nil && parsed > 0 {
				maxMinutes = parsed
			}
		}

		start := time.Now()
		arrivals, err := resolver.GetScheduledArrivals(s, stopNumber, start, time.Duration(maxMinutes)*time.Minute)
		metrics.ObserveResolverQuery(time.Since(start))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(arrivals)
	}
}
