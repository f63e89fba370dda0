// Command gtfs loads a GTFS feed, serves scheduled+live arrivals over
// HTTP, or prints arrivals for a single stop from the command line.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/seanblanchfield/tfi-gtfs/config"
	"github.com/seanblanchfield/tfi-gtfs/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "gtfs",
	Short:        "tfi-gtfs transit arrival resolver",
	Long:         "Loads a GTFS static+realtime feed and resolves scheduled arrivals at a stop.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(arrivalsCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	var loader *config.Loader
	if configPath != "" {
		loader = config.NewLoader(configPath)
	} else {
		loader = config.NewLoader()
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, logging.New(cfg.Log), nil
}
