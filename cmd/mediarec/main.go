// Package main implements the mediarec CLI: the recommendation API server
// plus the ingestion, acquisition and indexing commands that feed it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/halcyonlabs/mediarec/internal/config"
	"github.com/halcyonlabs/mediarec/internal/logging"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mediarec",
	Short: "Anime/manga catalog ingestion and semantic recommendation",
	Long: `mediarec maintains a media catalog ingested from external sources and
serves semantic recommendations over it.

Typical workflow:

  # Acquire raw data
  mediarec fetch manami --out anime-offline-database.json
  mediarec fetch ids
  mediarec fetch series
  mediarec fetch merge

  # Load it into the relational store
  mediarec ingest manami anime-offline-database.json
  mediarec ingest mangaupdates merged_series.jsonl

  # Build the vector index
  mediarec index media
  mediarec index descriptors

  # Serve recommendations
  mediarec serve`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(indexCmd)
}

// setup loads configuration and builds the logger shared by all commands.
func setup() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	if err := logCfg.Level.Set(cfg.Logging.Level); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	logCfg.Format = cfg.Logging.Format

	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, logger, nil
}
