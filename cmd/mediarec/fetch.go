package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/halcyonlabs/mediarec/internal/config"
	"github.com/halcyonlabs/mediarec/internal/ingest/fetch"
	"github.com/halcyonlabs/mediarec/internal/logging"
)

var (
	fetchManamiOut    string
	fetchMergeOut     string
	fetchMergeWorkers int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Acquire raw catalog data from external sources",
}

var fetchManamiCmd = &cobra.Command{
	Use:   "manami",
	Short: "Download the anime offline database from its latest release",
	RunE:  runFetchManami,
}

var fetchIDsCmd = &cobra.Command{
	Use:   "ids",
	Short: "Crawl all series IDs from the series search API",
	RunE:  runFetchIDs,
}

var fetchSeriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Download every crawled series detail record",
	RunE:  runFetchSeries,
}

var fetchMergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge per-series files into one JSON-lines log",
	RunE:  runFetchMerge,
}

func init() {
	fetchManamiCmd.Flags().StringVar(&fetchManamiOut, "out", "anime-offline-database.json", "destination file")
	fetchMergeCmd.Flags().StringVar(&fetchMergeOut, "out", "", "output log (default <data_dir>/mangaupdates/merged_series.jsonl)")
	fetchMergeCmd.Flags().IntVar(&fetchMergeWorkers, "workers", 4, "parallel file readers")

	fetchCmd.AddCommand(fetchManamiCmd)
	fetchCmd.AddCommand(fetchIDsCmd)
	fetchCmd.AddCommand(fetchSeriesCmd)
	fetchCmd.AddCommand(fetchMergeCmd)
}

// Acquisition paths under the configured data directory.
func idsFilePath(cfg *config.Config) string {
	return filepath.Join(cfg.Fetch.DataDir, "mangaupdates", "ids", "series_ids.jsonl")
}

func seriesStoreRoot(cfg *config.Config) string {
	return filepath.Join(cfg.Fetch.DataDir, "mangaupdates", "series")
}

func newFetchClient(cfg *config.Config, logger *logging.Logger) *fetch.Client {
	return fetch.NewClient(fetch.Config{
		APIToken:    cfg.Fetch.APIToken,
		Delay:       cfg.Fetch.Delay,
		MaxRetries:  cfg.Fetch.MaxRetries,
		MaxInFlight: cfg.Fetch.MaxInFlight,
	}, logger)
}

func runFetchManami(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return fetch.DownloadManamiDatabase(cmd.Context(), cfg.Fetch.APIToken, fetchManamiOut, logger)
}

func runFetchIDs(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	found, err := newFetchClient(cfg, logger).CrawlSeriesIDs(cmd.Context(), fetch.CrawlConfig{}, idsFilePath(cfg))
	if err != nil {
		return fmt.Errorf("crawling ids (%d new before failure): %w", found, err)
	}
	return nil
}

func runFetchSeries(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	counts, err := newFetchClient(cfg, logger).FetchSeries(cmd.Context(), idsFilePath(cfg), seriesStoreRoot(cfg))
	if err != nil {
		return err
	}
	if counts.Failed > 0 {
		return fmt.Errorf("%d of %d series failed to download; re-run to retry", counts.Failed, counts.Total)
	}
	return nil
}

func runFetchMerge(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	out := fetchMergeOut
	if out == "" {
		out = filepath.Join(cfg.Fetch.DataDir, "mangaupdates", "merged_series.jsonl")
	}

	_, err = fetch.MergeSeries(cmd.Context(), seriesStoreRoot(cfg), out, fetchMergeWorkers, logger)
	return err
}
