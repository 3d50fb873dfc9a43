package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halcyonlabs/mediarec/internal/ingest/convert"
	"github.com/halcyonlabs/mediarec/internal/ingest/load"
	"github.com/halcyonlabs/mediarec/internal/logging"
	"github.com/halcyonlabs/mediarec/internal/media"
	"github.com/halcyonlabs/mediarec/internal/store"
)

// ingestBatchSize is how many normalized entries go into one load
// transaction.
const ingestBatchSize = 1000

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load external catalog data into the relational store",
}

var ingestManamiCmd = &cobra.Command{
	Use:   "manami <database.json>",
	Short: "Ingest a Manami anime offline database file",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestManami,
}

var ingestMangaUpdatesCmd = &cobra.Command{
	Use:   "mangaupdates <merged_series.jsonl>",
	Short: "Ingest a merged MangaUpdates series log",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestMangaUpdates,
}

func init() {
	ingestCmd.AddCommand(ingestManamiCmd)
	ingestCmd.AddCommand(ingestMangaUpdatesCmd)
}

func runIngestManami(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	ctx := cmd.Context()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	var db convert.ManamiDatabase
	if err := json.Unmarshal(data, &db); err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	st, err := store.Open(cfg.Database.DSN(), logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	loader := load.NewLoader(st, logger)
	batch := make([]media.Normalized, 0, ingestBatchSize)
	total := 0

	for i := range db.Data {
		entry, notes := convert.NormalizeManami(db.Data[i])
		logDegradations(ctx, logger, entry.Title, notes)

		batch = append(batch, entry)
		if len(batch) == ingestBatchSize {
			if err := loader.LoadBatch(ctx, batch); err != nil {
				return fmt.Errorf("loading batch ending at entry %d: %w", i+1, err)
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := loader.LoadBatch(ctx, batch); err != nil {
			return fmt.Errorf("loading final batch: %w", err)
		}
		total += len(batch)
	}

	logger.Info(ctx, "manami ingest complete", zap.Int("entries", total))
	return nil
}

func runIngestMangaUpdates(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	ctx := cmd.Context()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer f.Close()

	st, err := store.Open(cfg.Database.DSN(), logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	loader := load.NewLoader(st, logger)
	batch := make([]media.Normalized, 0, ingestBatchSize)
	total, lineNo := 0, 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var series convert.MangaUpdatesSeries
		if err := json.Unmarshal(scanner.Bytes(), &series); err != nil {
			logger.Warn(ctx, "skipping unparseable series line",
				zap.Int("line", lineNo), zap.Error(err))
			continue
		}

		entry, notes := convert.NormalizeMangaUpdates(series)
		logDegradations(ctx, logger, entry.Title, notes)

		batch = append(batch, entry)
		if len(batch) == ingestBatchSize {
			if err := loader.LoadBatch(ctx, batch); err != nil {
				return fmt.Errorf("loading batch ending at line %d: %w", lineNo, err)
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	if len(batch) > 0 {
		if err := loader.LoadBatch(ctx, batch); err != nil {
			return fmt.Errorf("loading final batch: %w", err)
		}
		total += len(batch)
	}

	logger.Info(ctx, "mangaupdates ingest complete", zap.Int("entries", total))
	return nil
}

// logDegradations surfaces per-field conversion fallbacks without failing
// the entry.
func logDegradations(ctx context.Context, logger *logging.Logger, title string, notes []string) {
	for _, note := range notes {
		logger.Debug(ctx, "conversion degradation",
			zap.String("title", title),
			zap.String("note", note))
	}
}
