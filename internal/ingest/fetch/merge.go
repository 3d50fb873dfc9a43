package fetch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/halcyonlabs/mediarec/internal/logging"
)

// mergeRecord pairs a series ID with its compacted JSON payload.
type mergeRecord struct {
	id   int64
	data []byte
}

// MergeSeries consolidates the per-series files under storeRoot into a
// single append-only JSON-lines file at outputFile. Records whose series ID
// already appears in the output log are dropped, so the merge is idempotent
// and incremental. Files are read by a bounded worker pool; a single writer
// serializes appends so output lines never interleave. Returns the number
// of records appended.
func MergeSeries(ctx context.Context, storeRoot, outputFile string, workers int, logger *logging.Logger) (int, error) {
	if workers <= 0 {
		workers = 4
	}

	seen, err := loadMergedIDs(outputFile)
	if err != nil {
		return 0, err
	}

	var paths []string
	err = filepath.WalkDir(storeRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".json" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking series store: %w", err)
	}

	out, err := os.OpenFile(outputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("opening merge output: %w", err)
	}
	defer out.Close()

	jobs := make(chan string)
	records := make(chan mergeRecord)

	var readers sync.WaitGroup
	for i := 0; i < workers; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for path := range jobs {
				record, err := readSeriesFile(path)
				if err != nil {
					logger.Warn(ctx, "skipping unreadable series file",
						zap.String("path", path), zap.Error(err))
					continue
				}
				records <- record
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range paths {
			select {
			case <-ctx.Done():
				return
			case jobs <- path:
			}
		}
	}()

	go func() {
		readers.Wait()
		close(records)
	}()

	// Single writer: dedup and append.
	appended, err := mergeRecords(records, seen, bufio.NewWriter(out))
	if err != nil {
		return appended, err
	}
	if err := ctx.Err(); err != nil {
		return appended, err
	}

	logger.Info(ctx, "series merge complete",
		zap.Int("files", len(paths)),
		zap.Int("appended", appended),
		zap.Int("total_records", len(seen)))
	return appended, nil
}

// mergeRecords appends every unseen record to w. On a write error it keeps
// consuming the channel so the reader pool never blocks on a send, then
// reports the first error once the channel closes.
func mergeRecords(records <-chan mergeRecord, seen map[int64]struct{}, w *bufio.Writer) (int, error) {
	appended := 0
	var writeErr error
	for record := range records {
		if writeErr != nil {
			continue
		}
		if _, ok := seen[record.id]; ok {
			continue
		}
		if _, err := w.Write(record.data); err != nil {
			writeErr = fmt.Errorf("writing merge output: %w", err)
			continue
		}
		if err := w.WriteByte('\n'); err != nil {
			writeErr = fmt.Errorf("writing merge output: %w", err)
			continue
		}
		seen[record.id] = struct{}{}
		appended++
	}
	if writeErr != nil {
		return appended, writeErr
	}
	if err := w.Flush(); err != nil {
		return appended, fmt.Errorf("flushing merge output: %w", err)
	}
	return appended, nil
}

// readSeriesFile reads one series file and compacts it to a single line.
func readSeriesFile(path string) (mergeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mergeRecord{}, err
	}

	var header struct {
		SeriesID int64 `json:"series_id"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return mergeRecord{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if header.SeriesID == 0 {
		return mergeRecord{}, fmt.Errorf("%s: missing series_id", path)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return mergeRecord{}, fmt.Errorf("compacting %s: %w", path, err)
	}
	return mergeRecord{id: header.SeriesID, data: compact.Bytes()}, nil
}

// loadMergedIDs reads the series IDs already present in the output log.
func loadMergedIDs(outputFile string) (map[int64]struct{}, error) {
	seen := make(map[int64]struct{})

	f, err := os.Open(outputFile)
	if err != nil {
		if os.IsNotExist(err) {
			return seen, nil
		}
		return nil, fmt.Errorf("opening merge output: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var header struct {
			SeriesID int64 `json:"series_id"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
			return nil, fmt.Errorf("merge output %s: bad line: %w", outputFile, err)
		}
		seen[header.SeriesID] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading merge output: %w", err)
	}
	return seen, nil
}
