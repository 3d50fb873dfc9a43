package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Counts classifies the outcome of a series download run.
type Counts struct {
	Downloaded int
	Skipped    int
	Failed     int
	Total      int
}

// ShardDir returns the storage shard for a series ID: the first 3 digits of
// the zero-padded decimal ID. Keeps directory fan-out bounded for large id
// sets.
func ShardDir(id int64) string {
	s := strconv.FormatInt(id, 10)
	for len(s) < 3 {
		s = "0" + s
	}
	return s[:3]
}

// seriesFilePath is where a series detail record lives on disk.
func seriesFilePath(storeRoot string, id int64) string {
	return filepath.Join(storeRoot, ShardDir(id), fmt.Sprintf("%d.json", id))
}

// FetchSeries downloads the detail record of every ID in idsFile into
// storeRoot, at most MaxInFlight requests in flight at once.
//
// A series whose file already exists is skipped without a network call, so
// an interrupted run resumes for free. One failed download does not abort
// its siblings; failures are counted and reported at the end.
func (c *Client) FetchSeries(ctx context.Context, idsFile, storeRoot string) (Counts, error) {
	seen, err := loadSeenIDs(idsFile)
	if err != nil {
		return Counts{}, err
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}

	if err := os.MkdirAll(storeRoot, 0o755); err != nil {
		return Counts{}, fmt.Errorf("creating series store: %w", err)
	}

	var (
		mu     sync.Mutex
		counts = Counts{Total: len(ids)}
		wg     sync.WaitGroup
		sem    = make(chan struct{}, c.config.MaxInFlight)
	)

	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := c.fetchOne(ctx, id, storeRoot)

			mu.Lock()
			switch outcome {
			case "downloaded":
				counts.Downloaded++
			case "skipped":
				counts.Skipped++
			default:
				counts.Failed++
			}
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	c.logger.Info(ctx, "series fetch complete",
		zap.Int("downloaded", counts.Downloaded),
		zap.Int("skipped", counts.Skipped),
		zap.Int("failed", counts.Failed),
		zap.Int("total", counts.Total))
	return counts, nil
}

// fetchOne downloads a single series record unless it is already on disk.
func (c *Client) fetchOne(ctx context.Context, id int64, storeRoot string) string {
	path := seriesFilePath(storeRoot, id)
	if _, err := os.Stat(path); err == nil {
		return "skipped"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		c.logger.Error(ctx, "creating shard directory", zap.Int64("series_id", id), zap.Error(err))
		return "failed"
	}

	body, err := c.requestWithBackoff(ctx, "GET", fmt.Sprintf("%s/series/%d", c.config.BaseURL, id), nil)
	if err != nil {
		c.logger.Warn(ctx, "series download failed", zap.Int64("series_id", id), zap.Error(err))
		return "failed"
	}

	if err := os.WriteFile(path, body, 0o644); err != nil {
		c.logger.Error(ctx, "writing series file", zap.Int64("series_id", id), zap.Error(err))
		return "failed"
	}

	// Politeness pause with jitter so workers do not fire in lockstep.
	jitter := time.Duration(rand.Int63n(int64(300 * time.Millisecond)))
	select {
	case <-ctx.Done():
	case <-time.After(c.config.Delay + jitter):
	}
	return "downloaded"
}
