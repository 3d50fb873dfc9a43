package fetch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// genres mirror the API's genre taxonomy, used to slice dense years into
// search payloads that stay under the API's result-window ceiling.
var genres = []string{
	"Action", "Adult", "Adventure", "Comedy", "Doujinshi", "Drama", "Ecchi",
	"Fantasy", "Gender Bender", "Harem", "Hentai", "Historical", "Horror",
	"Josei", "Lolicon", "Martial Arts", "Mature", "Mecha", "Mystery",
	"Psychological", "Romance", "School Life", "Sci-fi", "Seinen", "Shotacon",
	"Shoujo", "Shoujo Ai", "Shounen", "Shounen Ai", "Slice of Life", "Smut",
	"Sports", "Supernatural", "Tragedy", "Yaoi", "Yuri",
}

// CrawlConfig bounds the ID crawl. Years up to SimpleEndYear are sparse
// enough for a single search per year; later years are sliced by genre with
// a progressively growing exclusion list so no series is counted twice.
type CrawlConfig struct {
	SimpleStartYear int
	SimpleEndYear   int
	SlicedStartYear int
	SlicedEndYear   int
}

// ApplyDefaults fills unset fields.
func (c *CrawlConfig) ApplyDefaults() {
	if c.SimpleStartYear == 0 {
		c.SimpleStartYear = 1900
	}
	if c.SimpleEndYear == 0 {
		c.SimpleEndYear = 2014
	}
	if c.SlicedStartYear == 0 {
		c.SlicedStartYear = 2015
	}
	if c.SlicedEndYear == 0 {
		c.SlicedEndYear = time.Now().Year()
	}
}

type searchPayload struct {
	Year         int      `json:"year,omitempty"`
	Genre        []string `json:"genre,omitempty"`
	ExcludeGenre []string `json:"exclude_genre,omitempty"`
	Page         int      `json:"page"`
}

type searchResult struct {
	Results []struct {
		Record struct {
			SeriesID int64 `json:"series_id"`
		} `json:"record"`
	} `json:"results"`
}

// idLine is one line of the ID store file.
type idLine struct {
	SeriesID int64 `json:"series_id"`
}

// CrawlSeriesIDs walks the search space defined by crawl and appends every
// previously unseen series ID to idsFile (JSON lines). IDs already in the
// file survive and are never duplicated, so an interrupted crawl resumes
// where it left off. Returns the number of newly found IDs.
func (c *Client) CrawlSeriesIDs(ctx context.Context, crawl CrawlConfig, idsFile string) (int, error) {
	crawl.ApplyDefaults()

	if err := os.MkdirAll(filepath.Dir(idsFile), 0o755); err != nil {
		return 0, fmt.Errorf("creating ids directory: %w", err)
	}

	seen, err := loadSeenIDs(idsFile)
	if err != nil {
		return 0, err
	}

	out, err := os.OpenFile(idsFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("opening ids file: %w", err)
	}
	defer out.Close()

	found := 0
	for _, payload := range c.searchPayloads(crawl) {
		n, err := c.crawlPayload(ctx, payload, seen, out)
		if err != nil {
			return found, err
		}
		found += n

		select {
		case <-ctx.Done():
			return found, ctx.Err()
		case <-time.After(c.config.Delay):
		}
	}

	c.logger.Info(ctx, "id crawl complete",
		zap.Int("new_ids", found),
		zap.Int("total_ids", len(seen)))
	return found, nil
}

// searchPayloads yields the payload sequence: one per sparse year, then per
// dense year one payload per genre (excluding all earlier genres) plus a
// catch-all excluding every genre.
func (c *Client) searchPayloads(crawl CrawlConfig) []searchPayload {
	var payloads []searchPayload

	for year := crawl.SimpleStartYear; year <= crawl.SimpleEndYear; year++ {
		payloads = append(payloads, searchPayload{Year: year})
	}

	for year := crawl.SlicedStartYear; year <= crawl.SlicedEndYear; year++ {
		for i, genre := range genres {
			payloads = append(payloads, searchPayload{
				Year:         year,
				Genre:        []string{genre},
				ExcludeGenre: genres[:i],
			})
		}
		payloads = append(payloads, searchPayload{Year: year, ExcludeGenre: genres})
	}

	return payloads
}

// crawlPayload pages through one search payload until an empty page.
func (c *Client) crawlPayload(ctx context.Context, payload searchPayload, seen map[int64]struct{}, out *os.File) (int, error) {
	found := 0
	for page := 1; ; page++ {
		payload.Page = page

		body, err := c.requestWithBackoff(ctx, "POST", c.config.BaseURL+"/series/search", payload)
		if err != nil {
			return found, fmt.Errorf("search page %d: %w", page, err)
		}

		var result searchResult
		if err := json.Unmarshal(body, &result); err != nil {
			return found, fmt.Errorf("decoding search page %d: %w", page, err)
		}
		if len(result.Results) == 0 {
			return found, nil
		}

		for _, item := range result.Results {
			id := item.Record.SeriesID
			if id == 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			line, err := json.Marshal(idLine{SeriesID: id})
			if err != nil {
				return found, fmt.Errorf("encoding id line: %w", err)
			}
			if _, err := fmt.Fprintf(out, "%s\n", line); err != nil {
				return found, fmt.Errorf("appending id: %w", err)
			}
			seen[id] = struct{}{}
			found++
		}

		select {
		case <-ctx.Done():
			return found, ctx.Err()
		case <-time.After(c.config.Delay):
		}
	}
}

// loadSeenIDs reads the existing ID store, if any.
func loadSeenIDs(idsFile string) (map[int64]struct{}, error) {
	seen := make(map[int64]struct{})

	f, err := os.Open(idsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return seen, nil
		}
		return nil, fmt.Errorf("opening ids file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var line idLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			return nil, fmt.Errorf("ids file %s: bad line %q: %w", idsFile, scanner.Text(), err)
		}
		seen[line.SeriesID] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ids file: %w", err)
	}
	return seen, nil
}
