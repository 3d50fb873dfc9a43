package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/mediarec/internal/logging"
)

func TestShardDir(t *testing.T) {
	tests := []struct {
		id   int64
		want string
	}{
		{id: 7, want: "007"},
		{id: 42, want: "042"},
		{id: 123, want: "123"},
		{id: 123456, want: "123"},
		{id: 999999999, want: "999"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ShardDir(tt.id), "id %d", tt.id)
	}
}

func writeIDsFile(t *testing.T, dir string, ids ...int64) string {
	t.Helper()
	path := filepath.Join(dir, "series_ids.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, id := range ids {
		fmt.Fprintf(f, "{\"series_id\": %d}\n", id)
	}
	return path
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(Config{
		BaseURL:     baseURL,
		Delay:       time.Millisecond,
		MaxRetries:  3,
		MaxInFlight: 2,
	}, logging.NewNop())
}

func TestFetchSeriesDownloadsAndShards(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprintf(w, `{"series_id": %s, "title": "x"}`, filepath.Base(r.URL.Path))
	}))
	defer server.Close()

	dir := t.TempDir()
	idsFile := writeIDsFile(t, dir, 42, 123456)
	storeRoot := filepath.Join(dir, "series")

	counts, err := testClient(t, server.URL).FetchSeries(context.Background(), idsFile, storeRoot)
	require.NoError(t, err)

	assert.Equal(t, Counts{Downloaded: 2, Total: 2}, counts)
	assert.Equal(t, int64(2), calls.Load())
	assert.FileExists(t, filepath.Join(storeRoot, "042", "42.json"))
	assert.FileExists(t, filepath.Join(storeRoot, "123", "123456.json"))
}

func TestFetchSeriesResumesWithoutNetworkCalls(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	idsFile := writeIDsFile(t, dir, 42, 7)
	storeRoot := filepath.Join(dir, "series")

	// Pre-create every shard file.
	for _, id := range []int64{42, 7} {
		path := seriesFilePath(storeRoot, id)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	}

	counts, err := testClient(t, server.URL).FetchSeries(context.Background(), idsFile, storeRoot)
	require.NoError(t, err)

	assert.Equal(t, Counts{Skipped: 2, Total: 2}, counts)
	assert.Zero(t, calls.Load(), "existing files must be skipped without a request")
}

func TestFetchSeriesCountsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if filepath.Base(r.URL.Path) == "13" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"series_id": 1}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	idsFile := writeIDsFile(t, dir, 1, 13)

	counts, err := testClient(t, server.URL).FetchSeries(context.Background(), idsFile, filepath.Join(dir, "series"))
	require.NoError(t, err, "a failed download must not abort the run")
	assert.Equal(t, 1, counts.Downloaded)
	assert.Equal(t, 1, counts.Failed)
}

func TestRequestWithBackoffRetriesRateLimit(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	body, err := testClient(t, server.URL).requestWithBackoff(context.Background(), "GET", server.URL+"/series/1", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(body))
	assert.Equal(t, int64(3), calls.Load())
}

func TestRequestWithBackoffTerminalStatus(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := testClient(t, server.URL).requestWithBackoff(context.Background(), "GET", server.URL+"/series/1", nil)
	require.Error(t, err)
	assert.Equal(t, int64(1), calls.Load(), "non-transient statuses must not be retried")
}

func TestRequestWithBackoffExhaustsRetries(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testClient(t, server.URL).requestWithBackoff(context.Background(), "GET", server.URL+"/series/1", nil)
	require.Error(t, err)
	assert.Equal(t, int64(3), calls.Load())
}

func TestCrawlSeriesIDsDeduplicates(t *testing.T) {
	// Every search page returns the same two IDs; one is already known.
	var pages atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload searchPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		if payload.Page > 1 {
			w.Write([]byte(`{"results": []}`))
			return
		}
		pages.Add(1)
		w.Write([]byte(`{"results": [{"record": {"series_id": 11}}, {"record": {"series_id": 22}}]}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	idsFile := writeIDsFile(t, dir, 11)

	// Sliced range empty so the crawl stays to the two simple-year payloads.
	crawl := CrawlConfig{SimpleStartYear: 2000, SimpleEndYear: 2001, SlicedStartYear: 2002, SlicedEndYear: 2001}
	found, err := testClient(t, server.URL).CrawlSeriesIDs(context.Background(), crawl, idsFile)
	require.NoError(t, err)

	assert.Equal(t, 1, found, "only the unseen ID counts as new")

	seen, err := loadSeenIDs(idsFile)
	require.NoError(t, err)
	assert.Len(t, seen, 2)
	assert.Contains(t, seen, int64(22))
}
