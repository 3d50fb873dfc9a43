package load

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/mediarec/internal/logging"
	"github.com/halcyonlabs/mediarec/internal/media"
	"github.com/halcyonlabs/mediarec/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.OpenDialector(sqlite.Open(":memory:"), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

func allRecords(t *testing.T, st *store.Store) []*media.Record {
	t.Helper()
	var records []*media.Record
	require.NoError(t, st.DB().Preload("Descriptors").Order("media_id").Find(&records).Error)
	return records
}

func descriptorNames(record *media.Record) []string {
	names := make([]string, 0, len(record.Descriptors))
	for _, d := range record.Descriptors {
		names = append(names, d.Name)
	}
	return names
}

func TestLoadBatchCreatesRecords(t *testing.T) {
	st := openStore(t)
	loader := NewLoader(st, logging.NewNop())

	start := time.Date(2002, time.October, 1, 0, 0, 0, 0, time.UTC)
	entries := []media.Normalized{
		{
			Title:       "Naruto",
			Type:        media.TypeTV,
			ExternalURL: strPtr("https://anilist.co/anime/20"),
			StartDate:   &start,
			Score:       f64Ptr(7.9),
			Descriptors: []string{"shounen", "ninja"},
		},
		{
			Title: "Vagabond",
			Type:  media.TypeManga,
		},
	}

	require.NoError(t, loader.LoadBatch(context.Background(), entries))

	records := allRecords(t, st)
	require.Len(t, records, 2)
	assert.Equal(t, "Naruto", records[0].Title)
	assert.ElementsMatch(t, []string{"shounen", "ninja"}, descriptorNames(records[0]))
	assert.Empty(t, records[1].Descriptors)
}

func TestLoadBatchIsIdempotent(t *testing.T) {
	st := openStore(t)
	loader := NewLoader(st, logging.NewNop())

	entries := []media.Normalized{{
		Title:       "Berserk",
		Type:        media.TypeManga,
		ExternalURL: strPtr("https://www.mangaupdates.com/series/abc"),
		Summary:     strPtr("A lone mercenary."),
		Descriptors: []string{"Action", "Horror"},
	}}

	require.NoError(t, loader.LoadBatch(context.Background(), entries))
	require.NoError(t, loader.LoadBatch(context.Background(), entries))

	records := allRecords(t, st)
	require.Len(t, records, 1, "same natural key must not create a second row")

	var descriptorCount int64
	require.NoError(t, st.DB().Model(&media.Descriptor{}).Count(&descriptorCount).Error)
	assert.EqualValues(t, 2, descriptorCount)
}

func TestLoadBatchUpdateOverwritesOmittedFields(t *testing.T) {
	st := openStore(t)
	loader := NewLoader(st, logging.NewNop())

	first := []media.Normalized{{
		Title:       "Berserk",
		Type:        media.TypeManga,
		Summary:     strPtr("A lone mercenary."),
		Score:       f64Ptr(8.4),
		Descriptors: []string{"action"},
	}}
	require.NoError(t, loader.LoadBatch(context.Background(), first))

	second := []media.Normalized{{
		Title:       "Berserk",
		Type:        media.TypeManga,
		Descriptors: []string{"horror"},
	}}
	require.NoError(t, loader.LoadBatch(context.Background(), second))

	records := allRecords(t, st)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Summary, "omitted fields overwrite, they do not merge")
	assert.Nil(t, records[0].Score)
	assert.Equal(t, []string{"horror"}, descriptorNames(records[0]),
		"descriptor set is replaced wholesale")
}

func TestLoadBatchDuplicateKeyWithinBatch(t *testing.T) {
	st := openStore(t)
	loader := NewLoader(st, logging.NewNop())

	entries := []media.Normalized{
		{
			Title:   "Naruto",
			Type:    media.TypeTV,
			Summary: strPtr("first occurrence"),
		},
		{
			Title:   "Naruto",
			Type:    media.TypeTV,
			Summary: strPtr("second occurrence"),
		},
	}

	require.NoError(t, loader.LoadBatch(context.Background(), entries))

	records := allRecords(t, st)
	require.Len(t, records, 1, "duplicate within one batch updates, not duplicates")
	require.NotNil(t, records[0].Summary)
	assert.Equal(t, "second occurrence", *records[0].Summary)
}

func TestLoadBatchNormalizesDescriptorNames(t *testing.T) {
	st := openStore(t)
	loader := NewLoader(st, logging.NewNop())

	entries := []media.Normalized{
		{
			Title:       "One",
			Type:        media.TypeTV,
			Descriptors: []string{"Action", " action ", "ACTION"},
		},
		{
			Title:       "Two",
			Type:        media.TypeManga,
			Descriptors: []string{"action"},
		},
	}

	require.NoError(t, loader.LoadBatch(context.Background(), entries))

	var descriptors []*media.Descriptor
	require.NoError(t, st.DB().Find(&descriptors).Error)
	require.Len(t, descriptors, 1, "casing and padding variants share one descriptor")
	assert.Equal(t, "action", descriptors[0].Name)

	records := allRecords(t, st)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"action"}, descriptorNames(records[0]))
	assert.Equal(t, []string{"action"}, descriptorNames(records[1]))
}

func TestLoadBatchRollsBackOnFailure(t *testing.T) {
	st := openStore(t)
	loader := NewLoader(st, logging.NewNop())

	// The second entry violates the score check constraint, so the whole
	// batch must roll back, including the first entry and its descriptors.
	entries := []media.Normalized{
		{
			Title:       "Naruto",
			Type:        media.TypeTV,
			Score:       f64Ptr(7.9),
			Descriptors: []string{"shounen"},
		},
		{
			Title: "Broken",
			Type:  media.TypeTV,
			Score: f64Ptr(11),
		},
	}

	err := loader.LoadBatch(context.Background(), entries)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken", "error names the failing entry")

	assert.Empty(t, allRecords(t, st), "no partial writes survive a failed batch")

	var descriptorCount int64
	require.NoError(t, st.DB().Model(&media.Descriptor{}).Count(&descriptorCount).Error)
	assert.Zero(t, descriptorCount)
}

func TestLoadBatchSameTitleDifferentKey(t *testing.T) {
	st := openStore(t)
	loader := NewLoader(st, logging.NewNop())

	entries := []media.Normalized{
		{Title: "Monster", Type: media.TypeTV},
		{Title: "Monster", Type: media.TypeManga},
		{Title: "Monster", Type: media.TypeManga, ExternalURL: strPtr("https://example.org/m")},
	}

	require.NoError(t, loader.LoadBatch(context.Background(), entries))
	assert.Len(t, allRecords(t, st), 3, "type and external URL are part of the identity")
}
