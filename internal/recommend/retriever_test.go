package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/mediarec/internal/logging"
	"github.com/halcyonlabs/mediarec/internal/qdrant"
)

type searchRecorder struct {
	collection string
	limit      uint64
	points     []*qdrant.ScoredPoint
}

func (s *searchRecorder) Search(_ context.Context, collection string, _ []float32, limit uint64, _ *qdrant.Filter) ([]*qdrant.ScoredPoint, error) {
	s.collection = collection
	s.limit = limit
	return s.points, nil
}

func (s *searchRecorder) CreateCollection(_ context.Context, _ string, _ uint64) error { return nil }
func (s *searchRecorder) DeleteCollection(_ context.Context, _ string) error           { return nil }
func (s *searchRecorder) CollectionExists(_ context.Context, _ string) (bool, error)   { return true, nil }
func (s *searchRecorder) Upsert(_ context.Context, _ string, _ []*qdrant.Point) error  { return nil }

func (s *searchRecorder) Health(_ context.Context) error { return nil }
func (s *searchRecorder) Close() error                   { return nil }

func TestRetrieverSearchesSanitizedCollection(t *testing.T) {
	vectors := &searchRecorder{points: []*qdrant.ScoredPoint{{Point: qdrant.Point{ID: 3}, Score: 0.9}}}
	r := NewRetriever(vectors, nil, "Media Catalog", logging.NewNop())

	points, err := r.TopK(context.Background(), []float32{0.1, 0.2}, nil, 25)
	require.NoError(t, err)
	require.Len(t, points, 1)

	// Must match the identifier form the indexer writes under.
	assert.Equal(t, "media_catalog", vectors.collection)
	assert.Equal(t, uint64(25), vectors.limit)
}

func TestRetrieverResolveMediaEmptyIDs(t *testing.T) {
	r := NewRetriever(&searchRecorder{}, nil, "media", logging.NewNop())

	records, err := r.ResolveMedia(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, records)
}
