package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/mediarec/internal/logging"
	"github.com/halcyonlabs/mediarec/internal/media"
	"github.com/halcyonlabs/mediarec/internal/qdrant"
)

func scored(id uint64, score float32) *qdrant.ScoredPoint {
	return &qdrant.ScoredPoint{Point: qdrant.Point{ID: id}, Score: score}
}

type fakeProcessor struct {
	result *ProcessedQuery
	err    error
}

func (f *fakeProcessor) Process(_ context.Context, _ string) (*ProcessedQuery, error) {
	return f.result, f.err
}

type fakeEmbedder struct {
	texts [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.texts = append(f.texts, texts)
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }

type fakeRetriever struct {
	points      []*qdrant.ScoredPoint
	records     map[uint]*media.Record
	gotFilter   *qdrant.Filter
	gotK        int
	resolved    []uint
	resolveHits int
}

func (f *fakeRetriever) TopK(_ context.Context, _ []float32, filter *qdrant.Filter, k int) ([]*qdrant.ScoredPoint, error) {
	f.gotFilter = filter
	f.gotK = k
	return f.points, nil
}

func (f *fakeRetriever) ResolveMedia(_ context.Context, ids []uint) ([]*media.Record, error) {
	f.resolveHits++
	f.resolved = ids
	if len(ids) == 0 {
		return nil, nil
	}
	var records []*media.Record
	for _, id := range ids {
		if rec, ok := f.records[id]; ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func TestPipelineRecommend(t *testing.T) {
	processor := &fakeProcessor{result: &ProcessedQuery{
		EmbeddingText: "dark fantasy with moral ambiguity",
		Keywords:      []string{"seinen", "dark fantasy"},
		HardConstraints: HardConstraints{
			Type: TypeConstraints{Include: []media.Type{media.TypeTV}},
		},
	}}
	embedder := &fakeEmbedder{}
	ret := &fakeRetriever{
		points: []*qdrant.ScoredPoint{
			scored(3, 0.97),
			scored(1, 0.91),
			scored(7, 0.88),
		},
		records: map[uint]*media.Record{
			3: {ID: 3, Title: "Berserk", Type: media.TypeTV},
			1: {ID: 1, Title: "Claymore", Type: media.TypeTV},
			7: {ID: 7, Title: "Dororo", Type: media.TypeTV},
		},
	}

	pipeline := NewPipeline(processor, embedder, ret, Config{TopK: 50, NSelected: 2}, logging.NewNop())

	records, err := pipeline.Recommend(context.Background(), "something dark")
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Highest-similarity candidates win.
	assert.Equal(t, []uint{3, 1}, ret.resolved)
	assert.Equal(t, 50, ret.gotK)
	require.NotNil(t, ret.gotFilter, "type include must produce a filter")

	// Embedding input is the canonical text with sorted keywords.
	require.Len(t, embedder.texts, 1)
	assert.Equal(t,
		[]string{"dark fantasy with moral ambiguity, dark fantasy, seinen"},
		embedder.texts[0])
}

func TestPipelineNoConstraintsPassesNilFilter(t *testing.T) {
	processor := &fakeProcessor{result: &ProcessedQuery{EmbeddingText: "anything"}}
	ret := &fakeRetriever{points: []*qdrant.ScoredPoint{scored(5, 0.5)}, records: map[uint]*media.Record{5: {ID: 5}}}

	pipeline := NewPipeline(processor, &fakeEmbedder{}, ret, Config{TopK: 10, NSelected: 5}, logging.NewNop())

	_, err := pipeline.Recommend(context.Background(), "anything good")
	require.NoError(t, err)
	assert.Nil(t, ret.gotFilter, "empty constraints must not produce an empty filter object")
}

func TestPipelineEmptyCandidates(t *testing.T) {
	processor := &fakeProcessor{result: &ProcessedQuery{EmbeddingText: "nothing matches"}}
	ret := &fakeRetriever{}

	pipeline := NewPipeline(processor, &fakeEmbedder{}, ret, Config{TopK: 10, NSelected: 5}, logging.NewNop())

	records, err := pipeline.Recommend(context.Background(), "niche request")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, ret.resolved)
}

func TestPipelineProcessorErrorPropagates(t *testing.T) {
	wantErr := errors.New("model unavailable")
	pipeline := NewPipeline(&fakeProcessor{err: wantErr}, &fakeEmbedder{}, &fakeRetriever{}, Config{TopK: 10, NSelected: 1}, logging.NewNop())

	_, err := pipeline.Recommend(context.Background(), "query")
	require.ErrorIs(t, err, wantErr)
}

func TestSelectTop(t *testing.T) {
	points := []*qdrant.ScoredPoint{scored(9, 0.9), scored(4, 0.8), scored(2, 0.7)}

	assert.Equal(t, []uint{9, 4}, SelectTop(points, 2))
	assert.Equal(t, []uint{9, 4, 2}, SelectTop(points, 10), "n beyond length is clamped")
	assert.Empty(t, SelectTop(nil, 3))
}
