package recommend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/halcyonlabs/mediarec/internal/embed"
	"github.com/halcyonlabs/mediarec/internal/logging"
	"github.com/halcyonlabs/mediarec/internal/media"
	"github.com/halcyonlabs/mediarec/internal/qdrant"
)

// queryProcessor and embedder are the pipeline's external collaborators,
// narrowed to what the pipeline calls so tests can fake them.
type queryProcessor interface {
	Process(ctx context.Context, userQuery string) (*ProcessedQuery, error)
}

type retriever interface {
	TopK(ctx context.Context, queryVector []float32, filter *qdrant.Filter, k int) ([]*qdrant.ScoredPoint, error)
	ResolveMedia(ctx context.Context, ids []uint) ([]*media.Record, error)
}

// Config holds pipeline tuning parameters.
type Config struct {
	// TopK is how many candidates the vector search returns.
	TopK int

	// NSelected is how many of those become the final recommendation list.
	// Must be in [1, TopK].
	NSelected int
}

// Pipeline wires query understanding, embedding, retrieval and re-ranking
// into a single recommendation call.
type Pipeline struct {
	processor queryProcessor
	embedder  embed.Embedder
	retriever retriever
	config    Config
	logger    *logging.Logger
}

// NewPipeline assembles a recommendation pipeline.
func NewPipeline(processor queryProcessor, embedder embed.Embedder, ret retriever, config Config, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		processor: processor,
		embedder:  embedder,
		retriever: ret,
		config:    config,
		logger:    logger.Named("recommend"),
	}
}

// Recommend returns up to NSelected media records for a free-text query.
func (p *Pipeline) Recommend(ctx context.Context, userQuery string) ([]*media.Record, error) {
	processed, err := p.processor.Process(ctx, userQuery)
	if err != nil {
		return nil, err
	}

	text := embed.BuildText(processed.EmbeddingText, processed.Keywords)
	vectors, err := p.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	filter := CompileFilter(processed.HardConstraints)
	points, err := p.retriever.TopK(ctx, vectors[0], filter, p.config.TopK)
	if err != nil {
		return nil, err
	}

	ids := SelectTop(points, p.config.NSelected)
	records, err := p.retriever.ResolveMedia(ctx, ids)
	if err != nil {
		return nil, err
	}

	p.logger.Info(ctx, "recommendation served",
		zap.Int("candidates", len(points)),
		zap.Int("selected", len(records)),
		zap.Bool("filtered", filter != nil))
	return records, nil
}
