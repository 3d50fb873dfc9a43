package recommend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/halcyonlabs/mediarec/internal/logging"
	"github.com/halcyonlabs/mediarec/internal/media"
	"github.com/halcyonlabs/mediarec/internal/qdrant"
	"github.com/halcyonlabs/mediarec/internal/sanitize"
	"github.com/halcyonlabs/mediarec/internal/store"
)

// Retriever runs filtered nearest-neighbor search against the media
// collection and resolves candidate ids to full relational records.
type Retriever struct {
	vectors    qdrant.Client
	store      *store.Store
	collection string
	logger     *logging.Logger
}

// NewRetriever creates a retriever over the given media collection. The
// collection name is sanitized to the identifier form the indexer uses, so a
// configured name always resolves to the same collection on both paths.
func NewRetriever(vectors qdrant.Client, st *store.Store, collection string, logger *logging.Logger) *Retriever {
	return &Retriever{
		vectors:    vectors,
		store:      st,
		collection: sanitize.Identifier(collection),
		logger:     logger.Named("retriever"),
	}
}

// TopK returns up to k candidates ordered by descending similarity. A nil
// filter means unfiltered search, not an empty filter object.
func (r *Retriever) TopK(ctx context.Context, queryVector []float32, filter *qdrant.Filter, k int) ([]*qdrant.ScoredPoint, error) {
	points, err := r.vectors.Search(ctx, r.collection, queryVector, uint64(k), filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	r.logger.Debug(ctx, "retrieved candidates",
		zap.Int("count", len(points)),
		zap.Int("k", k),
		zap.Bool("filtered", filter != nil))
	return points, nil
}

// ResolveMedia fetches the full records for the given ids. An empty id list
// short-circuits to an empty result without a store round trip. The result
// carries no ordering guarantee.
func (r *Retriever) ResolveMedia(ctx context.Context, ids []uint) ([]*media.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	records, err := r.store.MediaByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving media records: %w", err)
	}
	return records, nil
}
