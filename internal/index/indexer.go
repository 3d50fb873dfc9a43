// Package index bootstraps the vector-store collections from the relational
// catalog: it embeds every media record and content descriptor and upserts
// the vectors with filterable payloads.
package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/halcyonlabs/mediarec/internal/embed"
	"github.com/halcyonlabs/mediarec/internal/logging"
	"github.com/halcyonlabs/mediarec/internal/media"
	"github.com/halcyonlabs/mediarec/internal/qdrant"
	"github.com/halcyonlabs/mediarec/internal/sanitize"
	"github.com/halcyonlabs/mediarec/internal/store"
)

// Config holds indexing parameters.
type Config struct {
	// MediaCollection and DescriptorCollection name the target collections.
	MediaCollection      string
	DescriptorCollection string

	// BatchSize is how many records go into one embedding request.
	BatchSize int

	// RequestsPerMinute caps embedding API calls.
	RequestsPerMinute int

	// MaxRetries bounds per-batch embedding retries.
	MaxRetries int

	// RecoveryFile persists already-embedded media IDs between runs.
	RecoveryFile string
}

// Indexer builds vector-store collections from stored records.
type Indexer struct {
	store    *store.Store
	vectors  qdrant.Client
	embedder embed.Embedder
	limiter  *rate.Limiter
	config   Config
	logger   *logging.Logger
}

// New creates an Indexer. Collection names are sanitized to safe identifier
// form before any vector-store call. The rate limiter spreads
// RequestsPerMinute evenly so a long bootstrap run stays under the API
// ceiling throughout.
func New(st *store.Store, vectors qdrant.Client, embedder embed.Embedder, config Config, logger *logging.Logger) *Indexer {
	config.MediaCollection = sanitize.Identifier(config.MediaCollection)
	config.DescriptorCollection = sanitize.Identifier(config.DescriptorCollection)
	return &Indexer{
		store:    st,
		vectors:  vectors,
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Limit(config.RequestsPerMinute)/60.0, 1),
		config:   config,
		logger:   logger.Named("index"),
	}
}

// IndexMedia embeds every media record not yet present in the recovery file
// and upserts it into the media collection. Safe to interrupt and re-run.
func (ix *Indexer) IndexMedia(ctx context.Context) error {
	if err := ix.ensureCollection(ctx, ix.config.MediaCollection); err != nil {
		return err
	}

	recovery, err := loadRecoverySet(ix.config.RecoveryFile)
	if err != nil {
		return err
	}
	if recovery.Len() > 0 {
		ix.logger.Info(ctx, "resuming from recovery file",
			zap.String("path", ix.config.RecoveryFile),
			zap.Int("already_embedded", recovery.Len()))
	}

	var embedded, skipped int
	err = ix.store.AllMedia(ctx, ix.config.BatchSize, func(records []*media.Record) error {
		pending := make([]*media.Record, 0, len(records))
		for _, rec := range records {
			if recovery.Contains(rec.ID) {
				skipped++
				continue
			}
			pending = append(pending, rec)
		}
		if len(pending) == 0 {
			return nil
		}

		texts := make([]string, len(pending))
		for i, rec := range pending {
			texts[i] = mediaEmbeddingText(rec)
		}

		vectors, err := ix.embedBatch(ctx, texts)
		if err != nil {
			return err
		}

		points := make([]*qdrant.Point, len(pending))
		ids := make([]uint, len(pending))
		for i, rec := range pending {
			points[i] = &qdrant.Point{
				ID:      uint64(rec.ID),
				Vector:  vectors[i],
				Payload: mediaPayload(rec),
			}
			ids[i] = rec.ID
		}

		if err := ix.vectors.Upsert(ctx, ix.config.MediaCollection, points); err != nil {
			return fmt.Errorf("upserting media batch: %w", err)
		}
		if err := recovery.Append(ids); err != nil {
			return err
		}
		embedded += len(pending)
		return nil
	})
	if err != nil {
		return err
	}

	ix.logger.Info(ctx, "media collection indexed",
		zap.String("collection", ix.config.MediaCollection),
		zap.Int("embedded", embedded),
		zap.Int("skipped", skipped))
	return nil
}

// IndexDescriptors embeds every content descriptor name into the descriptor
// collection, with the media usage count in the payload.
func (ix *Indexer) IndexDescriptors(ctx context.Context) error {
	if err := ix.ensureCollection(ctx, ix.config.DescriptorCollection); err != nil {
		return err
	}

	descriptors, err := ix.store.AllDescriptors(ctx)
	if err != nil {
		return err
	}
	usage, err := ix.store.DescriptorUsageCounts(ctx)
	if err != nil {
		return err
	}

	for start := 0; start < len(descriptors); start += ix.config.BatchSize {
		end := start + ix.config.BatchSize
		if end > len(descriptors) {
			end = len(descriptors)
		}
		batch := descriptors[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Name
		}

		vectors, err := ix.embedBatch(ctx, texts)
		if err != nil {
			return err
		}

		points := make([]*qdrant.Point, len(batch))
		for i, d := range batch {
			points[i] = &qdrant.Point{
				ID:     uint64(d.ID),
				Vector: vectors[i],
				Payload: map[string]interface{}{
					"content_descriptor": d.Name,
					"usage_count":        usage[d.ID],
				},
			}
		}

		if err := ix.vectors.Upsert(ctx, ix.config.DescriptorCollection, points); err != nil {
			return fmt.Errorf("upserting descriptor batch: %w", err)
		}
	}

	ix.logger.Info(ctx, "descriptor collection indexed",
		zap.String("collection", ix.config.DescriptorCollection),
		zap.Int("count", len(descriptors)))
	return nil
}

// ensureCollection creates the collection if it does not exist yet.
// Re-running against an existing collection is an upsert, not an error.
func (ix *Indexer) ensureCollection(ctx context.Context, name string) error {
	exists, err := ix.vectors.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", name, err)
	}
	if exists {
		return nil
	}
	if err := ix.vectors.CreateCollection(ctx, name, uint64(ix.embedder.Dimensions())); err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}
	return nil
}

// embedBatch waits for the rate limiter, then calls the embedding API with
// exponential backoff on failure.
func (ix *Indexer) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= ix.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Second * time.Duration(1<<(attempt-1))
			ix.logger.Warn(ctx, "embedding batch failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := ix.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		vectors, err := ix.embedder.Embed(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("embedding batch failed after %d retries: %w", ix.config.MaxRetries, lastErr)
}

// mediaEmbeddingText builds the canonical embedding input for a record:
// cleaned summary plus the sorted descriptor names.
func mediaEmbeddingText(rec *media.Record) string {
	var summary string
	if rec.Summary != nil {
		summary = *rec.Summary
	}
	summary = strings.ToLower(strings.TrimRight(strings.TrimSpace(summary), "/"))
	if summary == "" {
		summary = strings.ToLower(rec.Title)
	}

	names := make([]string, 0, len(rec.Descriptors))
	for _, d := range rec.Descriptors {
		names = append(names, d.Name)
	}
	return embed.BuildText(summary, names)
}

// mediaPayload denormalizes the filterable columns onto the point so the
// retriever's filter clauses can match without touching the relational
// store.
func mediaPayload(rec *media.Record) map[string]interface{} {
	payload := map[string]interface{}{
		"title": rec.Title,
		"type":  string(rec.Type),
	}
	if rec.Score != nil {
		payload["score"] = *rec.Score
	}
	if rec.Status != nil {
		payload["status"] = string(*rec.Status)
	}
	if rec.StartDate != nil {
		payload["start_date"] = rec.StartDate.Format(time.RFC3339)
	}

	names := make([]string, 0, len(rec.Descriptors))
	for _, d := range rec.Descriptors {
		names = append(names, d.Name)
	}
	if len(names) > 0 {
		payload["descriptors"] = names
	}
	return payload
}
