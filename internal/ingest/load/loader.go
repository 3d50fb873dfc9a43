// Package load drives normalized catalog entries into the relational store.
// The loader preloads the existing natural-key index and descriptor cache
// once per batch, reconciles each entry against them, and commits a single
// transaction per batch so a failed batch leaves no partial writes.
package load

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/halcyonlabs/mediarec/internal/logging"
	"github.com/halcyonlabs/mediarec/internal/media"
	"github.com/halcyonlabs/mediarec/internal/store"
)

// Loader upserts batches of normalized entries.
//
// A Loader owns its caches for the duration of one LoadBatch call; two
// batches against the same store must be serialized by the caller.
type Loader struct {
	store  *store.Store
	logger *logging.Logger
}

// NewLoader creates a batch loader.
func NewLoader(s *store.Store, logger *logging.Logger) *Loader {
	return &Loader{store: s, logger: logger.Named("load")}
}

// LoadBatch reconciles every entry against existing storage inside one
// transaction. A failure on any entry rolls the whole batch back and is
// returned to the caller, never swallowed.
func (l *Loader) LoadBatch(ctx context.Context, entries []media.Normalized) error {
	start := time.Now()
	var created, updated int

	err := l.store.WithTx(ctx, func(tx *gorm.DB) error {
		keyIndex, err := store.PreloadMedia(tx)
		if err != nil {
			return err
		}
		tagCache, err := store.PreloadDescriptors(tx)
		if err != nil {
			return err
		}

		for i := range entries {
			wasNew, err := reconcile(tx, keyIndex, tagCache, &entries[i])
			if err != nil {
				return fmt.Errorf("entry %d (%q): %w", i, entries[i].Title, err)
			}
			if wasNew {
				created++
			} else {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batch load failed: %w", err)
	}

	l.logger.Info(ctx, "batch loaded",
		zap.Int("entries", len(entries)),
		zap.Int("created", created),
		zap.Int("updated", updated),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// reconcile creates or updates the record matching the entry's natural key.
//
// New records are registered in keyIndex immediately so a duplicate natural
// key later in the same batch updates the first occurrence instead of
// creating a second row. Descriptors are resolved (and persisted, for new
// ones) before the association set is assigned, so every join row references
// a durable descriptor ID.
func reconcile(
	tx *gorm.DB,
	keyIndex map[media.NaturalKey]*media.Record,
	tagCache map[string]*media.Descriptor,
	entry *media.Normalized,
) (wasNew bool, err error) {
	descriptors, err := resolveDescriptors(tx, tagCache, entry.Descriptors)
	if err != nil {
		return false, err
	}

	if existing, ok := keyIndex[entry.Key()]; ok {
		applyFields(existing, entry)
		if err := tx.Save(existing).Error; err != nil {
			return false, fmt.Errorf("failed to update record: %w", err)
		}
		if err := tx.Model(existing).Association("Descriptors").Replace(descriptors); err != nil {
			return false, fmt.Errorf("failed to replace descriptor set: %w", err)
		}
		existing.Descriptors = descriptors
		return false, nil
	}

	record := &media.Record{Title: entry.Title, Type: entry.Type, ExternalURL: entry.ExternalURL}
	applyFields(record, entry)
	if err := tx.Create(record).Error; err != nil {
		return false, fmt.Errorf("failed to create record: %w", err)
	}
	if err := tx.Model(record).Association("Descriptors").Replace(descriptors); err != nil {
		return false, fmt.Errorf("failed to assign descriptor set: %w", err)
	}
	record.Descriptors = descriptors

	keyIndex[record.Key()] = record
	return true, nil
}

// applyFields overwrites every mutable field from the entry. This is a full
// overwrite, not a merge: fields the latest payload omits become nil.
func applyFields(record *media.Record, entry *media.Normalized) {
	record.Title = entry.Title
	record.Type = entry.Type
	record.ExternalURL = entry.ExternalURL
	record.Summary = entry.Summary
	record.StartDate = entry.StartDate
	record.EndDate = entry.EndDate
	record.ImageURL = entry.ImageURL
	record.Status = entry.Status
	record.Score = entry.Score
}

// resolveDescriptors maps raw tag strings to stored descriptors, creating
// and caching any that don't exist yet. Names are normalized first, so tags
// differing only in casing or padding share one descriptor; duplicates
// within one entry collapse.
func resolveDescriptors(
	tx *gorm.DB,
	tagCache map[string]*media.Descriptor,
	raw []string,
) ([]*media.Descriptor, error) {
	descriptors := make([]*media.Descriptor, 0, len(raw))
	seen := make(map[string]bool, len(raw))

	for _, name := range raw {
		key := media.NormalizeDescriptorName(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		if d, ok := tagCache[key]; ok {
			descriptors = append(descriptors, d)
			continue
		}

		d := &media.Descriptor{Name: key}
		if err := tx.Create(d).Error; err != nil {
			return nil, fmt.Errorf("failed to create descriptor %q: %w", key, err)
		}
		tagCache[key] = d
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}
