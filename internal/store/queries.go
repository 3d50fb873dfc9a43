package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/halcyonlabs/mediarec/internal/media"
)

// PreloadMedia reads every stored record and indexes it by natural key.
// Loaded once per batch so reconciliation is a map lookup per entry rather
// than a query per entry.
func PreloadMedia(tx *gorm.DB) (map[media.NaturalKey]*media.Record, error) {
	var records []*media.Record
	if err := tx.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to preload media: %w", err)
	}

	index := make(map[media.NaturalKey]*media.Record, len(records))
	for _, r := range records {
		index[r.Key()] = r
	}
	return index, nil
}

// PreloadDescriptors reads every content descriptor keyed by normalized name.
func PreloadDescriptors(tx *gorm.DB) (map[string]*media.Descriptor, error) {
	var descriptors []*media.Descriptor
	if err := tx.Find(&descriptors).Error; err != nil {
		return nil, fmt.Errorf("failed to preload descriptors: %w", err)
	}

	cache := make(map[string]*media.Descriptor, len(descriptors))
	for _, d := range descriptors {
		cache[media.NormalizeDescriptorName(d.Name)] = d
	}
	return cache, nil
}

// MediaByIDs fetches full records for the given surrogate IDs, descriptors
// included. An empty ID list returns an empty slice without a round trip.
func (s *Store) MediaByIDs(ctx context.Context, ids []uint) ([]*media.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var records []*media.Record
	err := s.db.WithContext(ctx).
		Preload("Descriptors").
		Where("media_id IN ?", ids).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media by ids: %w", err)
	}
	return records, nil
}

// AllMedia streams every record with descriptors in surrogate-ID order, in
// batches of batchSize, invoking fn per batch. Used by the vector-index
// bootstrap to avoid loading the whole catalog at once.
func (s *Store) AllMedia(ctx context.Context, batchSize int, fn func(records []*media.Record) error) error {
	var batch []*media.Record
	result := s.db.WithContext(ctx).
		Preload("Descriptors").
		Order("media_id").
		FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
			return fn(batch)
		})
	if result.Error != nil {
		return fmt.Errorf("failed to iterate media: %w", result.Error)
	}
	return nil
}

// AllDescriptors returns every content descriptor.
func (s *Store) AllDescriptors(ctx context.Context) ([]*media.Descriptor, error) {
	var descriptors []*media.Descriptor
	if err := s.db.WithContext(ctx).Find(&descriptors).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch descriptors: %w", err)
	}
	return descriptors, nil
}

// DescriptorUsageCounts returns, per descriptor ID, how many media records
// reference it. Descriptors with no references are absent from the map.
func (s *Store) DescriptorUsageCounts(ctx context.Context) (map[uint]int64, error) {
	type row struct {
		DescriptorID uint  `gorm:"column:descriptor_id"`
		Count        int64 `gorm:"column:usage_count"`
	}

	var rows []row
	err := s.db.WithContext(ctx).
		Table("media_content_descriptors").
		Select("descriptor_id, count(*) AS usage_count").
		Group("descriptor_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count descriptor usage: %w", err)
	}

	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.DescriptorID] = r.Count
	}
	return counts, nil
}

// CountMedia returns the number of stored records.
func (s *Store) CountMedia(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&media.Record{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count media: %w", err)
	}
	return n, nil
}
