package recommend

import (
	"github.com/halcyonlabs/mediarec/internal/qdrant"
)

// SelectTop picks the ids of the first n candidates. Candidates arrive
// already ordered by descending similarity, so head-of-list selection is the
// ranking.
func SelectTop(points []*qdrant.ScoredPoint, n int) []uint {
	if n > len(points) {
		n = len(points)
	}

	ids := make([]uint, 0, n)
	for _, point := range points[:n] {
		ids = append(ids, uint(point.ID))
	}
	return ids
}
