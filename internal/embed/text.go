package embed

import (
	"sort"
	"strings"
)

// BuildText composes the canonical text that gets embedded for a catalog
// record: the primary text followed by the record's keywords, sorted so the
// same record always produces byte-identical input regardless of the order
// tags arrived in.
func BuildText(primary string, keywords []string) string {
	if len(keywords) == 0 {
		return primary
	}

	sorted := make([]string, len(keywords))
	copy(sorted, keywords)
	sort.Strings(sorted)

	return primary + ", " + strings.Join(sorted, ", ")
}
