package recommend

import (
	"github.com/halcyonlabs/mediarec/internal/qdrant"
)

// Payload field keys on media points. They mirror the relational columns
// denormalized into the vector store at indexing time.
const (
	fieldScore     = "score"
	fieldType      = "type"
	fieldStartDate = "start_date"
	fieldStatus    = "status"
)

// CompileFilter translates hard constraints into a vector-store filter.
//
// Returns nil when no constraint field is set: nil means "no filtering",
// which the retriever must pass through as the absence of a filter rather
// than an empty filter object.
//
// Clause semantics:
//   - score and date ranges become required ("must") range clauses, open on
//     whichever bound is unset
//   - type/status include sets become one "should" match clause per value:
//     a candidate matching any included value passes
//   - type/status exclude sets become one "must_not" match clause per value
func CompileFilter(constraints HardConstraints) *qdrant.Filter {
	if constraints.IsEmpty() {
		return nil
	}

	filter := &qdrant.Filter{}

	if constraints.ScoreRange.Min != nil || constraints.ScoreRange.Max != nil {
		filter.Must = append(filter.Must, qdrant.Condition{
			Field: fieldScore,
			Range: &qdrant.RangeCondition{
				Gte: constraints.ScoreRange.Min,
				Lte: constraints.ScoreRange.Max,
			},
		})
	}

	for _, t := range constraints.Type.Include {
		filter.Should = append(filter.Should, qdrant.Condition{
			Field: fieldType,
			Match: string(t),
		})
	}
	for _, t := range constraints.Type.Exclude {
		filter.MustNot = append(filter.MustNot, qdrant.Condition{
			Field: fieldType,
			Match: string(t),
		})
	}

	if constraints.DateRange.Start != nil || constraints.DateRange.End != nil {
		filter.Must = append(filter.Must, qdrant.Condition{
			Field: fieldStartDate,
			DatetimeRange: &qdrant.DatetimeRangeCondition{
				Gte: constraints.DateRange.Start,
				Lte: constraints.DateRange.End,
			},
		})
	}

	for _, s := range constraints.Status.Include {
		filter.Should = append(filter.Should, qdrant.Condition{
			Field: fieldStatus,
			Match: string(s),
		})
	}
	for _, s := range constraints.Status.Exclude {
		filter.MustNot = append(filter.MustNot, qdrant.Condition{
			Field: fieldStatus,
			Match: string(s),
		})
	}

	return filter
}
