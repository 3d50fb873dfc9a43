// Package recommend implements the semantic recommendation pipeline: query
// understanding through an LLM, query embedding, filtered vector retrieval,
// and re-ranking to a final media selection.
package recommend

import (
	"errors"
	"fmt"
	"time"

	"github.com/halcyonlabs/mediarec/internal/media"
)

var (
	// ErrMalformedResponse indicates the LLM returned output that is not
	// valid JSON or does not match the expected schema. Not retried.
	ErrMalformedResponse = errors.New("malformed query-understanding response")
)

// constraintDateLayout is the year-month boundary format the LLM emits.
const constraintDateLayout = "2006-01"

// ScoreRange bounds the aggregate score. Either bound may be nil (open).
type ScoreRange struct {
	Min *float64
	Max *float64
}

// TypeConstraints lists media types to prefer and to exclude.
type TypeConstraints struct {
	Include []media.Type
	Exclude []media.Type
}

// DateRange bounds the release start date. Either bound may be nil (open).
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// StatusConstraints lists release statuses to prefer and to exclude.
type StatusConstraints struct {
	Include []media.Status
	Exclude []media.Status
}

// HardConstraints is the structured, non-semantic filter extracted from a
// user query, applied alongside vector similarity.
type HardConstraints struct {
	ScoreRange ScoreRange
	Type       TypeConstraints
	DateRange  DateRange
	Status     StatusConstraints
}

// IsEmpty reports whether no constraint field is set.
func (c HardConstraints) IsEmpty() bool {
	return c.ScoreRange.Min == nil && c.ScoreRange.Max == nil &&
		len(c.Type.Include) == 0 && len(c.Type.Exclude) == 0 &&
		c.DateRange.Start == nil && c.DateRange.End == nil &&
		len(c.Status.Include) == 0 && len(c.Status.Exclude) == 0
}

// ProcessedQuery is the structured result of query understanding.
type ProcessedQuery struct {
	EmbeddingText   string
	Keywords        []string
	HardConstraints HardConstraints
}

// Wire shapes for the LLM's JSON output.

type rawScoreRange struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

type rawIncludeExclude struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

type rawDateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type rawHardConstraints struct {
	ScoreRange rawScoreRange     `json:"score_range"`
	Type       rawIncludeExclude `json:"type"`
	DateRange  rawDateRange      `json:"date_range"`
	Status     rawIncludeExclude `json:"status"`
}

type rawProcessedQuery struct {
	EmbeddingText   string             `json:"embedding_text"`
	Keywords        []string           `json:"keywords"`
	HardConstraints rawHardConstraints `json:"hard_constraints"`
}

func parseTypes(names []string) ([]media.Type, error) {
	if len(names) == 0 {
		return nil, nil
	}
	types := make([]media.Type, 0, len(names))
	for _, name := range names {
		t, err := media.ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		types = append(types, t)
	}
	return types, nil
}

func parseStatuses(names []string) ([]media.Status, error) {
	if len(names) == 0 {
		return nil, nil
	}
	statuses := make([]media.Status, 0, len(names))
	for _, name := range names {
		s, err := media.ParseStatus(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

func parseBoundaryDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(constraintDateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q must be YYYY-MM", ErrMalformedResponse, value)
	}
	return &t, nil
}

func parseHardConstraints(raw rawHardConstraints) (HardConstraints, error) {
	var constraints HardConstraints
	var err error

	constraints.ScoreRange = ScoreRange{Min: raw.ScoreRange.Min, Max: raw.ScoreRange.Max}

	if constraints.Type.Include, err = parseTypes(raw.Type.Include); err != nil {
		return HardConstraints{}, fmt.Errorf("type include: %w", err)
	}
	if constraints.Type.Exclude, err = parseTypes(raw.Type.Exclude); err != nil {
		return HardConstraints{}, fmt.Errorf("type exclude: %w", err)
	}
	if constraints.DateRange.Start, err = parseBoundaryDate(raw.DateRange.Start); err != nil {
		return HardConstraints{}, fmt.Errorf("date start: %w", err)
	}
	if constraints.DateRange.End, err = parseBoundaryDate(raw.DateRange.End); err != nil {
		return HardConstraints{}, fmt.Errorf("date end: %w", err)
	}
	if constraints.Status.Include, err = parseStatuses(raw.Status.Include); err != nil {
		return HardConstraints{}, fmt.Errorf("status include: %w", err)
	}
	if constraints.Status.Exclude, err = parseStatuses(raw.Status.Exclude); err != nil {
		return HardConstraints{}, fmt.Errorf("status exclude: %w", err)
	}

	return constraints, nil
}
