// Package qdrant wraps the official Qdrant Go client behind a small
// interface over the operations the catalog needs: collection bootstrap,
// point upsert, and filtered similarity search. Points are keyed by the
// relational store's numeric surrogate IDs.
package qdrant

import (
	"context"
	"time"
)

// Client is the vector-store surface used by indexing and retrieval.
type Client interface {
	CreateCollection(ctx context.Context, name string, vectorSize uint64) error
	DeleteCollection(ctx context.Context, name string) error
	CollectionExists(ctx context.Context, name string) (bool, error)

	Upsert(ctx context.Context, collection string, points []*Point) error
	Search(ctx context.Context, collection string, vector []float32, limit uint64, filter *Filter) ([]*ScoredPoint, error)

	Health(ctx context.Context) error
	Close() error
}

// Point is a vector with its numeric ID and filterable payload.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload map[string]interface{}
}

// ScoredPoint is a search result ordered by similarity score.
type ScoredPoint struct {
	Point
	Score float32
}

// Filter is a boolean combination of conditions: every Must clause is
// required, at least one Should clause must match (when any are present),
// and no MustNot clause may match.
type Filter struct {
	Must    []Condition
	Should  []Condition
	MustNot []Condition
}

// Condition constrains one payload field. Exactly one of Match, Range, or
// DatetimeRange is set.
type Condition struct {
	Field         string
	Match         interface{}
	Range         *RangeCondition
	DatetimeRange *DatetimeRangeCondition
}

// RangeCondition is a numeric range, open on any nil bound.
type RangeCondition struct {
	Gte *float64
	Lte *float64
	Gt  *float64
	Lt  *float64
}

// DatetimeRangeCondition is a datetime range, open on any nil bound.
type DatetimeRangeCondition struct {
	Gte *time.Time
	Lte *time.Time
}
