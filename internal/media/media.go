// Package media defines the catalog domain model shared by ingestion and
// recommendation: stored records, content descriptors, and the enumerations
// both pipelines filter on.
package media

import (
	"fmt"
	"strings"
	"time"
)

// Type classifies a catalog entry by format.
type Type string

const (
	TypeTV        Type = "TV"
	TypeMovie     Type = "MOVIE"
	TypeOVA       Type = "OVA"
	TypeONA       Type = "ONA"
	TypeSpecial   Type = "SPECIAL"
	TypeManga     Type = "MANGA"
	TypeNovel     Type = "NOVEL"
	TypeArtbook   Type = "ARTBOOK"
	TypeDoujinshi Type = "DOUJINSHI"
	TypeManhwa    Type = "MANHWA"
	TypeOther     Type = "OTHER"
)

// Status describes the publication state of a catalog entry.
type Status string

const (
	StatusUpcoming  Status = "UPCOMING"
	StatusOngoing   Status = "ONGOING"
	StatusFinished  Status = "FINISHED"
	StatusSuspended Status = "SUSPENDED"
	StatusCancelled Status = "CANCELLED"
	StatusUnknown   Status = "UNKNOWN"
)

var knownTypes = map[Type]struct{}{
	TypeTV: {}, TypeMovie: {}, TypeOVA: {}, TypeONA: {}, TypeSpecial: {},
	TypeManga: {}, TypeNovel: {}, TypeArtbook: {}, TypeDoujinshi: {},
	TypeManhwa: {}, TypeOther: {},
}

var knownStatuses = map[Status]struct{}{
	StatusUpcoming: {}, StatusOngoing: {}, StatusFinished: {},
	StatusSuspended: {}, StatusCancelled: {}, StatusUnknown: {},
}

// ParseType maps an enumeration name to a Type. Names are matched
// case-insensitively; unknown names are an error, not TypeOther.
func ParseType(name string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := knownTypes[t]; !ok {
		return "", fmt.Errorf("unknown media type %q", name)
	}
	return t, nil
}

// ParseStatus maps an enumeration name to a Status, case-insensitively.
func ParseStatus(name string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := knownStatuses[s]; !ok {
		return "", fmt.Errorf("unknown status %q", name)
	}
	return s, nil
}

// Record is a stored catalog entry. Identity for upsert purposes is the
// natural key (Title, Type, ExternalURL), not the surrogate ID.
type Record struct {
	ID          uint       `gorm:"column:media_id;primaryKey;autoIncrement"`
	Title       string     `gorm:"not null;uniqueIndex:uniq_media_natural_key"`
	Type        Type       `gorm:"not null;uniqueIndex:uniq_media_natural_key"`
	ExternalURL *string    `gorm:"uniqueIndex:uniq_media_natural_key"`
	Summary     *string    `gorm:"type:text"`
	StartDate   *time.Time `gorm:"type:date"`
	EndDate     *time.Time `gorm:"type:date"`
	ImageURL    *string
	Status      *Status
	Score       *float64 `gorm:"check:score >= 0 AND score <= 10"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Descriptors []*Descriptor `gorm:"many2many:media_content_descriptors;"`
}

// TableName keeps the table name singular to match the external schema.
func (Record) TableName() string { return "media" }

// Key returns the record's natural key.
func (r *Record) Key() NaturalKey {
	return NewNaturalKey(r.Title, r.Type, r.ExternalURL)
}

// Descriptor is a normalized tag attached to media records. The Name column
// holds the trimmed, case-folded form and is the uniqueness key. Descriptors
// are created lazily on first use and never mutated or deleted.
type Descriptor struct {
	ID   uint   `gorm:"column:content_descriptor_id;primaryKey;autoIncrement"`
	Name string `gorm:"not null;unique"`
}

// TableName matches the external schema.
func (Descriptor) TableName() string { return "content_descriptors" }

// NormalizeDescriptorName produces the canonical descriptor name: whitespace
// trimmed and case folded. Two raw tags differing only in casing or padding
// resolve to the same stored descriptor.
func NormalizeDescriptorName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NaturalKey uniquely identifies a record across ingestion runs,
// independently of the storage-assigned surrogate ID. A nil external URL is
// represented as the empty string so the key is comparable.
type NaturalKey struct {
	Title       string
	Type        Type
	ExternalURL string
}

// NewNaturalKey builds a NaturalKey from record fields.
func NewNaturalKey(title string, typ Type, externalURL *string) NaturalKey {
	key := NaturalKey{Title: title, Type: typ}
	if externalURL != nil {
		key.ExternalURL = *externalURL
	}
	return key
}

// Normalized is the source-independent form a converter produces from one
// raw external entry. Optional fields are nil when the source omitted them
// or supplied something unusable.
type Normalized struct {
	Title       string
	Type        Type
	Summary     *string
	StartDate   *time.Time
	EndDate     *time.Time
	ExternalURL *string
	ImageURL    *string
	Status      *Status
	Score       *float64
	Descriptors []string
}

// Key returns the natural key the normalized entry will reconcile against.
func (n *Normalized) Key() NaturalKey {
	return NewNaturalKey(n.Title, n.Type, n.ExternalURL)
}
