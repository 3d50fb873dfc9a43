// Package convert maps raw per-source catalog payloads to the normalized
// media schema. Conversion never fails on malformed optional fields: each
// sub-conversion degrades to nil and records a note instead of rejecting
// the whole entry.
package convert

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/halcyonlabs/mediarec/internal/media"
)

// ManamiEntry is one record from the anime-offline-database JSON dump.
type ManamiEntry struct {
	Title       string        `json:"title"`
	Type        string        `json:"type"`
	Sources     []string      `json:"sources"`
	Picture     string        `json:"picture"`
	Status      string        `json:"status"`
	AnimeSeason *ManamiSeason `json:"animeSeason"`
	Score       *ManamiScore  `json:"score"`
	Tags        []string      `json:"tags"`
}

// ManamiSeason is the season/year pair Manami attaches instead of a date.
type ManamiSeason struct {
	Season string `json:"season"`
	Year   int    `json:"year"`
}

// ManamiScore carries Manami's aggregated score statistics.
type ManamiScore struct {
	ArithmeticMean float64 `json:"arithmeticMean"`
	Median         float64 `json:"median"`
}

// ManamiDatabase is the top-level shape of the offline database file.
type ManamiDatabase struct {
	Data []ManamiEntry `json:"data"`
}

// manamiSourcePriority orders candidate source URLs by aggregator domain.
// The first matching domain wins; entries listed on none of these domains
// fall back to the first source URL.
var manamiSourcePriority = []string{
	"anilist.co",
	"myanimelist.net",
	"livechart.me",
	"anidb.net",
}

// NormalizeManami converts one Manami entry to the normalized schema.
// The returned notes name fields that degraded to nil on unusable input.
func NormalizeManami(entry ManamiEntry) (media.Normalized, []string) {
	var notes []string

	typ, ok := manamiType(entry.Type)
	if !ok {
		notes = append(notes, fmt.Sprintf("type: unmapped %q", entry.Type))
	}

	status := manamiStatus(entry.Status)
	if status == nil && entry.Status != "" {
		notes = append(notes, fmt.Sprintf("status: unmapped %q", entry.Status))
	}

	startDate := manamiSeasonDate(entry.AnimeSeason)
	if startDate == nil && entry.AnimeSeason != nil {
		notes = append(notes, "start_date: season without year")
	}

	externalURL := manamiExternalURL(entry.Sources)
	if externalURL == nil {
		notes = append(notes, "external_url: no sources")
	}

	return media.Normalized{
		Title:       entry.Title,
		Type:        typ,
		Summary:     nil, // the offline database carries no summaries
		StartDate:   startDate,
		EndDate:     nil,
		ExternalURL: externalURL,
		ImageURL:    optString(entry.Picture),
		Status:      status,
		Score:       manamiScore(entry.Score),
		Descriptors: entry.Tags,
	}, notes
}

// manamiType maps Manami's type vocabulary. Unmapped values become OTHER.
func manamiType(raw string) (media.Type, bool) {
	switch raw {
	case "TV":
		return media.TypeTV, true
	case "MOVIE":
		return media.TypeMovie, true
	case "OVA":
		return media.TypeOVA, true
	case "ONA":
		return media.TypeONA, true
	case "SPECIAL":
		return media.TypeSpecial, true
	default:
		return media.TypeOther, false
	}
}

// manamiStatus maps Manami's status vocabulary; anything else is nil rather
// than a default status.
func manamiStatus(raw string) *media.Status {
	switch raw {
	case "FINISHED":
		return statusPtr(media.StatusFinished)
	case "ONGOING":
		return statusPtr(media.StatusOngoing)
	case "UPCOMING":
		return statusPtr(media.StatusUpcoming)
	case "UNKNOWN":
		return statusPtr(media.StatusUnknown)
	default:
		return nil
	}
}

// manamiSeasonDate approximates a start date from a season/year pair: the
// first month of the season, day 1. A missing year yields no date at all.
func manamiSeasonDate(season *ManamiSeason) *time.Time {
	if season == nil || season.Year == 0 {
		return nil
	}

	month := time.January
	switch season.Season {
	case "SPRING":
		month = time.April
	case "SUMMER":
		month = time.July
	case "FALL":
		month = time.October
	case "WINTER":
		month = time.January
	}

	d := time.Date(season.Year, month, 1, 0, 0, 0, 0, time.UTC)
	return &d
}

// manamiExternalURL picks the source-of-truth link by domain priority,
// falling back to the first source URL. Malformed URLs are skipped.
func manamiExternalURL(sources []string) *string {
	if len(sources) == 0 {
		return nil
	}

	domainToURL := make(map[string]string, len(sources))
	for _, raw := range sources {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		domain := strings.ToLower(u.Host)
		if _, seen := domainToURL[domain]; !seen {
			domainToURL[domain] = raw
		}
	}

	for _, preferred := range manamiSourcePriority {
		if u, ok := domainToURL[preferred]; ok {
			return &u
		}
	}

	return &sources[0]
}

// manamiScore prefers the median statistic; absent score yields nil.
func manamiScore(score *ManamiScore) *float64 {
	if score == nil {
		return nil
	}
	v := score.Median
	return &v
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func statusPtr(s media.Status) *media.Status {
	return &s
}
