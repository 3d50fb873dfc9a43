package convert

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/halcyonlabs/mediarec/internal/media"
)

// MangaUpdatesSeries is one series record from the MangaUpdates API.
type MangaUpdatesSeries struct {
	SeriesID    int64                  `json:"series_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Type        string                 `json:"type"`
	Year        string                 `json:"year"`
	URL         string                 `json:"url"`
	Image       *MangaUpdatesImage     `json:"image"`
	Completed   bool                   `json:"completed"`
	Status      string                 `json:"status"`
	Rating      *float64               `json:"bayesian_rating"`
	Genres      []MangaUpdatesGenre    `json:"genres"`
	Categories  []MangaUpdatesCategory `json:"categories"`
}

// MangaUpdatesImage nests the poster URLs.
type MangaUpdatesImage struct {
	URL struct {
		Original string `json:"original"`
		Thumb    string `json:"thumb"`
	} `json:"url"`
}

// MangaUpdatesGenre wraps a genre name.
type MangaUpdatesGenre struct {
	Genre string `json:"genre"`
}

// MangaUpdatesCategory wraps a category name.
type MangaUpdatesCategory struct {
	Category string `json:"category"`
}

// NormalizeMangaUpdates converts one MangaUpdates series to the normalized
// schema. The returned notes name fields that degraded to nil.
func NormalizeMangaUpdates(series MangaUpdatesSeries) (media.Normalized, []string) {
	var notes []string

	typ, ok := mangaUpdatesType(series.Type)
	if !ok {
		notes = append(notes, fmt.Sprintf("type: unmapped %q", series.Type))
	}

	startDate := mangaUpdatesYearDate(series.Year)
	if startDate == nil && series.Year != "" {
		notes = append(notes, fmt.Sprintf("start_date: unparsable year %q", series.Year))
	}

	status := mangaUpdatesStatus(series.Completed, series.Status)
	if status == nil && series.Status != "" {
		notes = append(notes, fmt.Sprintf("status: unmapped %q", series.Status))
	}

	return media.Normalized{
		Title:       series.Title,
		Type:        typ,
		Summary:     optString(series.Description),
		StartDate:   startDate,
		EndDate:     nil,
		ExternalURL: optString(series.URL),
		ImageURL:    mangaUpdatesImage(series.Image),
		Status:      status,
		Score:       series.Rating,
		Descriptors: mangaUpdatesDescriptors(series.Genres, series.Categories),
	}, notes
}

// mangaUpdatesType maps MangaUpdates' type vocabulary. Both Manhwa and
// Manhua collapse to MANHWA; unmapped values become OTHER.
func mangaUpdatesType(raw string) (media.Type, bool) {
	switch raw {
	case "Artbook":
		return media.TypeArtbook, true
	case "Doujinshi":
		return media.TypeDoujinshi, true
	case "Manga":
		return media.TypeManga, true
	case "Novel":
		return media.TypeNovel, true
	case "Manhwa", "Manhua":
		return media.TypeManhwa, true
	default:
		return media.TypeOther, false
	}
}

// mangaUpdatesYearDate parses the free-form year string into a January 1
// date; anything unparsable degrades to nil.
func mangaUpdatesYearDate(raw string) *time.Time {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || year <= 0 {
		return nil
	}
	d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return &d
}

// mangaUpdatesStatus derives status from the completed flag first, then by
// keyword match against the status string. The status field is free text
// like "Ongoing (?)" or "45 Chapters (Complete)", hence the substring
// matching; only "Cancelled" is matched exactly.
func mangaUpdatesStatus(completed bool, raw string) *media.Status {
	switch {
	case completed:
		return statusPtr(media.StatusFinished)
	case raw == "":
		return nil
	case strings.Contains(raw, "Complete"):
		return statusPtr(media.StatusFinished)
	case strings.Contains(raw, "Ongoing"):
		return statusPtr(media.StatusOngoing)
	case strings.Contains(raw, "Hiatus"):
		return statusPtr(media.StatusSuspended)
	case raw == "Cancelled":
		return statusPtr(media.StatusCancelled)
	default:
		return nil
	}
}

func mangaUpdatesImage(image *MangaUpdatesImage) *string {
	if image == nil || image.URL.Original == "" {
		return nil
	}
	return &image.URL.Original
}

// mangaUpdatesDescriptors merges genre and category names; empty names are
// dropped.
func mangaUpdatesDescriptors(genres []MangaUpdatesGenre, categories []MangaUpdatesCategory) []string {
	descriptors := make([]string, 0, len(genres)+len(categories))
	for _, g := range genres {
		if g.Genre != "" {
			descriptors = append(descriptors, g.Genre)
		}
	}
	for _, c := range categories {
		if c.Category != "" {
			descriptors = append(descriptors, c.Category)
		}
	}
	return descriptors
}
