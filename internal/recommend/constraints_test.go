package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/mediarec/internal/media"
)

func TestParseHardConstraints(t *testing.T) {
	min := 5.0
	raw := rawHardConstraints{
		ScoreRange: rawScoreRange{Min: &min},
		Type:       rawIncludeExclude{Include: []string{"TV", "MOVIE"}, Exclude: []string{"OVA"}},
		DateRange:  rawDateRange{Start: "2010-04", End: "2020-12"},
		Status:     rawIncludeExclude{Include: []string{"FINISHED"}},
	}

	constraints, err := parseHardConstraints(raw)
	require.NoError(t, err)

	require.NotNil(t, constraints.ScoreRange.Min)
	assert.Equal(t, 5.0, *constraints.ScoreRange.Min)
	assert.Nil(t, constraints.ScoreRange.Max)

	assert.Equal(t, []media.Type{media.TypeTV, media.TypeMovie}, constraints.Type.Include)
	assert.Equal(t, []media.Type{media.TypeOVA}, constraints.Type.Exclude)

	require.NotNil(t, constraints.DateRange.Start)
	assert.Equal(t, time.Date(2010, 4, 1, 0, 0, 0, 0, time.UTC), *constraints.DateRange.Start)
	require.NotNil(t, constraints.DateRange.End)
	assert.Equal(t, time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC), *constraints.DateRange.End)

	assert.Equal(t, []media.Status{media.StatusFinished}, constraints.Status.Include)
	assert.Empty(t, constraints.Status.Exclude)
	assert.False(t, constraints.IsEmpty())
}

func TestParseHardConstraintsEmpty(t *testing.T) {
	constraints, err := parseHardConstraints(rawHardConstraints{})
	require.NoError(t, err)
	assert.True(t, constraints.IsEmpty())
}

func TestParseHardConstraintsLowercaseNames(t *testing.T) {
	constraints, err := parseHardConstraints(rawHardConstraints{
		Type:   rawIncludeExclude{Include: []string{"tv"}},
		Status: rawIncludeExclude{Exclude: []string{"ongoing"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []media.Type{media.TypeTV}, constraints.Type.Include)
	assert.Equal(t, []media.Status{media.StatusOngoing}, constraints.Status.Exclude)
}

func TestParseHardConstraintsRejectsUnknownType(t *testing.T) {
	_, err := parseHardConstraints(rawHardConstraints{
		Type: rawIncludeExclude{Include: []string{"PODCAST"}},
	})
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseHardConstraintsRejectsUnknownStatus(t *testing.T) {
	_, err := parseHardConstraints(rawHardConstraints{
		Status: rawIncludeExclude{Exclude: []string{"PAUSED"}},
	})
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseHardConstraintsRejectsBadDate(t *testing.T) {
	_, err := parseHardConstraints(rawHardConstraints{
		DateRange: rawDateRange{Start: "April 2010"},
	})
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bare json untouched", input: `{"a":1}`, want: `{"a":1}`},
		{name: "plain fences", input: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "json fences", input: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "surrounding whitespace", input: "  {\"a\":1}\n", want: `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.input))
		})
	}
}
