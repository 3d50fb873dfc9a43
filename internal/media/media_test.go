package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		raw     string
		want    Type
		wantErr bool
	}{
		{raw: "TV", want: TypeTV},
		{raw: "manga", want: TypeManga},
		{raw: " Movie ", want: TypeMovie},
		{raw: "podcast", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, "type %q", tt.raw)
			continue
		}
		require.NoError(t, err, "type %q", tt.raw)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus("finished")
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, got)

	_, err = ParseStatus("paused")
	assert.Error(t, err)
}

func TestNaturalKey(t *testing.T) {
	url := "https://example.org/a"

	withURL := NewNaturalKey("Monster", TypeManga, &url)
	withoutURL := NewNaturalKey("Monster", TypeManga, nil)

	assert.NotEqual(t, withURL, withoutURL)
	assert.Equal(t, withoutURL, NewNaturalKey("Monster", TypeManga, nil),
		"nil URL keys compare equal")

	record := Record{Title: "Monster", Type: TypeManga, ExternalURL: &url}
	assert.Equal(t, withURL, record.Key())

	entry := Normalized{Title: "Monster", Type: TypeManga, ExternalURL: &url}
	assert.Equal(t, record.Key(), entry.Key())
}

func TestNormalizeDescriptorName(t *testing.T) {
	assert.Equal(t, "slice of life", NormalizeDescriptorName("  Slice of Life "))
	assert.Equal(t, "", NormalizeDescriptorName("   "))
}
