package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildText(t *testing.T) {
	tests := []struct {
		name     string
		primary  string
		keywords []string
		want     string
	}{
		{
			name:    "no keywords returns primary unchanged",
			primary: "A ninja seeks recognition from his village.",
			want:    "A ninja seeks recognition from his village.",
		},
		{
			name:     "keywords sorted and appended",
			primary:  "A ninja seeks recognition.",
			keywords: []string{"shounen", "action", "martial arts"},
			want:     "A ninja seeks recognition., action, martial arts, shounen",
		},
		{
			name:     "single keyword",
			primary:  "Space bounty hunters.",
			keywords: []string{"sci-fi"},
			want:     "Space bounty hunters., sci-fi",
		},
		{
			name:     "nil keywords",
			primary:  "Bare summary.",
			keywords: nil,
			want:     "Bare summary.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildText(tt.primary, tt.keywords))
		})
	}
}

func TestBuildTextDeterministic(t *testing.T) {
	a := BuildText("summary", []string{"b", "a", "c"})
	b := BuildText("summary", []string{"c", "b", "a"})
	assert.Equal(t, a, b)
}

func TestBuildTextDoesNotMutateInput(t *testing.T) {
	keywords := []string{"z", "a"}
	BuildText("s", keywords)
	assert.Equal(t, []string{"z", "a"}, keywords)
}
