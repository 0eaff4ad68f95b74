package optimizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTags(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want []string
	}{
		{name: "Plain list", in: "hiking, mountain trails, gear", want: []string{"Hiking", "Mountain trails", "Gear"}},
		{name: "Tags label", in: "Tags: Hiking, Gear", want: []string{"Hiking", "Gear"}},
		{name: "Optimized label", in: "  optimized tags: hiking ,gear  ", want: []string{"Hiking", "Gear"}},
		{name: "Singular label", in: "TAG: Solo", want: []string{"Solo"}},
		{name: "Drops short and long", in: "a, ok, " + strings.Repeat("x", 50), want: []string{"Ok"}},
		{name: "Keeps 49 characters", in: strings.Repeat("y", 49), want: []string{strings.Repeat("Y", 1) + strings.Repeat("y", 48)}},
		{name: "Deduplicates after capitalizing", in: "gear, Gear, gear", want: []string{"Gear"}},
		{name: "Empty", in: "  ", want: nil},
		{name: "Only commas", in: ",,,", want: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseTags(tc.in))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("", "My Title", "preview text", []string{"Hiking", "Gear"}, 7)

	assert.Contains(t, p.Text, "Title: My Title\n\n")
	assert.Contains(t, p.Text, "Content preview: preview text\n\n")
	assert.Contains(t, p.Text, "Current tags: Hiking, Gear\n\n")
	assert.Contains(t, p.Text, "- Return maximum 7 most relevant tags\n")
	assert.True(t, strings.HasSuffix(p.Text, "Optimized tags:"))
	assert.Equal(t, 7, p.MaxTags)
	assert.Equal(t, []string{"Hiking", "Gear"}, p.Tags)

	custom := BuildPrompt("%s|%s|%s|%d", "T", "P", []string{"a", "b"}, 3)
	assert.Equal(t, "T|P|a, b|3", custom.Text)
}
