package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "Plain text untouched", in: "Weather is great", want: "Weather is great"},
		{name: "Paragraphs separated", in: "<p>Hiking</p><p>Trails</p>", want: "Hiking  Trails"},
		{name: "Inline tags joined", in: "<strong>Hik</strong>ing", want: "Hiking"},
		{name: "Entities decoded", in: "Salt &amp; pepper", want: "Salt & pepper"},
		{name: "Scripts dropped", in: "<p>Hello</p><script>var x = 1;</script>", want: "Hello"},
		{name: "Empty", in: "", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTMLToText(tc.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "", Truncate("abc", 0))
	// "é" is two bytes; cutting in the middle backs off to the rune start.
	assert.Equal(t, "caf", Truncate("café", 4))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "trail-running", Slugify("Trail Running"))
	assert.Equal(t, "c-tips-2024", Slugify("  C++ tips, 2024! "))
	assert.Equal(t, "café", Slugify("Café"))
	assert.Equal(t, "", Slugify("---"))
}
