package optimizer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"autotag/pkg/tagger"
)

// DefaultPromptTemplate takes the title, content preview, current tags and
// the tag limit, in that order.
const DefaultPromptTemplate = "Optimize and refine the following tags for a blog post. Remove duplicates, improve relevance, and ensure SEO effectiveness.\n\n" +
	"Title: %s\n\n" +
	"Content preview: %s\n\n" +
	"Current tags: %s\n\n" +
	"Instructions:\n" +
	"- Return maximum %d most relevant tags\n" +
	"- Prioritize SEO value and content relevance\n" +
	"- Remove generic or overly broad terms\n" +
	"- Consolidate similar concepts\n" +
	"- Use proper capitalization\n" +
	"- Return ONLY the tags as a comma-separated list, no explanations\n\n" +
	"Optimized tags:"

// PreviewLength is the number of content characters included in a prompt.
const PreviewLength = 500

var labelPattern = regexp.MustCompile(`(?i)^(tags?:|optimized tags?:)`)

// BuildPrompt renders template with the post data.
func BuildPrompt(template, title, preview string, tags []string, maxTags int) Prompt {
	if template == "" {
		template = DefaultPromptTemplate
	}
	return Prompt{
		Text:    fmt.Sprintf(template, title, preview, strings.Join(tags, ", "), maxTags),
		Title:   title,
		Preview: preview,
		Tags:    tags,
		MaxTags: maxTags,
	}
}

// ParseTags turns a comma-separated model answer into tags. A leading
// "tags:" or "optimized tags:" label is dropped, entries shorter than two or
// longer than 49 characters are skipped, and duplicates are removed.
func ParseTags(response string) []string {
	response = strings.TrimSpace(response)
	response = strings.TrimSpace(labelPattern.ReplaceAllString(response, ""))

	var tags []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(response, ",") {
		tag := strings.TrimSpace(part)
		n := utf8.RuneCountInString(tag)
		if n <= 1 || n >= 50 {
			continue
		}
		tag = tagger.Capitalize(tag)
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
