package util

import (
	"strings"

	"golang.org/x/net/html"
)

// skipElements holds elements whose text never counts as post content.
var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// blockElements break words apart when their tags are removed.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "table": true, "tr": true, "td": true,
	"th": true, "figure": true, "figcaption": true, "section": true, "article": true,
}

// HTMLToText strips markup from a post body and returns its visible text.
// Entities are decoded. Block-level tags become whitespace so words on either
// side of them stay separate.
func HTMLToText(body string) string {
	if !strings.ContainsAny(body, "<&") {
		return body
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(body))
	skipDepth := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed input; either way we return what we have.
			return strings.TrimSpace(b.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipElements[tag] && tt == html.StartTagToken {
				skipDepth++
			}
			if blockElements[tag] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipElements[tag] && skipDepth > 0 {
				skipDepth--
			}
			if blockElements[tag] {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// Truncate returns at most n bytes of s without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
