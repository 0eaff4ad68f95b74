package tagger

import (
	"bufio"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinTokenLength is the shortest letter run that counts as a word.
const MinTokenLength = 2

// Tokenize splits text into lowercase runs of letters. Runs shorter than
// MinTokenLength are dropped. Digits, punctuation and whitespace separate
// tokens.
func Tokenize(text string) []string {
	var tokens []string
	start := -1
	runes := 0
	flush := func(end int) {
		if start >= 0 && runes >= MinTokenLength {
			tokens = append(tokens, strings.ToLower(text[start:end]))
		}
		start = -1
		runes = 0
	}

	for i, r := range text {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			runes++
			continue
		}
		flush(i)
	}
	flush(len(text))
	return tokens
}

// ParseExclusionList reads a user-supplied exclusion list: one word per line,
// case-folded, surrounding whitespace trimmed, blank lines dropped.
func ParseExclusionList(list string) []string {
	var words []string
	sc := bufio.NewScanner(strings.NewReader(list))
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// Capitalize upper-cases the first letter of s and leaves the rest as is.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
