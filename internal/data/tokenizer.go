package data

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenizer splits raw text into tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// WordTokenizer is a rule-based English word tokenizer. It drops the HTML line
// breaks found in IMDB reviews, splits leading and trailing punctuation into
// their own tokens (runs such as "..." stay together) and separates clitics
// like n't, 's and 're. Case is preserved.
type WordTokenizer struct{}

var lineBreak = regexp.MustCompile(`(?i)<br\s*/?>`)

var clitics = []string{"n't", "'s", "'re", "'ve", "'ll", "'d", "'m"}

// Tokenize implements Tokenizer.
func (WordTokenizer) Tokenize(text string) []string {
	text = lineBreak.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "’", "'")

	var tokens []string
	for _, chunk := range strings.Fields(text) {
		tokens = append(tokens, splitChunk(chunk)...)
	}
	return tokens
}

func isSplitPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func splitChunk(s string) []string {
	var prefix []string
	for s != "" {
		r, _ := utf8.DecodeRuneInString(s)
		if !isSplitPunct(r) {
			break
		}
		run := leadingRun(s, r)
		prefix = append(prefix, run)
		s = s[len(run):]
	}

	var suffix []string
	for s != "" {
		r, _ := utf8.DecodeLastRuneInString(s)
		if !isSplitPunct(r) {
			break
		}
		run := trailingRun(s, r)
		suffix = append([]string{run}, suffix...)
		s = s[:len(s)-len(run)]
	}

	tokens := prefix
	if s != "" {
		tokens = append(tokens, splitClitic(s)...)
	}
	return append(tokens, suffix...)
}

func leadingRun(s string, r rune) string {
	end := 0
	for end < len(s) {
		c, size := utf8.DecodeRuneInString(s[end:])
		if c != r {
			break
		}
		end += size
	}
	return s[:end]
}

func trailingRun(s string, r rune) string {
	start := len(s)
	for start > 0 {
		c, size := utf8.DecodeLastRuneInString(s[:start])
		if c != r {
			break
		}
		start -= size
	}
	return s[start:]
}

func splitClitic(s string) []string {
	lower := strings.ToLower(s)
	for _, c := range clitics {
		if len(s) > len(c) && strings.HasSuffix(lower, c) {
			cut := len(s) - len(c)
			return []string{s[:cut], s[cut:]}
		}
	}
	return []string{s}
}
