// Package tokenizer splits code and prose identifiers into lowercase search
// tokens, used by both the code text index and the memory lexical index.
package tokenizer

import (
	"regexp"
	"strings"
	"unicode"
)

// shortTokenWhitelist lists single-concept tokens that survive the
// length-2 cutoff despite being short.
var shortTokenWhitelist = map[string]struct{}{
	"id": {},
	"io": {},
	"ok": {},
}

// wordRegex isolates runs of alphanumerics (plus underscore, split out
// separately below), treating every other character as a boundary.
var wordRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// Tokenize splits s into lowercase tokens per the rules:
//  1. split at every non-alphanumeric boundary,
//  2. split a run of alphanumerics at camel-case boundaries while
//     preserving acronyms,
//  3. lowercase everything,
//  4. drop tokens shorter than two characters unless whitelisted.
func Tokenize(s string) []string {
	tokens := make([]string, 0, len(s)/4)
	for _, word := range wordRegex.FindAllString(s, -1) {
		for _, part := range splitUnderscore(word) {
			for _, sub := range splitCamelCase(part) {
				lower := strings.ToLower(sub)
				if len(lower) >= 2 {
					tokens = append(tokens, lower)
					continue
				}
				if _, ok := shortTokenWhitelist[lower]; ok {
					tokens = append(tokens, lower)
				}
			}
		}
	}
	return tokens
}

func splitUnderscore(word string) []string {
	if !strings.Contains(word, "_") {
		return []string{word}
	}
	parts := strings.Split(word, "_")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitCamelCase emits a boundary before an uppercase letter unless the
// previous rune was also uppercase and the letter after it is not
// lowercase — the second clause is what lets an acronym-to-word
// transition like "HTMLParser" split as "HTML"+"Parser" rather than
// gluing the whole run together.
func splitCamelCase(s string) []string {
	if s == "" {
		return nil
	}
	runes := []rune(s)
	var result []string
	var current strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevUpper := unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !prevUpper || nextLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}
