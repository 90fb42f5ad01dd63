package taxonomy

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeText lowercases, maps '_' and '-' to spaces and collapses whitespace.
func NormalizeText(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("_", " ", "-", " ", "/", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// inflections are the word endings a keyword may carry and still match.
var inflections = map[string]bool{
	"":     true,
	"s":    true,
	"es":   true,
	"er":   true,
	"ers":  true,
	"ing":  true,
	"ed":   true,
	"al":   true,
	"ist":  true,
	"ists": true,
	"ic":   true,
}

// ContainsKeyword reports whether keyword occurs in text starting at a word
// boundary and ending at one, allowing a short inflection ("farm" matches
// "farmers" but "art" does not match "start" or "article"). Both arguments
// are compared case-insensitively.
func ContainsKeyword(text, keyword string) bool {
	text = strings.ToLower(text)
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return false
	}

	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], keyword)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(keyword)
		if startsWord(text, start) && inflections[trailingWord(text, end)] {
			return true
		}
		offset = start + 1
	}
	return false
}

func startsWord(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func trailingWord(text string, end int) string {
	j := end
	for j < len(text) {
		r, size := utf8.DecodeRuneInString(text[j:])
		if !isWordRune(r) {
			break
		}
		j += size
	}
	return text[end:j]
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ContainsAny returns the keywords found in text, in keyword order.
func ContainsAny(text string, keywords []string) []string {
	var hits []string
	for _, kw := range keywords {
		if ContainsKeyword(text, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}
