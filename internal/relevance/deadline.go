package relevance

import (
	"regexp"
	"strings"
)

// Hearing deadlines show up in a handful of phrasings on regjeringen.no and
// in proposal texts. Patterns run against diacritics-stripped, lowercased
// text, so "høringsfrist" arrives as "horingsfrist".
var deadlinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:horingsfrist|svarfrist|frist)[:\s]+\d{1,2}\.?\s*[a-z]+\s+\d{4}`),
	regexp.MustCompile(`(?:horingsfrist|svarfrist|frist)[:\s]+\d{1,2}\.\d{1,2}\.\d{4}`),
	regexp.MustCompile(`innen\s+\d{1,2}\.?\s*[a-z]+\s+\d{4}`),
	regexp.MustCompile(`trer i kraft\s+\d{1,2}\.?\s*[a-z]+\s+\d{4}`),
}

// ExtractDeadline returns the first deadline phrase found in the text, or
// "" when none is present. Best effort: the phrase is surfaced verbatim in
// the digest for human or model judgment, never parsed into a date here.
func ExtractDeadline(text string) string {
	normalized := strings.ToLower(removeAccents(text))
	for _, pattern := range deadlinePatterns {
		if m := pattern.FindString(normalized); m != "" {
			return m
		}
	}
	return ""
}
