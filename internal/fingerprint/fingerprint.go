// Package fingerprint derives the deterministic dedup identity of a
// candidate item. Two items describing the same real-world announcement
// must collapse to the same fingerprint even across tracking-parameter,
// whitespace, or casing differences.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"RegSonar/internal/domain"
)

// Query parameters that carry campaign/click tracking, never identity.
var trackingParams = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"msclkid": {},
	"yclid":   {},
}

var trackingPrefixes = []string{"utm_", "mc_", "pk_"}

// FromItem computes the fingerprint for a candidate item. Identity is the
// normalized (source, URL) pair; when the URL is unusable it falls back to
// (source, normalized title, published date).
func FromItem(item domain.CandidateItem) string {
	if canonical := CanonicalURL(item.URL); canonical != "" {
		return digest(item.SourceID + "|" + canonical)
	}

	day := "-"
	if item.PublishedAt != nil {
		day = item.PublishedAt.UTC().Format("2006-01-02")
	}
	return digest(item.SourceID + "|" + normalizeTitle(item.Title) + "|" + day)
}

// CanonicalURL normalizes a URL for identity comparison: lowercased scheme
// and host, default ports and fragments dropped, tracking parameters
// removed, remaining query keys sorted, trailing slash trimmed. Returns ""
// when the input cannot serve as an identity.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.Scheme == "" {
		return ""
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimSuffix(u.Host, ":80")
	u.Host = strings.TrimSuffix(u.Host, ":443")
	u.Fragment = ""

	query := u.Query()
	for key := range query {
		if isTrackingParam(key) {
			delete(query, key)
		}
	}
	u.RawQuery = query.Encode() // Encode sorts keys

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String()
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	if _, ok := trackingParams[key]; ok {
		return true
	}
	for _, prefix := range trackingPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func normalizeTitle(title string) string {
	title = strings.ToLower(removeAccents(title))
	return strings.Join(strings.Fields(title), " ")
}

func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}
