// Package analysis orchestrates the full pipeline for one company:
// signal collection, fusion, gates, scoring, tier assignment, and
// snapshot persistence. It owns idempotency: identical identities map
// to one fingerprint, concurrent callers coalesce onto one computation,
// and fresh snapshots are served without recompute.
package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are trailing corporate-form tokens stripped before
// fingerprinting so "Acme Inc." and "Acme LLC" identify the same company.
var legalSuffixes = map[string]bool{
	"inc":          true,
	"incorporated": true,
	"llc":          true,
	"ltd":          true,
	"limited":      true,
	"corp":         true,
	"corporation":  true,
	"co":           true,
	"gmbh":         true,
	"plc":          true,
	"sa":           true,
	"srl":          true,
}

// Fingerprint derives the stable identity key for a company from its
// name and URLs. Equivalent spellings (case, accents, legal suffixes,
// URL scheme and trailing slash) produce the same key.
func Fingerprint(identity, websiteURL, networkURL string) string {
	h := sha256.New()
	h.Write([]byte(normalizeIdentity(identity)))
	h.Write([]byte{0})
	h.Write([]byte(normalizeURL(websiteURL)))
	h.Write([]byte{0})
	h.Write([]byte(normalizeURL(networkURL)))
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeIdentity lower-cases, folds to NFKC, strips diacritics,
// collapses whitespace, and removes trailing legal suffixes.
func normalizeIdentity(identity string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFKC)
	folded, _, err := transform.String(t, identity)
	if err != nil {
		folded = identity
	}
	folded = strings.ToLower(folded)

	words := strings.Fields(folded)
	for len(words) > 0 {
		last := strings.Trim(words[len(words)-1], ".,")
		if !legalSuffixes[last] {
			break
		}
		words = words[:len(words)-1]
	}
	for i, w := range words {
		words[i] = strings.Trim(w, ".,")
	}
	return strings.Join(words, " ")
}

// normalizeURL reduces a URL to lower-cased host+path without scheme,
// www prefix, or trailing slash. Unparseable input falls back to a
// trimmed lower-case form rather than being dropped.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	host := strings.ToLower(strings.TrimPrefix(u.Host, "www."))
	path := strings.TrimRight(strings.ToLower(u.Path), "/")
	return host + path
}
