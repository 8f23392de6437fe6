// Package fingerprint computes deterministic identity keys for articles.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"unicode"
)

// themeKeyWords bounds how many normalized words feed the theme key.
const themeKeyWords = 10

// Identity returns the exact-duplicate rejection key for an article:
// SHA-256 over competitor, title and url joined with "|". Pure function;
// changing any single input changes the output.
func Identity(competitorID, title, articleURL string) string {
	h := sha256.Sum256([]byte(competitorID + "|" + title + "|" + articleURL))

	return hex.EncodeToString(h[:])
}

// ThemeKey returns a coarse same-run grouping key, order-insensitive over
// the leading significant words of the normalized title. Two articles
// phrasing one story with shuffled wording map to the same key. The url is
// only consulted when the title normalizes to nothing. Never used for
// cross-run dedup.
func ThemeKey(title, articleURL string) string {
	words := normalizedWords(title)
	if len(words) == 0 {
		words = normalizedWords(hostPath(articleURL))
	}

	sort.Strings(words)

	if len(words) > themeKeyWords {
		words = words[:themeKeyWords]
	}

	h := sha256.Sum256([]byte(strings.Join(words, " ")))

	return hex.EncodeToString(h[:])
}

// normalizedWords lowercases, strips punctuation and splits into words.
func normalizedWords(s string) []string {
	var b strings.Builder

	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.Fields(b.String())
}

func hostPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	return u.Host + u.Path
}
