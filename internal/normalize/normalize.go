// Package normalize holds the pure text transforms shared by transformers and
// entity resolution: slugs, unique ids and field cleaning.
package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	byPrefixRe       = regexp.MustCompile(`(?i)^By\s+`)
	authorPrefixRe   = regexp.MustCompile(`(?i)^(By\s+|Author:\s*)`)
	emailParenRe     = regexp.MustCompile(`\s*\([^)]*@[^)]*\)`)
	outletSuffixRe   = regexp.MustCompile(`\s*\|\s*.*$`)
	titleSourceRe    = regexp.MustCompile(` - [A-Z][A-Za-z\s]+$`)
	slugSeparatorsRe = regexp.MustCompile(`[-\s]+`)
)

// Slug lowercases s, folds accents to ASCII and joins words with "-".
func Slug(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	folded = strings.ReplaceAll(folded, "_", "-")
	folded = strings.ReplaceAll(folded, "@", "-at-")

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}

	return strings.Trim(slugSeparatorsRe.ReplaceAllString(b.String(), "-"), "-")
}

// SuffixedSlug returns base for n == 0 and base-n otherwise.
func SuffixedSlug(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// UniqueID hashes the provider-specific natural key under the provider tag.
func UniqueID(provider, naturalKey string) string {
	sum := md5.Sum([]byte(naturalKey))
	return provider + "_" + hex.EncodeToString(sum[:])
}

// StripByPrefix removes a leading "By " from a byline.
func StripByPrefix(s string) string {
	return byPrefixRe.ReplaceAllString(s, "")
}

// StripEmails removes parenthesised email addresses, "Jane (jane@x.com)".
func StripEmails(s string) string {
	return emailParenRe.ReplaceAllString(s, "")
}

// CleanDescription trims and drops a trailing ellipsis.
func CleanDescription(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), "...")
}

// CleanTitle drops a trailing " - Source Name" suffix.
func CleanTitle(s string) string {
	return titleSourceRe.ReplaceAllString(s, "")
}

// CleanAuthorName is applied once when an author row is created.
func CleanAuthorName(s string) string {
	s = strings.TrimSpace(s)
	s = authorPrefixRe.ReplaceAllString(s, "")
	s = emailParenRe.ReplaceAllString(s, "")
	s = outletSuffixRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// JoinNames joins up to the first three non-empty names with ", ".
func JoinNames(names []string) string {
	kept := make([]string, 0, 3)
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		kept = append(kept, n)
		if len(kept) == 3 {
			break
		}
	}
	return strings.Join(kept, ", ")
}

// ExtractDomain returns the URL host without a "www." prefix.
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// Capitalize upper-cases the first letter of s.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// TitleWords capitalizes every space separated word.
func TitleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = Capitalize(w)
	}
	return strings.Join(words, " ")
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02",
}

// ParseTime accepts the timestamp formats used by the news providers and
// returns nil for blank or unparsable input.
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
