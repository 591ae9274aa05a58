package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"John Doe", "john-doe"},
		{"  The   New York Times ", "the-new-york-times"},
		{"Sci-Tech", "sci-tech"},
		{"José Álvarez", "jose-alvarez"},
		{"uk_news", "uk-news"},
		{"AT&T -- Earnings!", "att-earnings"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestSuffixedSlug(t *testing.T) {
	assert.Equal(t, "john-doe", SuffixedSlug("john-doe", 0))
	assert.Equal(t, "john-doe-2", SuffixedSlug("john-doe", 2))
}

func TestUniqueID(t *testing.T) {
	id := UniqueID("newsapi", "http://x/1")

	assert.True(t, strings.HasPrefix(id, "newsapi_"))
	assert.Len(t, id, len("newsapi_")+32)
	assert.Equal(t, id, UniqueID("newsapi", "http://x/1"))
	assert.NotEqual(t, id, UniqueID("guardian", "http://x/1"))
}

func TestStripByPrefix(t *testing.T) {
	assert.Equal(t, "Jane Smith", StripByPrefix("By Jane Smith"))
	assert.Equal(t, "Jane Smith", StripByPrefix("by  Jane Smith"))
	assert.Equal(t, "Bystander Jones", StripByPrefix("Bystander Jones"))
}

func TestStripEmails(t *testing.T) {
	assert.Equal(t, "Jane Smith", StripEmails("Jane Smith (jane@example.com)"))
	assert.Equal(t, "Jane Smith (Reuters)", StripEmails("Jane Smith (Reuters)"))
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "Markets rallied", CleanDescription("  Markets rallied... "))
	assert.Equal(t, "No ellipsis.", CleanDescription("No ellipsis."))
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Stocks climb", CleanTitle("Stocks climb - The Verge"))
	assert.Equal(t, "Stocks climb - 2024", CleanTitle("Stocks climb - 2024"))
	assert.Equal(t, "Left-right debate", CleanTitle("Left-right debate"))
}

func TestCleanAuthorName(t *testing.T) {
	tests := map[string]string{
		"By Jane Smith":                   "Jane Smith",
		"Author: Jane Smith":              "Jane Smith",
		"Jane Smith (jane@example.com)":   "Jane Smith",
		"Jane Smith | CNN":                "Jane Smith",
		"  By John Doe (jd@x.org) | BBC ": "John Doe",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanAuthorName(in), in)
	}
}

func TestJoinNames(t *testing.T) {
	assert.Equal(t, "A B, C D, E F", JoinNames([]string{"A B", " ", "C D", "E F", "G H"}))
	assert.Equal(t, "", JoinNames(nil))
}

func TestExtractDomain(t *testing.T) {
	assert.Equal(t, "bbc.co.uk", ExtractDomain("https://www.bbc.co.uk/news/1"))
	assert.Equal(t, "x", ExtractDomain("http://x/1"))
	assert.Equal(t, "", ExtractDomain("::not a url"))
}

func TestSourceNameFromDomain(t *testing.T) {
	assert.Equal(t, "BBC", SourceNameFromDomain("www.bbc.co.uk"))
	assert.Equal(t, "TechCrunch", SourceNameFromDomain("techcrunch.com"))
	assert.Equal(t, "The Verge", SourceNameFromDomain("the-verge.com"))
}

func TestDomainFromSourceName(t *testing.T) {
	assert.Equal(t, "theguardian.com", DomainFromSourceName("The Guardian"))
	assert.Equal(t, "arstechnica.com", DomainFromSourceName("Ars Technica"))
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-06-06T10:15:00Z", "2025-06-06T10:15:00Z"},
		{"2025-06-06T10:15:00+0000", "2025-06-06T10:15:00Z"},
		{"2025-06-06T12:15:00+02:00", "2025-06-06T10:15:00Z"},
		{"2025-06-06", "2025-06-06T00:00:00Z"},
	}
	for _, tt := range tests {
		got := ParseTime(tt.in)
		if assert.NotNil(t, got, tt.in) {
			assert.Equal(t, tt.want, got.Format(time.RFC3339), tt.in)
		}
	}

	assert.Nil(t, ParseTime(""))
	assert.Nil(t, ParseTime("yesterday"))
}
