package normalize

import "strings"

var domainNames = map[string]string{
	"bbc":         "BBC",
	"cnn":         "CNN",
	"nytimes":     "The New York Times",
	"theguardian": "The Guardian",
	"techcrunch":  "TechCrunch",
	"engadget":    "Engadget",
	"reuters":     "Reuters",
	"bloomberg":   "Bloomberg",
}

var nameDomains = map[string]string{
	"The Guardian":       "theguardian.com",
	"The New York Times": "nytimes.com",
	"BBC":                "bbc.co.uk",
	"CNN":                "cnn.com",
	"Reuters":            "reuters.com",
}

var domainTrimmer = strings.NewReplacer("www.", "", ".com", "", ".co.uk", "", ".org", "", ".net", "")

// SourceNameFromDomain turns "www.bbc.co.uk" into "BBC" and
// "the-verge.com" into "The Verge".
func SourceNameFromDomain(domain string) string {
	name := domainTrimmer.Replace(domain)
	if known, ok := domainNames[strings.ToLower(name)]; ok {
		return known
	}
	return TitleWords(strings.NewReplacer("-", " ", "_", " ").Replace(name))
}

// DomainFromSourceName guesses a domain for a named source.
func DomainFromSourceName(name string) string {
	if known, ok := nameDomains[name]; ok {
		return known
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "")) + ".com"
}
