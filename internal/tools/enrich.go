package tools

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/seekerhq/seeker/internal/schema"
)

// newsOutlets maps a host fragment to a display name for well-known
// outlets. Unlisted hosts fall back to the bare hostname.
var newsOutlets = map[string]string{
	"reuters.com":    "Reuters",
	"apnews.com":     "Associated Press",
	"bbc.co.uk":      "BBC",
	"bbc.com":        "BBC",
	"cnn.com":        "CNN",
	"nytimes.com":    "The New York Times",
	"theguardian":    "The Guardian",
	"bloomberg.com":  "Bloomberg",
	"xinhuanet.com":  "Xinhua",
	"techcrunch.com": "TechCrunch",
}

var (
	positiveWords = []string{"growth", "success", "breakthrough", "record", "surge", "gain", "improve", "win"}
	negativeWords = []string{"crisis", "decline", "failure", "loss", "drop", "lawsuit", "problem", "risk"}
)

var yearPattern = regexp.MustCompile(`\b20\d{2}\b`)

// enrichResults derives per-type metadata for each hit: news results
// carry the outlet and a sentiment reading, academic results the
// publication year when one appears in the text. Types without extra
// structure return nil.
func enrichResults(t schema.SearchType, results []schema.SearchResult) []map[string]any {
	if len(results) == 0 {
		return nil
	}

	switch t {
	case schema.SearchNews:
		details := make([]map[string]any, len(results))
		for i, r := range results {
			details[i] = map[string]any{
				"source":    newsSource(r.URL),
				"sentiment": sentiment(r.Title + " " + r.Snippet),
			}
		}
		return details
	case schema.SearchAcademic:
		details := make([]map[string]any, len(results))
		for i, r := range results {
			d := map[string]any{}
			if year := extractYear(r.Title + " " + r.Snippet); year != "" {
				d["year"] = year
			}
			details[i] = d
		}
		return details
	default:
		return nil
	}
}

// newsSource resolves a result URL to its outlet name.
func newsSource(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	for fragment, name := range newsOutlets {
		if strings.Contains(host, fragment) {
			return name
		}
	}
	return host
}

// sentiment classifies text as positive, negative or neutral by
// counting keyword hits.
func sentiment(text string) string {
	lower := strings.ToLower(text)

	var positive, negative int
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			negative++
		}
	}

	switch {
	case positive > negative:
		return "positive"
	case negative > positive:
		return "negative"
	default:
		return "neutral"
	}
}

// extractYear returns the first four-digit year found in text, or "".
func extractYear(text string) string {
	return yearPattern.FindString(text)
}
