package model

import (
	"net"
	"net/url"
	"strings"
)

// SearchHit is one raw result returned by the external search provider.
type SearchHit struct {
	Title      string `json:"title"`
	URL        string `json:"link"`
	DisplayURL string `json:"displayLink,omitempty"`
	Snippet    string `json:"snippet,omitempty"`
	Query      string `json:"query,omitempty"`   // the query string that produced this hit
	Position   int    `json:"position,omitempty"` // rank within its query, 1-based
}

// Business is one classified search result: the LLM's determination of
// whether the hit is a company website, plus the extracted fields.
// Both accepted (IsCompanyWebsite=true) and rejected classifications are
// kept in the classifier output list.
type Business struct {
	Name             string   `json:"companyName"`
	Website          string   `json:"website"` // normalized bare domain
	IsCompanyWebsite bool     `json:"isCompanyWebsite"`
	Confidence       float64  `json:"confidence"`
	ExtractedFrom    string   `json:"extractedFrom,omitempty"`
	City             string   `json:"city,omitempty"`
	StateProvince    string   `json:"stateProvince,omitempty"`
	Country          string   `json:"country,omitempty"`
	Categories       []string `json:"categories,omitempty"`
	RejectionReason  string   `json:"rejectionReason,omitempty"` // set when IsCompanyWebsite is false
}

// NormalizeWebsite reduces a URL or bare host to a lowercase domain with
// no scheme, leading www., port, path, or query string. This is the
// canonical dedup and lookup key for businesses.
func NormalizeWebsite(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// url.Parse treats "example.com/path" as a path, so force a scheme.
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		// Fall back to manual trimming for inputs url.Parse rejects.
		s = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
		if idx := strings.IndexAny(s, "/?#"); idx >= 0 {
			s = s[:idx]
		}
		if host, _, splitErr := net.SplitHostPort(s); splitErr == nil {
			s = host
		}
		s = strings.TrimPrefix(strings.ToLower(s), "www.")
		return s
	}

	host := u.Host
	if h, _, splitErr := net.SplitHostPort(host); splitErr == nil {
		host = h
	}
	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}
