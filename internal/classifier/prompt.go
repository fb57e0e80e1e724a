package classifier

import (
	"fmt"
	"strings"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
)

const classifySystemRules = `You are analyzing web search results to find real company websites for a business directory.

A result is a company website only when the URL is the business's own site (its homepage or a page on its own domain). Directories, aggregators, listicles ("best X in Y"), social media profiles, review sites, and news articles are NOT company websites.

Category labels must be specific and service-qualified: "Drywall Installation", not "Drywall". The website value must be the bare domain only, without protocol or "www." prefix: "acmedrywall.com", not "https://www.acmedrywall.com".

Respond with a single JSON object and nothing else:
{
  "isCompanyWebsite": <true|false>,
  "companyName": "<official business name, empty if not a company site>",
  "website": "<bare domain, no protocol or www.>",
  "confidence": <0.0-1.0>,
  "city": "<city if identifiable, else empty>",
  "stateProvince": "<state or province if identifiable, else empty>",
  "country": "<country if identifiable, else empty>",
  "categories": ["<business category>", ...],
  "rejectionReason": "<why this is not a company website, empty when it is>"
}`

// BuildPrompt renders the classification prompt for one search result.
// Industry and location context sharpen the model's accept/reject call.
func BuildPrompt(r model.SearchResult, industry, location string) string {
	var b strings.Builder
	b.WriteString(classifySystemRules)
	b.WriteString("\n\nAnalyze this search result:\n")
	fmt.Fprintf(&b, "Title: %s\n", r.Title)
	fmt.Fprintf(&b, "URL: %s\n", r.URL)
	if r.DisplayURL != "" {
		fmt.Fprintf(&b, "Display URL: %s\n", r.DisplayURL)
	}
	if r.Snippet != "" {
		fmt.Fprintf(&b, "Snippet: %s\n", r.Snippet)
	}
	if r.Query != "" {
		fmt.Fprintf(&b, "Found via query: %s\n", r.Query)
	}
	if industry != "" {
		fmt.Fprintf(&b, "\nTarget industry: %s\n", industry)
	}
	if location != "" {
		fmt.Fprintf(&b, "Target location: %s\n", location)
	}
	return b.String()
}

// BuildBatchPrompt renders a single prompt covering all results at once.
// Used only by the legacy quick path; its output is advisory.
func BuildBatchPrompt(results []model.SearchResult, industry, location string) string {
	var b strings.Builder
	b.WriteString(classifySystemRules)
	b.WriteString("\n\nAnalyze ALL of these search results and respond with a JSON array, one object per result in order:\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. Title: %s\n   URL: %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   Snippet: %s\n", r.Snippet)
		}
	}
	if industry != "" {
		fmt.Fprintf(&b, "\nTarget industry: %s\n", industry)
	}
	if location != "" {
		fmt.Fprintf(&b, "Target location: %s\n", location)
	}
	return b.String()
}
