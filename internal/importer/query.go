// Package importer searches third-party event APIs and maps their responses onto calendar events.
package importer

import (
	"strings"
	"time"
)

// Query is a free-text event search.
type Query struct {
	Keyword   string `form:"keyword" json:"keyword"`
	Location  string `form:"location" json:"location"`
	Category  string `form:"category" json:"category"`
	StartDate string `form:"startDate" json:"startDate" validate:"omitempty,datetime=2006-01-02"`
}

// Normalize trims the query and applies defaults for empty keyword and location.
func (q Query) Normalize(defaultKeyword, defaultLocation string) Query {
	q.Keyword = strings.TrimSpace(q.Keyword)
	q.Location = strings.TrimSpace(q.Location)
	q.Category = strings.TrimSpace(q.Category)
	q.StartDate = strings.TrimSpace(q.StartDate)
	if q.Keyword == "" {
		q.Keyword = defaultKeyword
	}
	if q.Location == "" {
		q.Location = defaultLocation
	}
	return q
}

// CacheKey identifies the query for the search cache.
func (q Query) CacheKey() string {
	parts := []string{q.Keyword, q.Location, q.Category, q.StartDate}
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return "import:search:" + strings.Join(parts, "|")
}

// Source labels where a candidate came from.
type Source string

const (
	SourceTicketmaster Source = "ticketmaster"
	SourceFeed         Source = "feed"
	SourceFallback     Source = "fallback"
)

// FallbackIDPrefix marks placeholder records that must never be imported.
const FallbackIDPrefix = "mock_"

// Candidate is a normalized search hit ready to be imported.
type Candidate struct {
	ExternalID  string    `json:"externalId"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description"`
	Link        string    `json:"link,omitempty"`
	Location    string    `json:"location"`
	Source      Source    `json:"source"`
}

// IsPlaceholder reports whether the candidate is locally generated demo data.
func (c Candidate) IsPlaceholder() bool {
	return c.Source == SourceFallback || strings.HasPrefix(c.ExternalID, FallbackIDPrefix)
}

// Result is the outcome of a search.
type Result struct {
	Query      Query       `json:"query"`
	Live       bool        `json:"live"`
	Endpoint   string      `json:"endpoint,omitempty"`
	Candidates []Candidate `json:"events"`
}
