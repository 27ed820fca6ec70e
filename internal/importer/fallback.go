package importer

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var fallbackYAML []byte

type fallbackEntry struct {
	ID          string        `yaml:"id"`
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Location    string        `yaml:"location"`
	StartsIn    time.Duration `yaml:"startsIn"`
	Duration    time.Duration `yaml:"duration"`
	Keywords    []string      `yaml:"keywords"`
}

type fallbackCatalogue struct {
	Events []fallbackEntry `yaml:"events"`
}

var (
	catalogueOnce sync.Once
	catalogue     fallbackCatalogue
	catalogueErr  error
)

func loadCatalogue() (fallbackCatalogue, error) {
	catalogueOnce.Do(func() {
		catalogue, catalogueErr = parseCatalogue(fallbackYAML)
	})
	return catalogue, catalogueErr
}

func parseCatalogue(raw []byte) (fallbackCatalogue, error) {
	var cat fallbackCatalogue
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return fallbackCatalogue{}, fmt.Errorf("parse fallback catalogue: %w", err)
	}
	return cat, nil
}

// Fallback renders the placeholder catalogue for a query. Results carry the mock_ id prefix and
// SourceFallback so they cannot be mistaken for live data.
func Fallback(q Query, now time.Time) ([]Candidate, error) {
	cat, err := loadCatalogue()
	if err != nil {
		return nil, err
	}
	location := q.Location
	if location == "" {
		location = "Your City"
	}
	keyword := strings.ToLower(strings.TrimSpace(q.Keyword))

	out := make([]Candidate, 0, len(cat.Events))
	for _, entry := range cat.Events {
		c := Candidate{
			ExternalID:  FallbackIDPrefix + entry.ID,
			Title:       fill(entry.Title, location),
			Description: fill(entry.Description, location),
			Location:    fill(entry.Location, location),
			Start:       now.Add(entry.StartsIn),
			End:         now.Add(entry.StartsIn + entry.Duration),
			Source:      SourceFallback,
		}
		if keyword != "" && !entry.matches(keyword, c) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (e fallbackEntry) matches(keyword string, c Candidate) bool {
	for _, k := range e.Keywords {
		if strings.Contains(strings.ToLower(k), keyword) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(c.Title), keyword) ||
		strings.Contains(strings.ToLower(c.Description), keyword)
}

func fill(s, location string) string {
	return strings.ReplaceAll(s, "{location}", location)
}
