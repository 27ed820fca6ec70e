package dto

import (
	"time"

	"github.com/palace-events/events-api/internal/importer"
)

// ImportSearchResponse wraps a search result with a user-facing message.
type ImportSearchResponse struct {
	importer.Result
	Message string `json:"message"`
	Cached  bool   `json:"cached"`
}

// ImportRequest is the payload of POST /imports: a candidate returned by the search.
type ImportRequest struct {
	ExternalID  string     `json:"externalId" validate:"required,max=200"`
	Title       string     `json:"title" validate:"required,max=200"`
	Start       *time.Time `json:"start" validate:"required"`
	End         *time.Time `json:"end"`
	Description string     `json:"description" validate:"max=2000"`
	Link        string     `json:"link" validate:"omitempty,url"`
	Location    string     `json:"location" validate:"max=200"`
	Source      string     `json:"source"`
}

// ScheduledImportReport summarises one saved-search run.
type ScheduledImportReport struct {
	Search     string    `json:"search"`
	Live       bool      `json:"live"`
	Found      int       `json:"found"`
	Imported   int       `json:"imported"`
	Duplicates int       `json:"duplicates"`
	Failed     int       `json:"failed"`
	RanAt      time.Time `json:"ranAt"`
}
