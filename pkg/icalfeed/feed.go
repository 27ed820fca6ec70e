// Package icalfeed renders iCalendar (RFC 5545) documents for calendar subscriptions and downloads.
package icalfeed

import (
	"errors"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ContentType is the media type served with rendered feeds.
const ContentType = "text/calendar; charset=utf-8"

const productID = "-//Palace Community Events//events-api//EN"

// Entry is one VEVENT.
type Entry struct {
	UID         string
	Summary     string
	Description string
	Location    string
	URL         string
	Category    string
	Start       time.Time
	End         time.Time
	Created     time.Time
	Modified    time.Time
}

// Feed describes a calendar document.
type Feed struct {
	Name    string
	Entries []Entry
}

// ErrEmptyUID is returned when an entry has no identifier.
var ErrEmptyUID = errors.New("icalfeed: entry uid is required")

// Render serialises the feed. stamp is written as DTSTAMP on every entry.
func Render(feed Feed, stamp time.Time) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	if feed.Name != "" {
		cal.SetXWRCalName(feed.Name)
	}

	for _, entry := range feed.Entries {
		if entry.UID == "" {
			return nil, ErrEmptyUID
		}
		ev := cal.AddEvent(entry.UID)
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(entry.Start.UTC())
		end := entry.End
		if end.Before(entry.Start) {
			end = entry.Start
		}
		ev.SetEndAt(end.UTC())
		ev.SetSummary(entry.Summary)
		if !entry.Created.IsZero() {
			ev.SetCreatedTime(entry.Created.UTC())
		}
		if !entry.Modified.IsZero() {
			ev.SetModifiedAt(entry.Modified.UTC())
		}
		if entry.Description != "" {
			ev.SetDescription(entry.Description)
		}
		if entry.Location != "" {
			ev.SetLocation(entry.Location)
		}
		if entry.URL != "" {
			ev.SetURL(entry.URL)
		}
		if entry.Category != "" {
			ev.SetProperty(ics.ComponentPropertyCategories, entry.Category)
		}
	}

	return []byte(cal.Serialize()), nil
}
