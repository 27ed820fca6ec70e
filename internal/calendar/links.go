package calendar

import (
	"errors"
	"net/url"
	"strconv"
	"time"
	"unicode"

	"github.com/palace-events/events-api/internal/models"
)

const googleCalendarBase = "https://calendar.google.com/calendar/render"

// ErrNoStart is returned when a link is requested for an event without a start.
var ErrNoStart = errors.New("event has no start time")

// GoogleCalendarURL builds the "add to Google Calendar" template link for an event.
func GoogleCalendarURL(event models.Event) (string, error) {
	if !event.HasValidStart() {
		return "", ErrNoStart
	}
	start, end := event.Bounds()

	details := deref(event.Description)
	if details == "" {
		details = "Event from Palace Community Events"
		if link := deref(event.Link); link != "" {
			details += "\nMore info: " + link
		}
	}

	params := url.Values{}
	params.Set("action", "TEMPLATE")
	params.Set("text", event.Title)
	params.Set("dates", BasicISO(start)+"/"+BasicISO(end))
	params.Set("details", details)
	params.Set("location", deref(event.Location))
	params.Set("sf", "true")
	params.Set("output", "xml")
	return googleCalendarBase + "?" + params.Encode(), nil
}

// BasicISO formats t in UTC as YYYYMMDDTHHMMSSZ.
func BasicISO(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// DayPath and GenrePath are the navigation targets of a grid cell and of a genre control.
func DayPath(dateKey string) string {
	return "/days/" + dateKey
}

func GenrePath(dateKey, genre string) string {
	return "/days/" + dateKey + "/" + url.PathEscape(genre)
}

// Colour is the display palette for a genre.
type Colour struct {
	Background string `json:"background"`
	Text       string `json:"text"`
	Border     string `json:"border"`
}

var genreColours = map[string]Colour{
	"music":                  {Background: "#e3f2fd", Text: "#1565c0", Border: "#bbdefb"},
	"performance":            {Background: "#f3e5f5", Text: "#7b1fa2", Border: "#e1bee7"},
	"talk":                   {Background: "#e8f5e8", Text: "#2e7d32", Border: "#c8e6c9"},
	"exhibition":             {Background: "#fff3e0", Text: "#ef6c00", Border: "#ffcc80"},
	"workshop":               {Background: "#e0f2f1", Text: "#00695c", Border: "#b2dfdb"},
	"social":                 {Background: "#fce4ec", Text: "#c2185b", Border: "#f8bbd9"},
	"other":                  {Background: "#f5f5f5", Text: "#424242", Border: "#e0e0e0"},
	models.GenreTicketmaster: {Background: "#614dd1", Text: "#f8f2e9", Border: "#ffecb3"},
}

// GenreColour returns the palette for a genre, "other" for unknown genres.
func GenreColour(genre string) Colour {
	if c, ok := genreColours[genre]; ok {
		return c
	}
	return genreColours["other"]
}

// GenreLabel renders the control label of a genre bucket, e.g. "Music (3)".
func GenreLabel(genre string, count int) string {
	return DisplayGenre(genre) + " (" + strconv.Itoa(count) + ")"
}

// DisplayGenre capitalises a genre for headings.
func DisplayGenre(genre string) string {
	if genre == models.GenreTicketmaster {
		return "Ticketmaster Events"
	}
	if genre == "" {
		return genre
	}
	runes := []rune(genre)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
