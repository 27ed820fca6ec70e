package icalfeed

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProducesParsableCalendar(t *testing.T) {
	start := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	feed := Feed{
		Name: "Palace Community Events",
		Entries: []Entry{
			{
				UID:      "evt-1@palace-events",
				Summary:  "Late Set",
				Location: "Hall A",
				Category: "music",
				URL:      "https://example.com/e/1",
				Start:    start,
				End:      start.Add(2 * time.Hour),
			},
			{UID: "evt-2@palace-events", Summary: "Talk", Start: start, End: start.Add(-time.Hour)},
		},
	}

	body, err := Render(feed, start)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "BEGIN:VCALENDAR"))
	assert.Contains(t, string(body), "X-WR-CALNAME:Palace Community Events")

	cal, err := ics.ParseCalendar(bytes.NewReader(body))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "evt-1@palace-events", first.GetProperty(ics.ComponentPropertyUniqueId).Value)
	assert.Equal(t, "Late Set", first.GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, "Hall A", first.GetProperty(ics.ComponentPropertyLocation).Value)
	gotStart, err := first.GetStartAt()
	require.NoError(t, err)
	assert.True(t, gotStart.Equal(start))
	gotEnd, err := first.GetEndAt()
	require.NoError(t, err)
	assert.True(t, gotEnd.Equal(start.Add(2*time.Hour)))

	secondEnd, err := events[1].GetEndAt()
	require.NoError(t, err)
	assert.True(t, secondEnd.Equal(start))
}

func TestRenderRejectsMissingUID(t *testing.T) {
	_, err := Render(Feed{Entries: []Entry{{Summary: "x"}}}, time.Now())
	assert.ErrorIs(t, err, ErrEmptyUID)
}
