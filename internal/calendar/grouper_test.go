package calendar

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/palace-events/events-api/internal/models"
)

func ts(t *testing.T, raw string) *time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, raw)
	require.NoError(t, err)
	return &v
}

func event(t *testing.T, id, genre, start, end string) models.Event {
	e := models.Event{ID: id, Title: "Event " + id, Genre: genre}
	if start != "" {
		e.Start = ts(t, start)
	}
	if end != "" {
		e.End = ts(t, end)
	}
	return e
}

func TestGroupMultiDayEventAppearsOnEveryDate(t *testing.T) {
	g := NewGrouper(time.UTC, nil)
	idx := g.Group([]models.Event{
		event(t, "fest", "music", "2024-06-01T10:00:00Z", "2024-06-03T18:00:00Z"),
	})

	require.Len(t, idx, 3)
	for _, key := range []string{"2024-06-01", "2024-06-02", "2024-06-03"} {
		require.Contains(t, idx, key)
		assert.Len(t, idx[key]["music"], 1)
	}
}

func TestGroupSingleDayEventAppearsOnce(t *testing.T) {
	g := NewGrouper(time.UTC, nil)
	idx := g.Group([]models.Event{
		event(t, "talk", "talk", "2024-06-05T09:00:00Z", "2024-06-05T11:00:00Z"),
	})

	assert.Len(t, idx, 1)
	assert.Len(t, idx["2024-06-05"]["talk"], 1)
}

func TestGroupCrossesMidnight(t *testing.T) {
	g := NewGrouper(time.UTC, nil)
	idx := g.Group([]models.Event{
		event(t, "late", "music", "2024-06-01T23:00:00Z", "2024-06-02T01:00:00Z"),
	})

	assert.Len(t, idx["2024-06-01"]["music"], 1)
	assert.Len(t, idx["2024-06-02"]["music"], 1)
	assert.Len(t, idx, 2)
}

func TestGroupUsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	g := NewGrouper(loc, nil)
	idx := g.Group([]models.Event{
		event(t, "late", "social", "2024-06-01T23:00:00Z", "2024-06-01T23:30:00Z"),
	})

	assert.Contains(t, idx, "2024-06-02")
	assert.NotContains(t, idx, "2024-06-01")
}

func TestGroupDropsEventsWithoutStart(t *testing.T) {
	g := NewGrouper(time.UTC, nil)
	idx := g.Group([]models.Event{
		event(t, "broken", "music", "", "2024-06-02T01:00:00Z"),
		event(t, "ok", "music", "2024-06-02T00:00:00Z", ""),
	})

	require.Len(t, idx, 1)
	assert.Equal(t, "ok", idx["2024-06-02"]["music"][0].ID)
}

func TestGroupDefaultsEmptyGenre(t *testing.T) {
	g := NewGrouper(time.UTC, nil)
	idx := g.Group([]models.Event{event(t, "a", "", "2024-06-02T10:00:00Z", "")})

	assert.Len(t, idx["2024-06-02"][models.GenreUncategorized], 1)
}

func TestGroupInvertedEndCollapsesToStartDate(t *testing.T) {
	g := NewGrouper(time.UTC, nil)
	idx := g.Group([]models.Event{
		event(t, "a", "talk", "2024-06-05T10:00:00Z", "2024-06-01T10:00:00Z"),
	})

	assert.Len(t, idx, 1)
	assert.Contains(t, idx, "2024-06-05")
}

func TestGroupIsOrderIndependent(t *testing.T) {
	events := []models.Event{
		event(t, "a", "music", "2024-06-01T10:00:00Z", "2024-06-02T10:00:00Z"),
		event(t, "b", "music", "2024-06-01T08:00:00Z", "2024-06-01T09:00:00Z"),
		event(t, "c", "talk", "2024-06-02T08:00:00Z", "2024-06-02T09:00:00Z"),
		event(t, "d", "music", "2024-06-01T10:00:00Z", "2024-06-01T12:00:00Z"),
	}
	reversed := make([]models.Event, len(events))
	for i, e := range events {
		reversed[len(events)-1-i] = e
	}

	g := NewGrouper(time.UTC, nil)
	assert.Equal(t, g.Group(events), g.Group(reversed))

	ids := []string{}
	for _, e := range g.Group(events)["2024-06-01"]["music"] {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"b", "a", "d"}, ids)
}

func TestGenresSorted(t *testing.T) {
	g := NewGrouper(time.UTC, nil)
	idx := g.Group([]models.Event{
		event(t, "a", "workshop", "2024-06-01T10:00:00Z", ""),
		event(t, "b", "music", "2024-06-01T10:00:00Z", ""),
	})

	assert.Equal(t, []string{"music", "workshop"}, idx.Genres("2024-06-01"))
	assert.Empty(t, idx.Genres("2024-06-02"))
}

func TestOccursOn(t *testing.T) {
	e := event(t, "a", "music", "2024-06-01T23:00:00Z", "2024-06-03T01:00:00Z")

	assert.False(t, OccursOn(e, "2024-05-31", time.UTC))
	assert.True(t, OccursOn(e, "2024-06-01", time.UTC))
	assert.True(t, OccursOn(e, "2024-06-02", time.UTC))
	assert.True(t, OccursOn(e, "2024-06-03", time.UTC))
	assert.False(t, OccursOn(e, "2024-06-04", time.UTC))
	assert.False(t, OccursOn(e, "not-a-date", time.UTC))
	assert.False(t, OccursOn(models.Event{}, "2024-06-01", time.UTC))
}

func TestDateKeyRoundTrip(t *testing.T) {
	day, err := ParseDateKey("2024-02-29", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", DateKey(day, time.UTC))

	_, err = ParseDateKey("2024-02-30", time.UTC)
	assert.Error(t, err)
}

func TestDayBounds(t *testing.T) {
	day, _ := ParseDateKey("2024-06-01", time.UTC)
	start, end := DayBounds(day, time.UTC)

	assert.Equal(t, "2024-06-01T00:00:00Z", start.Format(time.RFC3339))
	assert.Equal(t, "2024-06-01", DateKey(end, time.UTC))
	assert.Equal(t, "2024-06-02T00:00:00Z", end.Add(time.Nanosecond).Format(time.RFC3339))
}

func TestFilterVisible(t *testing.T) {
	events := []models.Event{
		event(t, "a", models.GenreTicketmaster, "2024-06-01T10:00:00Z", ""),
		event(t, "b", "music", "2024-06-01T10:00:00Z", ""),
	}

	anon := FilterVisible(events, models.Viewer{})
	require.Len(t, anon, 1)
	assert.Equal(t, "b", anon[0].ID)

	signedIn := FilterVisible(events, models.Viewer{UserID: "u1"})
	assert.Len(t, signedIn, 2)
}

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestGroupAcrossSkippedMidnight(t *testing.T) {
	cases := []struct {
		zone, start, end string
		want             []string
	}{
		// Clocks jumped from 00:00 to 01:00 on 2018-11-04.
		{"America/Sao_Paulo", "2018-11-03T12:00:00-03:00", "2018-11-05T12:00:00-02:00", []string{"2018-11-03", "2018-11-04", "2018-11-05"}},
		// Clocks jumped from 00:00 to 01:00 on 2023-03-26.
		{"Asia/Beirut", "2023-03-25T12:00:00+02:00", "2023-03-27T12:00:00+03:00", []string{"2023-03-25", "2023-03-26", "2023-03-27"}},
	}
	for _, tc := range cases {
		t.Run(tc.zone, func(t *testing.T) {
			loc := mustZone(t, tc.zone)
			e := event(t, "a", "music", tc.start, tc.end)

			idx := NewGrouper(loc, nil).Group([]models.Event{e})
			var keys []string
			for key := range idx {
				keys = append(keys, key)
			}
			assert.ElementsMatch(t, tc.want, keys)
			for _, key := range tc.want {
				assert.True(t, OccursOn(e, key, loc), key)
			}
		})
	}
}

func TestDayBoundsOnSkippedMidnight(t *testing.T) {
	loc := mustZone(t, "America/Sao_Paulo")
	day, err := ParseDateKey("2018-11-04", loc)
	require.NoError(t, err)

	start, end := DayBounds(day, loc)
	assert.Equal(t, "2018-11-04", DateKey(start, loc))
	assert.Equal(t, "2018-11-04", DateKey(end, loc))
	assert.Equal(t, "2018-11-05", DateKey(end.Add(time.Nanosecond), loc))
}

func TestGroupWithinClipsLongEvents(t *testing.T) {
	g := NewGrouper(time.UTC, nil)
	events := []models.Event{
		event(t, "forever", "music", "2024-01-01T10:00:00Z", "9999-12-31T10:00:00Z"),
		event(t, "june", "art", "2024-06-10T10:00:00Z", "2024-06-11T10:00:00Z"),
		event(t, "july", "art", "2024-07-10T10:00:00Z", ""),
	}
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)

	idx := g.GroupWithin(events, from, to)
	assert.Len(t, idx, 30)
	assert.Contains(t, idx, "2024-06-01")
	assert.Contains(t, idx, "2024-06-30")
	assert.NotContains(t, idx, "2024-07-01")

	full := g.Group(events[1:])
	assert.Equal(t, full["2024-06-10"]["art"], idx["2024-06-10"]["art"])
	assert.Equal(t, full["2024-06-11"]["art"], idx["2024-06-11"]["art"])
}

func TestGroupLogsDroppedEventsQuietly(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	g := NewGrouper(time.UTC, zap.New(core))

	for i := 0; i < 3; i++ {
		g.Group([]models.Event{{ID: "broken", Title: "No start"}})
	}

	require.Equal(t, 3, logs.Len())
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
}
