package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthGridPadsToWeekStart(t *testing.T) {
	// June 2024 starts on a Saturday.
	cells := MonthGrid(2024, time.June, time.Monday, time.UTC)

	require.Len(t, cells, 5+30)
	for i := 0; i < 5; i++ {
		assert.True(t, cells[i].Blank)
	}
	assert.Equal(t, "2024-06-01", cells[5].Key)
	assert.Equal(t, "2024-06-30", cells[len(cells)-1].Key)

	sunday := MonthGrid(2024, time.June, time.Sunday, time.UTC)
	assert.Len(t, sunday, 6+30)
}

func TestMonthGridNoPaddingWhenMonthStartsOnWeekStart(t *testing.T) {
	// July 2024 starts on a Monday.
	cells := MonthGrid(2024, time.July, time.Monday, time.UTC)

	require.Len(t, cells, 31)
	assert.False(t, cells[0].Blank)
	assert.Equal(t, "2024-07-01", cells[0].Key)
}

func TestMonthGridLeapFebruary(t *testing.T) {
	cells := MonthGrid(2024, time.February, time.Monday, time.UTC)
	assert.Equal(t, "2024-02-29", cells[len(cells)-1].Key)
}

func TestShiftMonthWrapsYears(t *testing.T) {
	dec := time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-01", MonthKey(ShiftMonth(dec, 1)))

	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2023-12", MonthKey(ShiftMonth(jan, -1)))
}

func TestParseMonth(t *testing.T) {
	first, err := ParseMonth("2024-06", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Day())
	assert.Equal(t, time.June, first.Month())

	_, err = ParseMonth("June", time.UTC)
	assert.Error(t, err)
}

func TestMonthRange(t *testing.T) {
	first, _ := ParseMonth("2024-02", time.UTC)
	start, end := MonthRange(first)

	assert.Equal(t, "2024-02-01", DateKey(start, time.UTC))
	assert.Equal(t, "2024-02-29", DateKey(end, time.UTC))
}

func TestFirstOfMonth(t *testing.T) {
	mid := time.Date(2024, time.June, 17, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "2024-06-01", DateKey(FirstOfMonth(mid, time.UTC), time.UTC))
}

func TestWeekdayLabels(t *testing.T) {
	assert.Equal(t, []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}, WeekdayLabels(time.Monday))
	assert.Equal(t, "Sun", WeekdayLabels(time.Sunday)[0])
}
