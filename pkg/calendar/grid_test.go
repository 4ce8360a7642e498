package calendar

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type visit struct {
	ID int
	At time.Time
}

func visitTime(v visit) time.Time { return v.At }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildApril2024(t *testing.T) {
	days := Build[visit](date(2024, time.April, 17), nil, visitTime, date(2024, time.April, 15))

	require.Len(t, days, 35)
	assert.Equal(t, date(2024, time.March, 31), days[0].Date)
	assert.False(t, days[0].InCurrentMonth)
	assert.Equal(t, date(2024, time.April, 1), days[1].Date)
	assert.True(t, days[1].InCurrentMonth)
	assert.Equal(t, date(2024, time.May, 4), days[34].Date)
	assert.False(t, days[34].InCurrentMonth)

	inMonth := 0
	for _, d := range days {
		if d.InCurrentMonth {
			inMonth++
		}
		assert.NotNil(t, d.Events)
	}
	assert.Equal(t, 30, inMonth)
}

func TestBuildGridSizes(t *testing.T) {
	tests := []struct {
		name  string
		month time.Time
		cells int
	}{
		{"february starting on sunday", date(2026, time.February, 10), 28},
		{"april 2024", date(2024, time.April, 1), 35},
		{"march 2024 spans six weeks", date(2024, time.March, 1), 42},
		{"month ending on saturday", date(2024, time.August, 5), 35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := Build[visit](tt.month, nil, visitTime, time.Time{})
			assert.Len(t, days, tt.cells)
		})
	}
}

func TestBuildAlwaysWholeWeeks(t *testing.T) {
	for year := 2020; year <= 2030; year++ {
		for month := time.January; month <= time.December; month++ {
			days := Build[visit](date(year, month, 1), nil, visitTime, time.Time{})
			require.Zero(t, len(days)%7, "%d-%02d", year, month)
			assert.Equal(t, time.Sunday, days[0].Date.Weekday())
			assert.Equal(t, time.Saturday, days[len(days)-1].Date.Weekday())
			assert.Equal(t, MonthEnd(date(year, month, 1)).Day(), countInMonth(days))
		}
	}
}

func countInMonth(days []Day[visit]) int {
	n := 0
	for _, d := range days {
		if d.InCurrentMonth {
			n++
		}
	}
	return n
}

func TestBuildBucketsEventsByDay(t *testing.T) {
	events := []visit{
		{ID: 1, At: time.Date(2024, time.April, 10, 15, 0, 0, 0, time.UTC)},
		{ID: 2, At: time.Date(2024, time.April, 10, 9, 0, 0, 0, time.UTC)},
		{ID: 3, At: time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC)},
		{ID: 4, At: time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)},
	}
	days := Build(date(2024, time.April, 1), events, visitTime, date(2024, time.April, 10))

	byDate := map[time.Time][]int{}
	total := 0
	for _, d := range days {
		for _, e := range d.Events {
			byDate[d.Date] = append(byDate[d.Date], e.ID)
			total++
		}
	}
	assert.Equal(t, []int{1, 2}, byDate[date(2024, time.April, 10)], "input order is kept within a day")
	assert.Equal(t, []int{3}, byDate[date(2024, time.March, 31)])
	assert.Equal(t, 3, total, "events outside the grid are dropped")
}

func TestBuildUsesReferenceLocation(t *testing.T) {
	lima := time.FixedZone("UTC-5", -5*60*60)
	reference := time.Date(2024, time.April, 1, 0, 0, 0, 0, lima)
	late := visit{ID: 9, At: time.Date(2024, time.April, 11, 2, 0, 0, 0, time.UTC)}

	days := Build(reference, []visit{late}, visitTime, time.Date(2024, time.April, 11, 3, 0, 0, 0, time.UTC))
	for _, d := range days {
		if d.Date.Day() == 10 && d.InCurrentMonth {
			assert.Len(t, d.Events, 1)
			assert.True(t, d.IsToday)
		} else {
			assert.Empty(t, d.Events)
			assert.False(t, d.IsToday)
		}
	}
}

func TestBuildMarksToday(t *testing.T) {
	today := time.Date(2024, time.April, 15, 18, 30, 0, 0, time.UTC)
	days := Build[visit](date(2024, time.April, 1), nil, visitTime, today)
	marked := 0
	for _, d := range days {
		if d.IsToday {
			marked++
			assert.Equal(t, date(2024, time.April, 15), d.Date)
		}
	}
	assert.Equal(t, 1, marked)

	other := Build[visit](date(2024, time.June, 1), nil, visitTime, today)
	for _, d := range other {
		assert.False(t, d.IsToday)
	}
}

// Zones whose DST change skips local midnight: the affected day starts at
// 01:00 and must still get exactly one cell.
func TestBuildAcrossMidnightDSTChange(t *testing.T) {
	tests := []struct {
		zone   string
		month  time.Month
		year   int
		cells  int
		first  time.Time
		last   time.Time
		skewed int
	}{
		{"America/Santiago", time.September, 2024, 35, date(2024, time.September, 1), date(2024, time.October, 5), 8},
		{"America/Asuncion", time.October, 2023, 35, date(2023, time.October, 1), date(2023, time.November, 4), 1},
		{"America/Havana", time.March, 2024, 42, date(2024, time.February, 25), date(2024, time.April, 6), 10},
	}
	for _, tt := range tests {
		t.Run(tt.zone, func(t *testing.T) {
			loc, err := time.LoadLocation(tt.zone)
			require.NoError(t, err)
			reference := time.Date(tt.year, tt.month, 15, 12, 0, 0, 0, loc)
			event := visit{ID: 1, At: time.Date(tt.year, tt.month, tt.skewed, 10, 0, 0, 0, loc)}

			days := Build(reference, []visit{event}, visitTime, time.Time{})
			require.Len(t, days, tt.cells)
			assert.Equal(t, tt.first.Format("2006-01-02"), days[0].Date.Format("2006-01-02"))
			assert.Equal(t, tt.last.Format("2006-01-02"), days[len(days)-1].Date.Format("2006-01-02"))

			for i, d := range days {
				assert.Equal(t, time.Weekday(i%7), d.Date.Weekday(), "cell %d", i)
				assert.Equal(t, loc, d.Date.Location())
				if i > 0 {
					assert.Equal(t, days[i-1].Date.AddDate(0, 0, 1).Format("2006-01-02"), d.Date.Format("2006-01-02"))
				}
				if d.InCurrentMonth && d.Date.Day() == tt.skewed {
					assert.Equal(t, 1, d.Date.Hour(), "midnight does not exist that day")
					assert.Len(t, d.Events, 1)
				} else {
					assert.Empty(t, d.Events)
				}
			}

			start, end := GridRange(reference)
			assert.Equal(t, days[0].Date, start)
			assert.Equal(t, days[len(days)-1].Date, end)
		})
	}
}

func TestMonthHelpersOnSkippedMidnight(t *testing.T) {
	asuncion, err := time.LoadLocation("America/Asuncion")
	require.NoError(t, err)

	start := MonthStart(time.Date(2023, time.October, 20, 9, 0, 0, 0, asuncion))
	assert.Equal(t, time.Date(2023, time.October, 1, 1, 0, 0, 0, asuncion), start)
	assert.Equal(t, start, NextMonth(time.Date(2023, time.September, 30, 23, 0, 0, 0, asuncion)))
	assert.Equal(t, 31, MonthEnd(start).Day())
	assert.Equal(t, time.September, PrevMonth(start).Month())
}

func TestMonthStepping(t *testing.T) {
	assert.Equal(t, date(2024, time.February, 1), NextMonth(date(2024, time.January, 31)))
	assert.Equal(t, date(2024, time.February, 1), PrevMonth(date(2024, time.March, 31)))
	assert.Equal(t, date(2025, time.January, 1), NextMonth(date(2024, time.December, 15)))
	assert.Equal(t, date(2023, time.December, 1), PrevMonth(date(2024, time.January, 1)))
}

func TestGridRange(t *testing.T) {
	start, end := GridRange(date(2024, time.April, 20))
	assert.Equal(t, date(2024, time.March, 31), start)
	assert.Equal(t, date(2024, time.May, 4), end)
}

func TestWeeks(t *testing.T) {
	days := Build[visit](date(2024, time.March, 1), nil, visitTime, time.Time{})
	weeks := Weeks(days)
	require.Len(t, weeks, 6)
	for _, w := range weeks {
		assert.Len(t, w, 7)
		assert.Equal(t, time.Sunday, w[0].Date.Weekday())
	}
}

func TestPreview(t *testing.T) {
	shown, more := Preview([]int{1, 2, 3, 4, 5}, 3)
	assert.Equal(t, []int{1, 2, 3}, shown)
	assert.Equal(t, 2, more)

	shown, more = Preview([]int{1, 2}, 0)
	assert.Equal(t, []int{1, 2}, shown)
	assert.Zero(t, more)
}
