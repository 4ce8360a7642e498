// Package calendar projects timestamped events onto a Sunday-first month grid.
package calendar

import "time"

// DefaultPreviewLimit is how many events a day cell shows before "+N more".
const DefaultPreviewLimit = 3

// Day is one cell of the grid.
type Day[E any] struct {
	Date           time.Time `json:"date"`
	InCurrentMonth bool      `json:"in_current_month"`
	IsToday        bool      `json:"is_today"`
	Events         []E       `json:"events"`
}

type dayKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time) dayKey {
	y, m, d := t.Date()
	return dayKey{year: y, month: m, day: d}
}

// civil normalizes y/m/d (day and month may overflow) on the proleptic
// calendar, independent of any zone's transitions.
func civil(y int, m time.Month, d int) dayKey {
	return keyOf(time.Date(y, m, d, 12, 0, 0, 0, time.UTC))
}

func (k dayKey) weekday() time.Weekday {
	return time.Date(k.year, k.month, k.day, 12, 0, 0, 0, time.UTC).Weekday()
}

func (k dayKey) addDays(n int) dayKey {
	return civil(k.year, k.month, k.day+n)
}

// startOfDay is the first instant of the civil day k in loc. Where midnight
// is skipped by a DST change, that is the first existing hour of the day.
func startOfDay(k dayKey, loc *time.Location) time.Time {
	t := time.Date(k.year, k.month, k.day, 0, 0, 0, 0, loc)
	for h := 1; keyOf(t) != k && h < 24; h++ {
		t = time.Date(k.year, k.month, k.day, h, 0, 0, 0, loc)
	}
	return t
}

// MonthStart is the start of the first day of t's month, in t's location.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return startOfDay(civil(y, m, 1), t.Location())
}

// MonthEnd is the start of the last day of t's month.
func MonthEnd(t time.Time) time.Time {
	y, m, _ := t.Date()
	return startOfDay(civil(y, m+1, 0), t.Location())
}

// NextMonth steps to the first day of the following month. Stepping from the
// first of the month avoids day overflow (31 Jan never lands in March).
func NextMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return startOfDay(civil(y, m+1, 1), t.Location())
}

func PrevMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return startOfDay(civil(y, m-1, 1), t.Location())
}

// gridKeys returns the civil days of the Sunday on or before the first of
// the month and the Saturday on or after its last day.
func gridKeys(reference time.Time) (first, last dayKey) {
	y, m, _ := reference.Date()
	monthFirst := civil(y, m, 1)
	monthLast := civil(y, m+1, 0)
	first = monthFirst.addDays(-int(monthFirst.weekday()))
	last = monthLast.addDays(6 - int(monthLast.weekday()))
	return first, last
}

// GridRange returns the first and last day shown for reference's month: the
// Sunday on or before the first of the month and the Saturday on or after the
// last day.
func GridRange(reference time.Time) (start, end time.Time) {
	first, last := gridKeys(reference)
	loc := reference.Location()
	return startOfDay(first, loc), startOfDay(last, loc)
}

// Build lays out the month containing reference as whole weeks (28, 35 or 42
// cells) and buckets events into their calendar day. Event timestamps are read
// in reference's location; events keep their input order inside a day and
// events outside the grid are dropped.
func Build[E any](reference time.Time, events []E, timestamp func(E) time.Time, today time.Time) []Day[E] {
	if len(events) > 0 && timestamp == nil {
		panic("calendar: events supplied without a timestamp accessor")
	}
	loc := reference.Location()
	y, m, _ := reference.Date()
	first, last := gridKeys(reference)

	buckets := make(map[dayKey][]E)
	for _, e := range events {
		k := keyOf(timestamp(e).In(loc))
		buckets[k] = append(buckets[k], e)
	}
	todayKey := keyOf(today.In(loc))

	days := make([]Day[E], 0, 42)
	for k := first; ; k = k.addDays(1) {
		bucket := buckets[k]
		if bucket == nil {
			bucket = []E{}
		}
		days = append(days, Day[E]{
			Date:           startOfDay(k, loc),
			InCurrentMonth: k.year == y && k.month == m,
			IsToday:        k == todayKey,
			Events:         bucket,
		})
		if k == last {
			break
		}
	}
	return days
}

// Weeks splits a grid into rows of seven days.
func Weeks[E any](days []Day[E]) [][]Day[E] {
	weeks := make([][]Day[E], 0, (len(days)+6)/7)
	for i := 0; i < len(days); i += 7 {
		end := min(i+7, len(days))
		weeks = append(weeks, days[i:end:end])
	}
	return weeks
}

// Preview returns the first limit events and how many were left out.
func Preview[E any](events []E, limit int) ([]E, int) {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	if len(events) <= limit {
		return events, 0
	}
	return events[:limit:limit], len(events) - limit
}
