// Package finance holds the pure computations behind budgets, recurring
// transactions and bill reminders. Nothing in here touches storage or reads
// the clock: callers pass "today" explicitly and persist the results.
package finance

import "time"

// DateOf drops the time-of-day from t and returns its UTC calendar date at
// UTC midnight. Values in other zones are converted first, so a stored date
// scanned back in the server's local zone keeps its day. All date arithmetic
// in this package works on such values.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from "from" to "to".
// The result is negative when to is before from.
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)) / (24 * time.Hour))
}

// AddMonthsClipped shifts date by the given number of months, keeping the
// day-of-month when it exists in the target month and clipping to the last
// valid day otherwise (Jan 31 + 1 month = Feb 28/29).
func AddMonthsClipped(date time.Time, months int) time.Time {
	d := DateOf(date)
	firstOfTarget := time.Date(d.Year(), d.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)

	day := d.Day()
	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
