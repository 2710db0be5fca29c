package finance

import (
	"fmt"
	"time"
)

// Frequency is the step between two occurrences of a recurring series.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// maxCatchUpSteps bounds CatchUp so a corrupt start date cannot spin forever.
const maxCatchUpSteps = 10000

// ParseFrequency converts s into a Frequency, rejecting unknown values.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFrequency, s)
	}
	return f, nil
}

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// Step returns the calendar date exactly one unit of f after d.
func (f Frequency) Step(d time.Time) (time.Time, error) {
	d = DateOf(d)
	switch f {
	case FrequencyDaily:
		return d.AddDate(0, 0, 1), nil
	case FrequencyWeekly:
		return d.AddDate(0, 0, 7), nil
	case FrequencyMonthly:
		return AddMonthsClipped(d, 1), nil
	case FrequencyYearly:
		return AddMonthsClipped(d, 12), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownFrequency, string(f))
}

// NextOccurrence is the result of advancing a series by one step: either the
// next due date or the fact that the series has ended.
type NextOccurrence struct {
	NextDueDate time.Time
	Ended       bool
}

// Advance moves current forward by one unit of freq. When the computed date
// falls after endDate the series is reported as ended instead.
func Advance(current time.Time, freq Frequency, endDate *time.Time) (NextOccurrence, error) {
	if current.IsZero() {
		return NextOccurrence{}, ErrZeroDate
	}
	next, err := freq.Step(current)
	if err != nil {
		return NextOccurrence{}, err
	}
	if endDate != nil && next.After(DateOf(*endDate)) {
		return NextOccurrence{Ended: true}, nil
	}
	return NextOccurrence{NextDueDate: next}, nil
}

// CatchUpResult lists the occurrences that became due, in order, and where the
// series stands afterwards.
type CatchUpResult struct {
	Occurrences []time.Time
	// NextDueDate is the first date after today still to come. When Ended is
	// set it holds the last occurrence of the series instead.
	NextDueDate time.Time
	Ended       bool
}

// CatchUp walks a series forward one step at a time from nextDue, collecting
// every occurrence dated on or before today. Each collected date must be
// materialized by the caller; no step is ever skipped.
func CatchUp(nextDue time.Time, freq Frequency, endDate *time.Time, today time.Time) (CatchUpResult, error) {
	if nextDue.IsZero() {
		return CatchUpResult{}, ErrZeroDate
	}
	if !freq.Valid() {
		return CatchUpResult{}, fmt.Errorf("%w: %q", ErrUnknownFrequency, string(freq))
	}

	current := DateOf(nextDue)
	today = DateOf(today)

	var res CatchUpResult
	if endDate != nil && current.After(DateOf(*endDate)) {
		res.NextDueDate = current
		res.Ended = true
		return res, nil
	}

	for !current.After(today) {
		if len(res.Occurrences) >= maxCatchUpSteps {
			return CatchUpResult{}, ErrTooManyOccurrences
		}
		res.Occurrences = append(res.Occurrences, current)

		next, err := Advance(current, freq, endDate)
		if err != nil {
			return CatchUpResult{}, err
		}
		if next.Ended {
			res.NextDueDate = current
			res.Ended = true
			return res, nil
		}
		current = next.NextDueDate
	}

	res.NextDueDate = current
	return res, nil
}
