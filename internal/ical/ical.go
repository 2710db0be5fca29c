// Package ical renders bill reminders as an RFC 5545 iCalendar feed so they
// can be subscribed to from any calendar app.
package ical

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/teambition/rrule-go"

	"pennywise/internal/finance"
)

const (
	prodID        = "-//pennywise//reminders//EN"
	stampFormat   = "20060102T150405Z"
	maxLineOctets = 75
)

// Event is one all-day calendar entry.
type Event struct {
	UID         string
	Summary     string
	Description string
	Date        time.Time
	// RRule is an RRULE value without the "RRULE:" prefix. Empty for one-off events.
	RRule string
	// AlarmDaysBefore adds a display alarm that many days before Date when positive.
	AlarmDaysBefore int
}

// Calendar is a VCALENDAR with its events.
type Calendar struct {
	Name   string
	Events []Event
	// Stamp is written as DTSTAMP on every event.
	Stamp time.Time
}

// RecurrenceRule returns the RRULE for a series stepping by freq from start.
// The second return value is false when RRULE cannot describe the series
// exactly: monthly and yearly steps clip to short months and then keep the
// clipped day, which BYMONTHDAY cannot express for days after the 28th.
func RecurrenceRule(freq finance.Frequency, start time.Time, until *time.Time) (string, bool, error) {
	start = finance.DateOf(start)

	opt := rrule.ROption{Dtstart: start}
	switch freq {
	case finance.FrequencyDaily:
		opt.Freq = rrule.DAILY
	case finance.FrequencyWeekly:
		opt.Freq = rrule.WEEKLY
	case finance.FrequencyMonthly:
		if start.Day() > 28 {
			return "", false, nil
		}
		opt.Freq = rrule.MONTHLY
	case finance.FrequencyYearly:
		if start.Month() == time.February && start.Day() == 29 {
			return "", false, nil
		}
		opt.Freq = rrule.YEARLY
	default:
		return "", false, fmt.Errorf("%w: %q", finance.ErrUnknownFrequency, string(freq))
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return "", false, fmt.Errorf("build rrule: %w", err)
	}

	s := rule.OrigOptions.RRuleString()
	if until != nil {
		// all-day events take a DATE valued UNTIL
		s += ";UNTIL=" + finance.DateOf(*until).Format(rrule.DateFormat)
	}
	return s, true, nil
}

// Occurrences expands an RRULE anchored at start and returns every date in
// [from, to].
func Occurrences(ruleStr string, start, from, to time.Time) ([]time.Time, error) {
	opt, err := rrule.StrToROption(strings.TrimPrefix(ruleStr, "RRULE:"))
	if err != nil {
		return nil, fmt.Errorf("parse rrule: %w", err)
	}
	opt.Dtstart = finance.DateOf(start)

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}
	return rule.Between(finance.DateOf(from), finance.DateOf(to), true), nil
}

// WriteTo writes the calendar in iCalendar format with CRLF line endings.
func (c *Calendar) WriteTo(w io.Writer) (int64, error) {
	lw := &lineWriter{w: w}

	lw.line("BEGIN:VCALENDAR")
	lw.line("VERSION:2.0")
	lw.line("PRODID:" + prodID)
	lw.line("CALSCALE:GREGORIAN")
	lw.line("METHOD:PUBLISH")
	if c.Name != "" {
		lw.line("X-WR-CALNAME:" + escapeText(c.Name))
	}

	stamp := c.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	for _, e := range c.Events {
		date := finance.DateOf(e.Date)
		lw.line("BEGIN:VEVENT")
		lw.line("UID:" + e.UID)
		lw.line("DTSTAMP:" + stamp.UTC().Format(stampFormat))
		lw.line("DTSTART;VALUE=DATE:" + date.Format(rrule.DateFormat))
		lw.line("DTEND;VALUE=DATE:" + date.AddDate(0, 0, 1).Format(rrule.DateFormat))
		lw.line("SUMMARY:" + escapeText(e.Summary))
		if e.Description != "" {
			lw.line("DESCRIPTION:" + escapeText(e.Description))
		}
		if e.RRule != "" {
			lw.line("RRULE:" + e.RRule)
		}
		if e.AlarmDaysBefore > 0 {
			lw.line("BEGIN:VALARM")
			lw.line("ACTION:DISPLAY")
			lw.line("DESCRIPTION:" + escapeText(e.Summary))
			lw.line(fmt.Sprintf("TRIGGER:-P%dD", e.AlarmDaysBefore))
			lw.line("END:VALARM")
		}
		lw.line("END:VEVENT")
	}

	lw.line("END:VCALENDAR")
	return lw.n, lw.err
}

// String renders the calendar.
func (c *Calendar) String() string {
	var b strings.Builder
	_, _ = c.WriteTo(&b)
	return b.String()
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// lineWriter folds content lines at 75 octets and remembers the first error.
type lineWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (lw *lineWriter) line(s string) {
	for _, part := range fold(s) {
		lw.write(part + "\r\n")
	}
}

func (lw *lineWriter) write(s string) {
	if lw.err != nil {
		return
	}
	n, err := io.WriteString(lw.w, s)
	lw.n += int64(n)
	lw.err = err
}

// fold splits s into physical lines of at most 75 octets, continuation lines
// starting with a single space. Multi-byte runes are never split.
func fold(s string) []string {
	if len(s) <= maxLineOctets {
		return []string{s}
	}

	var parts []string
	var cur strings.Builder
	for _, r := range s {
		if cur.Len()+utf8.RuneLen(r) > maxLineOctets {
			parts = append(parts, cur.String())
			cur.Reset()
			cur.WriteByte(' ')
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
