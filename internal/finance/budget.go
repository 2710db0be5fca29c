package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Period is the length of a budget's spending window.
type Period string

const (
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

// EntryKind distinguishes money coming in from money going out.
type EntryKind string

const (
	KindIncome  EntryKind = "income"
	KindExpense EntryKind = "expense"
)

var hundred = decimal.NewFromInt(100)

// ParsePeriod converts s into a Period, rejecting unknown values.
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
	return p, nil
}

// Valid reports whether p is one of the supported periods.
func (p Period) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

func (p Period) months() int {
	switch p {
	case PeriodMonthly:
		return 1
	case PeriodQuarterly:
		return 3
	case PeriodYearly:
		return 12
	}
	return 0
}

// Window is a half-open date range [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether the calendar date of t lies inside the window.
func (w Window) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(w.Start) && d.Before(w.End)
}

// PeriodWindow returns the window containing asOf for a budget anchored at
// start. Windows are consecutive: 7-day blocks for weekly budgets, and
// month-based blocks (1, 3 or 12 months) clipped like AddMonthsClipped.
func PeriodWindow(start time.Time, period Period, asOf time.Time) (Window, error) {
	if start.IsZero() || asOf.IsZero() {
		return Window{}, ErrZeroDate
	}
	start = DateOf(start)
	asOf = DateOf(asOf)
	if asOf.Before(start) {
		return Window{}, ErrBeforeStart
	}

	if period == PeriodWeekly {
		k := DaysBetween(start, asOf) / 7
		ws := start.AddDate(0, 0, 7*k)
		return Window{Start: ws, End: ws.AddDate(0, 0, 7)}, nil
	}

	n := period.months()
	if n == 0 {
		return Window{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, string(period))
	}

	elapsed := (asOf.Year()-start.Year())*12 + int(asOf.Month()) - int(start.Month())
	k := elapsed / n
	ws := AddMonthsClipped(start, k*n)
	for ws.After(asOf) {
		k--
		ws = AddMonthsClipped(start, k*n)
	}
	we := AddMonthsClipped(start, (k+1)*n)
	for !asOf.Before(we) {
		k++
		ws = we
		we = AddMonthsClipped(start, (k+1)*n)
	}
	return Window{Start: ws, End: we}, nil
}

// BudgetSpec is the part of a budget the accumulator needs.
type BudgetSpec struct {
	CategoryID string
	Amount     decimal.Decimal
	Currency   string
	Period     Period
	StartDate  time.Time
}

// Entry is a single transaction as seen by the accumulator.
type Entry struct {
	Kind       EntryKind
	Amount     decimal.Decimal
	Currency   string
	CategoryID string
	Date       time.Time
}

// ComputeSpent sums the expense entries of the budget's category that fall in
// the period window containing asOf. Entries must already be expressed in the
// budget currency: a matching entry in another currency is an error.
func ComputeSpent(b BudgetSpec, entries []Entry, asOf time.Time) (decimal.Decimal, error) {
	if b.Amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: budget amount %s", ErrNegativeAmount, b.Amount)
	}
	w, err := PeriodWindow(b.StartDate, b.Period, asOf)
	if err != nil {
		return decimal.Zero, err
	}

	spent := decimal.Zero
	for _, e := range entries {
		if e.Kind != KindIncome && e.Kind != KindExpense {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownTransactionType, string(e.Kind))
		}
		if e.Amount.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrNegativeAmount, e.Amount)
		}
		if e.Kind != KindExpense || e.CategoryID != b.CategoryID || !w.Contains(e.Date) {
			continue
		}
		if !strings.EqualFold(e.Currency, b.Currency) {
			return decimal.Zero, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, e.Currency, b.Currency)
		}
		spent = spent.Add(e.Amount)
	}
	return spent, nil
}

// Percentage returns spent as a share of limit, in percent with two decimals.
// A zero limit counts as fully used and yields 100.
func Percentage(spent, limit decimal.Decimal) decimal.Decimal {
	if limit.IsZero() {
		return hundred
	}
	return spent.Div(limit).Mul(hundred).Round(2)
}

// ConvertAmount converts amount between two currencies given their rates
// against a common base (units of currency per one base unit).
func ConvertAmount(amount, fromRate, toRate decimal.Decimal) (decimal.Decimal, error) {
	if !fromRate.IsPositive() || !toRate.IsPositive() {
		return decimal.Zero, ErrInvalidRate
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	if fromRate.Equal(toRate) {
		return amount, nil
	}
	return amount.Div(fromRate).Mul(toRate).Round(4), nil
}
