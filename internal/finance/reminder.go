package finance

import "time"

// ReminderStatus is the display state of a bill reminder.
type ReminderStatus string

const (
	StatusPaid      ReminderStatus = "paid"
	StatusOverdue   ReminderStatus = "overdue"
	StatusDueSoon   ReminderStatus = "dueSoon"
	StatusScheduled ReminderStatus = "scheduled"
)

// DueSoonDays is how many days ahead an unpaid reminder counts as due soon.
const DueSoonDays = 3

// ReminderInput is the part of a reminder the evaluator needs.
type ReminderInput struct {
	DueDate      time.Time
	NotifyBefore int
	IsPaid       bool
}

// ReminderEvaluation is the derived state of a reminder on a given day.
type ReminderEvaluation struct {
	Status       ReminderStatus `json:"status"`
	DaysUntil    int            `json:"daysUntil"`
	ShouldNotify bool           `json:"shouldNotify"`
}

// Evaluate computes the status of r as of today. It has no side effects:
// rolling a paid recurring reminder forward is the caller's job.
func Evaluate(r ReminderInput, today time.Time) (ReminderEvaluation, error) {
	if r.DueDate.IsZero() || today.IsZero() {
		return ReminderEvaluation{}, ErrZeroDate
	}
	if r.NotifyBefore < 0 {
		return ReminderEvaluation{}, ErrInvalidNotifyBefore
	}

	days := DaysBetween(today, r.DueDate)
	ev := ReminderEvaluation{DaysUntil: days}

	switch {
	case r.IsPaid:
		ev.Status = StatusPaid
	case days < 0:
		ev.Status = StatusOverdue
	case days <= DueSoonDays:
		ev.Status = StatusDueSoon
	default:
		ev.Status = StatusScheduled
	}

	ev.ShouldNotify = !r.IsPaid && days >= 0 && days <= r.NotifyBefore
	return ev, nil
}
