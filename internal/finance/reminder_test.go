package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	today := date(2024, 3, 10)
	tests := []struct {
		name   string
		in     ReminderInput
		status ReminderStatus
		days   int
		notify bool
	}{
		{"overdue", ReminderInput{DueDate: date(2024, 3, 8), NotifyBefore: 3}, StatusOverdue, -2, false},
		{"due_today", ReminderInput{DueDate: today, NotifyBefore: 0}, StatusDueSoon, 0, true},
		{"due_soon_inside_notify_window", ReminderInput{DueDate: date(2024, 3, 12), NotifyBefore: 3}, StatusDueSoon, 2, true},
		{"due_soon_outside_notify_window", ReminderInput{DueDate: date(2024, 3, 13), NotifyBefore: 1}, StatusDueSoon, 3, false},
		{"scheduled_but_notify", ReminderInput{DueDate: date(2024, 3, 17), NotifyBefore: 7}, StatusScheduled, 7, true},
		{"scheduled", ReminderInput{DueDate: date(2024, 4, 1), NotifyBefore: 3}, StatusScheduled, 22, false},
		{"paid", ReminderInput{DueDate: date(2024, 3, 11), NotifyBefore: 3, IsPaid: true}, StatusPaid, 1, false},
		{"paid_past_due", ReminderInput{DueDate: date(2024, 3, 1), IsPaid: true}, StatusPaid, -9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Evaluate(tt.in, today)
			require.NoError(t, err)
			assert.Equal(t, tt.status, ev.Status)
			assert.Equal(t, tt.days, ev.DaysUntil)
			assert.Equal(t, tt.notify, ev.ShouldNotify)
		})
	}

	t.Run("negative_notify_before", func(t *testing.T) {
		_, err := Evaluate(ReminderInput{DueDate: today, NotifyBefore: -1}, today)
		assert.ErrorIs(t, err, ErrInvalidNotifyBefore)
	})
}
