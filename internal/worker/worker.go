// Package worker runs the scheduled jobs: recurring transaction catch-up and
// reminder notifications.
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"pennywise/internal/services"
)

// RecurringProcessor materializes every due recurring occurrence.
type RecurringProcessor interface {
	ProcessAllDue(ctx context.Context, today time.Time) (*services.ProcessResult, error)
}

// ReminderNotifier announces reminders inside their notify window.
type ReminderNotifier interface {
	NotifyDue(ctx context.Context, today time.Time) (int, error)
}

// Report summarizes one tick.
type Report struct {
	Recurring     *services.ProcessResult
	Notifications int
}

// Worker runs both jobs on a fixed interval.
type Worker struct {
	recurring RecurringProcessor
	reminders ReminderNotifier
	interval  time.Duration
	log       *zap.SugaredLogger
	now       func() time.Time
}

// New creates a Worker. A non-positive interval falls back to one hour.
func New(recurring RecurringProcessor, reminders ReminderNotifier, interval time.Duration, log *zap.SugaredLogger) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Worker{
		recurring: recurring,
		reminders: reminders,
		interval:  interval,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() }, // same clock as the services
	}
}

// RunOnce executes both jobs for today. A recurring failure does not stop the
// notification pass; both errors are returned joined.
func (w *Worker) RunOnce(ctx context.Context) (Report, error) {
	today := w.now()
	var report Report

	result, recErr := w.recurring.ProcessAllDue(ctx, today)
	if recErr != nil {
		w.log.Errorw("Recurring processing failed", "error", recErr)
	} else {
		report.Recurring = result
		w.log.Infow("Recurring processing complete",
			"templates", result.TemplatesProcessed,
			"created", result.TransactionsCreated,
			"ended", result.TemplatesEnded,
		)
	}

	sent, notifyErr := w.reminders.NotifyDue(ctx, today)
	if notifyErr != nil {
		w.log.Errorw("Reminder notification failed", "error", notifyErr)
	} else {
		report.Notifications = sent
		w.log.Infow("Reminder notifications complete", "sent", sent)
	}

	return report, errors.Join(recErr, notifyErr)
}

// Run executes an initial pass, then one per interval until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Infow("Worker started", "interval", w.interval.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker stopped")
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// failures are logged by RunOnce; the next tick retries
	_, _ = w.RunOnce(ctx)
}
