package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pennywise/internal/services"
)

type fakeRecurring struct {
	calls atomic.Int32
	today time.Time
	err   error
}

func (f *fakeRecurring) ProcessAllDue(_ context.Context, today time.Time) (*services.ProcessResult, error) {
	f.calls.Add(1)
	f.today = today
	if f.err != nil {
		return nil, f.err
	}
	return &services.ProcessResult{TemplatesProcessed: 2, TransactionsCreated: 5}, nil
}

type fakeNotifier struct {
	calls atomic.Int32
	err   error
}

func (f *fakeNotifier) NotifyDue(_ context.Context, _ time.Time) (int, error) {
	f.calls.Add(1)
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

func TestRunOnce(t *testing.T) {
	t.Run("runs both jobs for today", func(t *testing.T) {
		rec, rem := &fakeRecurring{}, &fakeNotifier{}
		w := New(rec, rem, time.Minute, nil)
		fixed := time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC)
		w.now = func() time.Time { return fixed }

		report, err := w.RunOnce(context.Background())

		require.NoError(t, err)
		assert.Equal(t, fixed, rec.today)
		assert.Equal(t, 5, report.Recurring.TransactionsCreated)
		assert.Equal(t, 3, report.Notifications)
	})

	t.Run("recurring failure still notifies", func(t *testing.T) {
		boom := errors.New("db down")
		rec, rem := &fakeRecurring{err: boom}, &fakeNotifier{}
		w := New(rec, rem, time.Minute, nil)

		report, err := w.RunOnce(context.Background())

		require.ErrorIs(t, err, boom)
		assert.Nil(t, report.Recurring)
		assert.Equal(t, int32(1), rem.calls.Load())
		assert.Equal(t, 3, report.Notifications)
	})

	t.Run("joins both failures", func(t *testing.T) {
		recErr, remErr := errors.New("recurring"), errors.New("notify")
		w := New(&fakeRecurring{err: recErr}, &fakeNotifier{err: remErr}, time.Minute, nil)

		_, err := w.RunOnce(context.Background())

		assert.ErrorIs(t, err, recErr)
		assert.ErrorIs(t, err, remErr)
	})
}

func TestRun(t *testing.T) {
	t.Run("runs immediately and on every tick until cancelled", func(t *testing.T) {
		rec, rem := &fakeRecurring{}, &fakeNotifier{}
		w := New(rec, rem, 10*time.Millisecond, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		assert.Eventually(t, func() bool { return rec.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not stop after cancel")
		}
		assert.GreaterOrEqual(t, rem.calls.Load(), int32(3))
	})

	t.Run("cancelled context skips the initial pass", func(t *testing.T) {
		rec, rem := &fakeRecurring{}, &fakeNotifier{}
		w := New(rec, rem, time.Hour, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.NoError(t, w.Run(ctx))
		assert.Zero(t, rec.calls.Load())
	})

	t.Run("non-positive interval falls back to an hour", func(t *testing.T) {
		w := New(&fakeRecurring{}, &fakeNotifier{}, 0, nil)
		assert.Equal(t, time.Hour, w.interval)
	})
}
