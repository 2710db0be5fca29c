package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/finance"
	"pennywise/internal/ical"
	"pennywise/internal/logger"
	"pennywise/internal/models"
	"pennywise/internal/notify"
	"pennywise/internal/pagination"
)

const calendarName = "Pennywise bills"

// reminderService handles bill reminders.
type reminderService struct {
	db        *gorm.DB
	publisher notify.Publisher
	now       func() time.Time
}

// NewReminderService creates a new ReminderServicer. A nil publisher
// disables due notifications.
func NewReminderService(db *gorm.DB, publisher notify.Publisher) ReminderServicer {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &reminderService{db: db, publisher: publisher, now: utcNow}
}

func (s *reminderService) today() time.Time {
	return finance.DateOf(s.now())
}

// view evaluates r as of today.
func (s *reminderService) view(r models.Reminder) (*ReminderView, error) {
	ev, err := finance.Evaluate(finance.ReminderInput{
		DueDate:      r.DueDate,
		NotifyBefore: r.NotifyBefore,
		IsPaid:       r.IsPaid,
	}, s.today())
	if err != nil {
		return nil, fromFinanceErr(err)
	}
	return &ReminderView{Reminder: r, ReminderEvaluation: ev}, nil
}

// CreateReminder creates an unpaid reminder.
func (s *reminderService) CreateReminder(userID string, in ReminderInput) (*ReminderView, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "reminder title is required")
	}
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if in.DueDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "due date is required")
	}
	if in.IsRecurring {
		if in.Frequency == nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidFrequency, "recurring reminders need a frequency")
		}
		if _, err := finance.ParseFrequency(string(*in.Frequency)); err != nil {
			return nil, fromFinanceErr(err)
		}
	}
	if in.CategoryID != nil {
		if _, err := requireCategory(s.db, userID, *in.CategoryID, models.TransactionTypeExpense); err != nil {
			return nil, err
		}
	}

	settings, err := ensureSettings(s.db, userID)
	if err != nil {
		return nil, err
	}
	currency := settings.DefaultCurrency
	if strings.TrimSpace(in.Currency) != "" {
		if currency, err = normalizeCurrency(in.Currency); err != nil {
			return nil, err
		}
	}
	notifyBefore := settings.DefaultNotifyBefore
	if in.NotifyBefore != nil {
		notifyBefore = *in.NotifyBefore
	}
	if notifyBefore < 0 {
		return nil, fromFinanceErr(finance.ErrInvalidNotifyBefore)
	}

	reminder := &models.Reminder{
		UserID:       userID,
		CategoryID:   in.CategoryID,
		Title:        title,
		Amount:       in.Amount,
		Currency:     currency,
		DueDate:      finance.DateOf(in.DueDate),
		IsRecurring:  in.IsRecurring,
		NotifyBefore: notifyBefore,
	}
	if in.IsRecurring {
		reminder.Frequency = in.Frequency
	}
	if err := s.db.Create(reminder).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.view(*reminder)
}

// CreateReminderFromRecurring creates a recurring reminder for the next
// occurrence of a recurring expense template.
func (s *reminderService) CreateReminderFromRecurring(userID, recurringID string, notifyBefore *int) (*ReminderView, error) {
	var rt models.RecurringTransaction
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", recurringID, userID).First(&rt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecurringNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !rt.IsActive {
		return nil, apperrors.ErrRecurringInactive
	}
	if rt.Type != models.TransactionTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidTransactionType, "reminders can only be created for recurring expenses")
	}

	title := rt.Description
	if title == "" && rt.Category != nil {
		title = rt.Category.Name
	}
	freq := rt.Frequency
	view, err := s.CreateReminder(userID, ReminderInput{
		Title:        title,
		Amount:       rt.Amount,
		Currency:     rt.Currency,
		DueDate:      rt.NextDueDate,
		CategoryID:   &rt.CategoryID,
		IsRecurring:  true,
		Frequency:    &freq,
		NotifyBefore: notifyBefore,
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(&view.Reminder).Update("recurring_id", rt.ID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	view.RecurringID = &rt.ID
	return view, nil
}

// GetUserReminders lists the owner's reminders, earliest due first. The
// status filter is evaluated against today.
func (s *reminderService) GetUserReminders(userID string, page pagination.PageRequest, filter ReminderFilter) (*pagination.PageResponse[ReminderView], error) {
	page.Defaults()

	base := s.db.Model(&models.Reminder{}).Where("user_id = ?", userID)
	if filter.IsPaid != nil {
		base = base.Where("is_paid = ?", *filter.IsPaid)
	}
	if filter.Status != nil {
		var err error
		if base, err = s.applyStatusFilter(base, *filter.Status); err != nil {
			return nil, err
		}
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var reminders []models.Reminder
	if err := base.Order("due_date ASC").Scopes(pagination.Paginate(page)).Find(&reminders).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	views := make([]ReminderView, 0, len(reminders))
	for _, r := range reminders {
		v, err := s.view(r)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}

	result := pagination.NewPageResponse(views, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// applyStatusFilter expresses a reminder status as a due date range.
func (s *reminderService) applyStatusFilter(q *gorm.DB, status finance.ReminderStatus) (*gorm.DB, error) {
	today := s.today()
	soon := today.AddDate(0, 0, finance.DueSoonDays)
	switch status {
	case finance.StatusPaid:
		return q.Where("is_paid = ?", true), nil
	case finance.StatusOverdue:
		return q.Where("is_paid = ? AND due_date < ?", false, today), nil
	case finance.StatusDueSoon:
		return q.Where("is_paid = ? AND due_date >= ? AND due_date <= ?", false, today, soon), nil
	case finance.StatusScheduled:
		return q.Where("is_paid = ? AND due_date > ?", false, soon), nil
	}
	return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("unknown reminder status %q", status))
}

func (s *reminderService) findReminder(userID, reminderID string) (*models.Reminder, error) {
	var reminder models.Reminder
	if err := s.db.Where("id = ? AND user_id = ?", reminderID, userID).First(&reminder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrReminderNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &reminder, nil
}

// GetReminderByID retrieves an evaluated reminder.
func (s *reminderService) GetReminderByID(userID, reminderID string) (*ReminderView, error) {
	reminder, err := s.findReminder(userID, reminderID)
	if err != nil {
		return nil, err
	}
	return s.view(*reminder)
}

// UpdateReminder applies the non-nil fields of in.
func (s *reminderService) UpdateReminder(userID, reminderID string, in ReminderUpdate) (*ReminderView, error) {
	reminder, err := s.findReminder(userID, reminderID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "reminder title is required")
		}
		updates["title"] = title
	}
	if in.Amount != nil {
		if err := validateAmount(*in.Amount); err != nil {
			return nil, err
		}
		updates["amount"] = *in.Amount
	}
	if in.Currency != nil {
		currency, err := normalizeCurrency(*in.Currency)
		if err != nil {
			return nil, err
		}
		updates["currency"] = currency
	}
	if in.DueDate != nil {
		if in.DueDate.IsZero() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "due date is required")
		}
		updates["due_date"] = finance.DateOf(*in.DueDate)
		updates["last_notified_at"] = nil
	}
	if in.CategoryID != nil {
		if _, err := requireCategory(s.db, userID, *in.CategoryID, models.TransactionTypeExpense); err != nil {
			return nil, err
		}
		updates["category_id"] = *in.CategoryID
	}
	if in.NotifyBefore != nil {
		if *in.NotifyBefore < 0 {
			return nil, fromFinanceErr(finance.ErrInvalidNotifyBefore)
		}
		updates["notify_before"] = *in.NotifyBefore
	}

	freq := reminder.Frequency
	if in.Frequency != nil {
		if _, err := finance.ParseFrequency(string(*in.Frequency)); err != nil {
			return nil, fromFinanceErr(err)
		}
		freq = in.Frequency
		updates["frequency"] = *in.Frequency
	}
	isRecurring := reminder.IsRecurring
	if in.IsRecurring != nil {
		isRecurring = *in.IsRecurring
		updates["is_recurring"] = isRecurring
		if !isRecurring {
			updates["frequency"] = nil
		}
	}
	if isRecurring && freq == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidFrequency, "recurring reminders need a frequency")
	}

	if len(updates) > 0 {
		if err := s.db.Model(reminder).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetReminderByID(userID, reminderID)
}

// DeleteReminder soft-deletes a reminder. Its successor, if any, stays.
func (s *reminderService) DeleteReminder(userID, reminderID string) error {
	reminder, err := s.findReminder(userID, reminderID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(reminder).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// PayReminder marks a reminder paid. A recurring reminder gets an unpaid
// successor due one step later; paying again after an unpay reuses the
// successor created the first time.
func (s *reminderService) PayReminder(userID, reminderID string) (*PaymentResult, error) {
	reminder, err := s.findReminder(userID, reminderID)
	if err != nil {
		return nil, err
	}
	if reminder.IsPaid {
		return nil, apperrors.ErrReminderPaid
	}

	paidAt := s.now().UTC()
	var next *models.Reminder
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Reminder{}).
			Where("id = ? AND is_paid = ?", reminder.ID, false).
			Updates(map[string]interface{}{"is_paid": true, "paid_at": paidAt})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrReminderPaid
		}

		if !reminder.IsRecurring || reminder.Frequency == nil {
			return nil
		}

		var existing models.Reminder
		err := tx.Where("previous_id = ?", reminder.ID).First(&existing).Error
		if err == nil {
			next = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		step, err := finance.Advance(reminder.DueDate, finance.Frequency(*reminder.Frequency), nil)
		if err != nil {
			return err
		}
		previousID := reminder.ID
		next = &models.Reminder{
			UserID:       reminder.UserID,
			CategoryID:   reminder.CategoryID,
			Title:        reminder.Title,
			Amount:       reminder.Amount,
			Currency:     reminder.Currency,
			DueDate:      step.NextDueDate,
			IsRecurring:  true,
			Frequency:    reminder.Frequency,
			NotifyBefore: reminder.NotifyBefore,
			PreviousID:   &previousID,
			RecurringID:  reminder.RecurringID,
		}
		return tx.Create(next).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, fromFinanceErr(err)
	}

	reminder.IsPaid = true
	reminder.PaidAt = &paidAt
	paid, err := s.view(*reminder)
	if err != nil {
		return nil, err
	}
	result := &PaymentResult{Reminder: paid}
	if next != nil {
		if result.Next, err = s.view(*next); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UnpayReminder clears the paid flag. A successor created on payment is kept.
func (s *reminderService) UnpayReminder(userID, reminderID string) (*ReminderView, error) {
	reminder, err := s.findReminder(userID, reminderID)
	if err != nil {
		return nil, err
	}
	if !reminder.IsPaid {
		return nil, apperrors.ErrReminderUnpaid
	}

	updates := map[string]interface{}{"is_paid": false, "paid_at": nil}
	if err := s.db.Model(reminder).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetReminderByID(userID, reminderID)
}

// ExportCalendar builds an iCalendar feed of the owner's unpaid reminders.
func (s *reminderService) ExportCalendar(userID string) (*ical.Calendar, error) {
	var reminders []models.Reminder
	if err := s.db.Where("user_id = ? AND is_paid = ?", userID, false).Order("due_date ASC").Find(&reminders).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	seriesEnds, err := s.seriesEnds(userID, reminders)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	cal := &ical.Calendar{Name: calendarName, Stamp: s.now().UTC()}
	for _, r := range reminders {
		event := ical.Event{
			UID:             r.ID + "@pennywise",
			Summary:         r.Title,
			Description:     fmt.Sprintf("%s %s", r.Amount.StringFixed(2), r.Currency),
			Date:            r.DueDate,
			AlarmDaysBefore: r.NotifyBefore,
		}
		if r.IsRecurring && r.Frequency != nil {
			var until *time.Time
			if r.RecurringID != nil {
				until = seriesEnds[*r.RecurringID]
			}
			rule, err := calendarRule(finance.Frequency(*r.Frequency), r.DueDate, until)
			if err != nil {
				return nil, err
			}
			event.RRule = rule
		}
		cal.Events = append(cal.Events, event)
	}
	return cal, nil
}

// seriesEnds maps the recurring template behind each reminder to its end
// date. Templates without an end date are left out.
func (s *reminderService) seriesEnds(userID string, reminders []models.Reminder) (map[string]*time.Time, error) {
	var ids []string
	for _, r := range reminders {
		if r.RecurringID != nil {
			ids = append(ids, *r.RecurringID)
		}
	}
	ends := make(map[string]*time.Time)
	if len(ids) == 0 {
		return ends, nil
	}

	var templates []models.RecurringTransaction
	if err := s.db.Where("user_id = ? AND id IN ? AND end_date IS NOT NULL", userID, ids).Find(&templates).Error; err != nil {
		return nil, err
	}
	for i := range templates {
		ends[templates[i].ID] = templates[i].EndDate
	}
	return ends, nil
}

// calendarRule returns the RRULE for a recurring reminder, or "" when the
// series is better exported as a single event: RRULE cannot express it, or
// it ends before a second instance.
func calendarRule(freq finance.Frequency, due time.Time, until *time.Time) (string, error) {
	rule, ok, err := ical.RecurrenceRule(freq, due, until)
	if err != nil {
		return "", fromFinanceErr(err)
	}
	if !ok {
		return "", nil
	}
	if until != nil {
		occ, err := ical.Occurrences(rule, due, due, *until)
		if err != nil {
			return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(occ) < 2 {
			return "", nil
		}
	}
	return rule, nil
}

// NotifyDue publishes a reminder.due event for every unpaid reminder inside
// its notify-before window. Each reminder is announced at most once per day,
// even when several workers run at the same time.
func (s *reminderService) NotifyDue(ctx context.Context, today time.Time) (int, error) {
	if today.IsZero() {
		today = s.now()
	}
	today = finance.DateOf(today)
	log := logger.Named("reminders")

	var reminders []models.Reminder
	if err := s.db.WithContext(ctx).
		Where("is_paid = ? AND due_date >= ?", false, today).
		Where("(last_notified_at IS NULL OR last_notified_at < ?)", today).
		Order("due_date ASC").
		Find(&reminders).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	sent := 0
	for _, r := range reminders {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		ev, err := finance.Evaluate(finance.ReminderInput{
			DueDate:      r.DueDate,
			NotifyBefore: r.NotifyBefore,
			IsPaid:       r.IsPaid,
		}, today)
		if err != nil {
			log.Errorw("Failed to evaluate reminder", "reminder_id", r.ID, "error", err)
			continue
		}
		if !ev.ShouldNotify {
			continue
		}

		claimed, err := s.claimNotification(ctx, &r, today)
		if err != nil {
			log.Errorw("Failed to record reminder notification", "reminder_id", r.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}

		event := notify.NewEvent(notify.EventReminderDue, r.UserID, r.ID, map[string]string{
			"title":     r.Title,
			"amount":    r.Amount.String(),
			"currency":  r.Currency,
			"dueDate":   finance.DateOf(r.DueDate).Format(time.DateOnly),
			"daysUntil": fmt.Sprintf("%d", ev.DaysUntil),
			"status":    string(ev.Status),
		})
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.Errorw("Failed to publish reminder notification", "reminder_id", r.ID, "error", err)
			// Release the claim so the next run retries.
			if err := s.releaseNotification(ctx, &r); err != nil {
				log.Errorw("Failed to release reminder notification; it will not be retried today",
					"reminder_id", r.ID, "error", err)
			}
			continue
		}
		sent++
	}

	log.Infow("Reminder notifications sent", "count", sent, "today", today.Format(time.DateOnly))
	return sent, nil
}

// releaseNotification restores the last_notified_at value a failed publish
// claimed over.
func (s *reminderService) releaseNotification(ctx context.Context, r *models.Reminder) error {
	return s.db.WithContext(ctx).Model(&models.Reminder{}).
		Where("id = ?", r.ID).
		Update("last_notified_at", r.LastNotifiedAt).Error
}

// claimNotification stamps last_notified_at unless another run already did
// so today.
func (s *reminderService) claimNotification(ctx context.Context, r *models.Reminder, today time.Time) (bool, error) {
	stamp := s.now().UTC()
	if stamp.Before(today) {
		stamp = today
	}
	res := s.db.WithContext(ctx).Model(&models.Reminder{}).
		Where("id = ?", r.ID).
		Where("(last_notified_at IS NULL OR last_notified_at < ?)", today).
		Update("last_notified_at", stamp)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
