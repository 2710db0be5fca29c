package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/finance"
	"pennywise/internal/logger"
	"pennywise/internal/models"
	"pennywise/internal/notify"
	"pennywise/internal/pagination"
)

// errStaleTemplate means another processor moved the template first.
var errStaleTemplate = errors.New("recurring template changed concurrently")

// recurringService manages recurring templates and materializes their
// occurrences into transactions.
type recurringService struct {
	db        *gorm.DB
	publisher notify.Publisher
	now       func() time.Time
}

// NewRecurringService creates a new RecurringServicer. A nil publisher
// disables notifications.
func NewRecurringService(db *gorm.DB, publisher notify.Publisher) RecurringServicer {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &recurringService{db: db, publisher: publisher, now: utcNow}
}

// CreateRecurring creates an active template whose first occurrence is the
// start date.
func (s *recurringService) CreateRecurring(userID string, in RecurringInput) (*models.RecurringTransaction, error) {
	if !validTransactionType(in.Type) {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if _, err := finance.ParseFrequency(string(in.Frequency)); err != nil {
		return nil, fromFinanceErr(err)
	}
	if in.CategoryID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category ID is required")
	}
	if _, err := requireCategory(s.db, userID, in.CategoryID, in.Type); err != nil {
		return nil, err
	}

	currency := strings.TrimSpace(in.Currency)
	if currency == "" {
		settings, err := ensureSettings(s.db, userID)
		if err != nil {
			return nil, err
		}
		currency = settings.DefaultCurrency
	} else {
		var err error
		if currency, err = normalizeCurrency(currency); err != nil {
			return nil, err
		}
	}

	startDate := in.StartDate
	if startDate.IsZero() {
		startDate = s.now()
	}
	startDate = finance.DateOf(startDate)
	endDate := dateOrNil(in.EndDate)
	if endDate != nil && endDate.Before(startDate) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end date must not be before start date")
	}

	rt := &models.RecurringTransaction{
		UserID:      userID,
		CategoryID:  in.CategoryID,
		Type:        in.Type,
		Amount:      in.Amount,
		Currency:    currency,
		Description: strings.TrimSpace(in.Description),
		Frequency:   in.Frequency,
		StartDate:   startDate,
		EndDate:     endDate,
		NextDueDate: startDate,
		IsActive:    true,
	}
	if err := s.db.Create(rt).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rt, nil
}

// GetUserRecurring lists the owner's templates, soonest due first.
func (s *recurringService) GetUserRecurring(userID string, page pagination.PageRequest, isActive *bool) (*pagination.PageResponse[models.RecurringTransaction], error) {
	page.Defaults()

	base := s.db.Model(&models.RecurringTransaction{}).Where("user_id = ?", userID)
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var templates []models.RecurringTransaction
	if err := base.Preload("Category").
		Order("next_due_date ASC").
		Scopes(pagination.Paginate(page)).
		Find(&templates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(templates, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetRecurringByID retrieves a template by ID for a specific user
func (s *recurringService) GetRecurringByID(userID, recurringID string) (*models.RecurringTransaction, error) {
	var rt models.RecurringTransaction
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", recurringID, userID).First(&rt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecurringNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &rt, nil
}

// UpdateRecurring changes a template. Amount and description changes only
// affect occurrences materialized afterwards. Resuming a paused template
// moves it to its first occurrence on or after today; the occurrences it
// missed while paused are not materialized.
func (s *recurringService) UpdateRecurring(userID, recurringID string, in RecurringUpdate) (*models.RecurringTransaction, error) {
	rt, err := s.GetRecurringByID(userID, recurringID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.CategoryID != nil {
		if _, err := requireCategory(s.db, userID, *in.CategoryID, rt.Type); err != nil {
			return nil, err
		}
		updates["category_id"] = *in.CategoryID
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
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	freq := rt.Frequency
	if in.Frequency != nil {
		if _, err := finance.ParseFrequency(string(*in.Frequency)); err != nil {
			return nil, fromFinanceErr(err)
		}
		freq = *in.Frequency
		updates["frequency"] = freq
	}
	endDate := rt.EndDate
	if in.EndDate != nil {
		endDate = dateOrNil(in.EndDate)
		if endDate.Before(rt.StartDate) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end date must not be before start date")
		}
		updates["end_date"] = *endDate
		if rt.NextDueDate.After(*endDate) {
			updates["is_active"] = false
		}
	}

	if in.IsActive != nil {
		switch {
		case !*in.IsActive:
			updates["is_active"] = false
		case !rt.IsActive:
			if endDate != nil && rt.NextDueDate.After(*endDate) {
				return nil, apperrors.ErrRecurringInactive
			}
			yesterday := finance.DateOf(s.now()).AddDate(0, 0, -1)
			cu, err := finance.CatchUp(rt.NextDueDate, finance.Frequency(freq), endDate, yesterday)
			if err != nil {
				return nil, fromFinanceErr(err)
			}
			if cu.Ended {
				return nil, apperrors.WithMessage(apperrors.ErrRecurringInactive, "Recurring transaction ended while paused")
			}
			updates["next_due_date"] = cu.NextDueDate
			updates["is_active"] = true
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(rt).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetRecurringByID(userID, recurringID)
}

// DeleteRecurring soft-deletes a template. Transactions it already created
// keep their back-reference.
func (s *recurringService) DeleteRecurring(userID, recurringID string) error {
	rt, err := s.GetRecurringByID(userID, recurringID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(rt).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// AdvanceRecurring materializes the template's next occurrence immediately,
// whether or not it is due yet, and moves the template one step forward.
func (s *recurringService) AdvanceRecurring(ctx context.Context, userID, recurringID string) (*AdvanceResult, error) {
	rt, err := s.GetRecurringByID(userID, recurringID)
	if err != nil {
		return nil, err
	}
	if !rt.IsActive {
		return nil, apperrors.ErrRecurringInactive
	}

	var created *models.Transaction
	var next finance.NextOccurrence
	pastEnd := rt.EndDate != nil && rt.NextDueDate.After(finance.DateOf(*rt.EndDate))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"last_run_at": s.now()}
		if pastEnd {
			updates["is_active"] = false
		} else {
			t, err := s.insertOccurrence(tx, rt, rt.NextDueDate)
			if err != nil {
				return err
			}
			created = t
			next, err = finance.Advance(rt.NextDueDate, finance.Frequency(rt.Frequency), rt.EndDate)
			if err != nil {
				return err
			}
			if next.Ended {
				updates["is_active"] = false
			} else {
				updates["next_due_date"] = next.NextDueDate
			}
		}
		return s.moveTemplate(tx, rt, updates)
	})
	if err != nil {
		if errors.Is(err, errStaleTemplate) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Recurring transaction was processed concurrently, retry")
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, fromFinanceErr(err)
	}
	if pastEnd {
		s.publish(ctx, notify.NewEvent(notify.EventRecurringEnded, rt.UserID, rt.ID, nil))
		return nil, apperrors.ErrRecurringInactive
	}

	if created != nil {
		s.publish(ctx, materializedEvent(created))
	}
	if next.Ended {
		s.publish(ctx, notify.NewEvent(notify.EventRecurringEnded, rt.UserID, rt.ID, nil))
	}

	updated, err := s.GetRecurringByID(userID, recurringID)
	if err != nil {
		return nil, err
	}
	return &AdvanceResult{Transaction: created, Recurring: updated}, nil
}

// ProcessDue catches up every active template of one owner that is due on
// or before today.
func (s *recurringService) ProcessDue(ctx context.Context, userID string, today time.Time) (*ProcessResult, error) {
	return s.processTemplates(ctx, s.db.Where("user_id = ?", userID), today)
}

// ProcessAllDue catches up every due template across all owners.
func (s *recurringService) ProcessAllDue(ctx context.Context, today time.Time) (*ProcessResult, error) {
	return s.processTemplates(ctx, s.db, today)
}

func (s *recurringService) processTemplates(ctx context.Context, scope *gorm.DB, today time.Time) (*ProcessResult, error) {
	if today.IsZero() {
		today = s.now()
	}
	today = finance.DateOf(today)
	log := logger.Named("recurring")

	var templates []models.RecurringTransaction
	if err := scope.WithContext(ctx).
		Where("is_active = ? AND next_due_date <= ?", true, today).
		Order("next_due_date ASC").
		Find(&templates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &ProcessResult{}
	for i := range templates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rt := &templates[i]
		created, ended, err := s.catchUp(ctx, rt, today)
		if err != nil {
			if errors.Is(err, errStaleTemplate) {
				log.Infow("Recurring template already processed elsewhere", "recurring_id", rt.ID)
				continue
			}
			log.Errorw("Failed to materialize recurring template",
				"recurring_id", rt.ID,
				"user_id", rt.UserID,
				"error", err,
			)
			continue
		}
		result.TemplatesProcessed++
		result.TransactionsCreated += created
		if ended {
			result.TemplatesEnded++
		}
	}

	log.Infow("Recurring processing complete",
		"templates", result.TemplatesProcessed,
		"transactions_created", result.TransactionsCreated,
		"templates_ended", result.TemplatesEnded,
		"today", today.Format(time.DateOnly),
	)
	return result, nil
}

// catchUp materializes every occurrence of rt due on or before today in one
// database transaction. Each occurrence is inserted at most once; the
// template is only moved if nobody moved it since it was read.
func (s *recurringService) catchUp(ctx context.Context, rt *models.RecurringTransaction, today time.Time) (int, bool, error) {
	cu, err := finance.CatchUp(rt.NextDueDate, finance.Frequency(rt.Frequency), rt.EndDate, today)
	if err != nil {
		return 0, false, err
	}
	if len(cu.Occurrences) == 0 && !cu.Ended {
		return 0, false, nil
	}

	var created []*models.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, occ := range cu.Occurrences {
			t, err := s.insertOccurrence(tx, rt, occ)
			if err != nil {
				return err
			}
			if t != nil {
				created = append(created, t)
			}
		}
		updates := map[string]interface{}{
			"next_due_date": cu.NextDueDate,
			"last_run_at":   s.now(),
		}
		if cu.Ended {
			updates["is_active"] = false
		}
		return s.moveTemplate(tx, rt, updates)
	})
	if err != nil {
		return 0, false, err
	}

	for _, t := range created {
		s.publish(ctx, materializedEvent(t))
	}
	if cu.Ended {
		s.publish(ctx, notify.NewEvent(notify.EventRecurringEnded, rt.UserID, rt.ID, nil))
	}
	return len(created), cu.Ended, nil
}

// insertOccurrence stores the transaction for one occurrence. It returns nil
// when that occurrence already exists.
func (s *recurringService) insertOccurrence(tx *gorm.DB, rt *models.RecurringTransaction, occurrence time.Time) (*models.Transaction, error) {
	occurrence = finance.DateOf(occurrence)
	recurringID := rt.ID
	t := &models.Transaction{
		UserID:         rt.UserID,
		CategoryID:     rt.CategoryID,
		Type:           rt.Type,
		Amount:         rt.Amount,
		Currency:       rt.Currency,
		Description:    rt.Description,
		Date:           occurrence,
		RecurringID:    &recurringID,
		OccurrenceDate: &occurrence,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(t)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return t, nil
}

// moveTemplate applies updates only if the template still has the next due
// date it was read with.
func (s *recurringService) moveTemplate(tx *gorm.DB, rt *models.RecurringTransaction, updates map[string]interface{}) error {
	res := tx.Model(&models.RecurringTransaction{}).
		Where("id = ? AND next_due_date = ?", rt.ID, rt.NextDueDate).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errStaleTemplate
	}
	return nil
}

func (s *recurringService) publish(ctx context.Context, event *notify.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Get().Errorw("Failed to publish event",
			"type", event.Type,
			"resource_id", event.ResourceID,
			"error", err,
		)
	}
}

func materializedEvent(t *models.Transaction) *notify.Event {
	payload := map[string]string{
		"transactionId": t.ID,
		"type":          string(t.Type),
		"amount":        t.Amount.String(),
		"currency":      t.Currency,
		"date":          finance.DateOf(t.Date).Format(time.DateOnly),
	}
	resourceID := t.ID
	if t.RecurringID != nil {
		resourceID = *t.RecurringID
	}
	return notify.NewEvent(notify.EventTransactionMaterialized, t.UserID, resourceID, payload)
}
