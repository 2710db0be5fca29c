package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/finance"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db, now: utcNow}
}

// CreateBudget creates a new budget for an expense category. An owner has
// at most one budget per category.
func (s *budgetService) CreateBudget(userID string, in BudgetInput) (*models.Budget, error) {
	if in.CategoryID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category ID is required")
	}
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if _, err := finance.ParsePeriod(string(in.Period)); err != nil {
		return nil, fromFinanceErr(err)
	}

	category, err := requireCategory(s.db, userID, in.CategoryID, models.TransactionTypeExpense)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrCategoryTypeMismatch.Code {
			return nil, apperrors.WithMessage(apperrors.ErrCategoryTypeMismatch, "budgets can only track expense categories")
		}
		return nil, err
	}

	if err := s.checkCategoryFree(userID, in.CategoryID); err != nil {
		return nil, err
	}

	currency, err := s.resolveCurrency(userID, in.Currency)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = category.Name
	}
	startDate := in.StartDate
	if startDate.IsZero() {
		startDate = s.now()
	}

	budget := &models.Budget{
		UserID:     userID,
		CategoryID: in.CategoryID,
		Name:       name,
		Amount:     in.Amount,
		Currency:   currency,
		Period:     in.Period,
		StartDate:  finance.DateOf(startDate),
	}
	if err := s.db.Create(budget).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateBudget
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return budget, nil
}

func (s *budgetService) checkCategoryFree(userID, categoryID string) error {
	var count int64
	if err := s.db.Model(&models.Budget{}).Where("user_id = ? AND category_id = ?", userID, categoryID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateBudget
	}
	return nil
}

func (s *budgetService) resolveCurrency(userID, code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		settings, err := ensureSettings(s.db, userID)
		if err != nil {
			return "", err
		}
		return settings.DefaultCurrency, nil
	}
	return normalizeCurrency(code)
}

// GetUserBudgets returns a paginated list of budgets, each with its spending
// in the window containing asOf.
func (s *budgetService) GetUserBudgets(
	userID string,
	page pagination.PageRequest,
	period *models.BudgetPeriod,
	asOf time.Time,
) (*pagination.PageResponse[BudgetSummary], error) {
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)
	if period != nil {
		base = base.Where("period = ?", *period)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Preload("Category").Order("name ASC").Scopes(pagination.Paginate(page)).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summaries := make([]BudgetSummary, 0, len(budgets))
	for i := range budgets {
		progress, err := s.progress(&budgets[i], asOf)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summarize(budgets[i], progress))
	}

	result := pagination.NewPageResponse(summaries, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func summarize(b models.Budget, p *BudgetProgress) BudgetSummary {
	return BudgetSummary{
		Budget:     b,
		Spent:      p.Spent,
		Remaining:  p.Remaining,
		Percentage: p.Percentage,
	}
}

// GetBudgetByID returns a budget with its current spending.
func (s *budgetService) GetBudgetByID(userID, budgetID string, asOf time.Time) (*BudgetSummary, error) {
	budget, err := s.findBudget(userID, budgetID)
	if err != nil {
		return nil, err
	}
	progress, err := s.progress(budget, asOf)
	if err != nil {
		return nil, err
	}
	summary := summarize(*budget, progress)
	return &summary, nil
}

func (s *budgetService) findBudget(userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget updates an existing budget's fields. The category is fixed.
func (s *budgetService) UpdateBudget(userID, budgetID string, in BudgetUpdate) (*models.Budget, error) {
	budget, err := s.findBudget(userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget name must not be empty")
		}
		updates["name"] = name
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
	if in.Period != nil {
		if _, err := finance.ParsePeriod(string(*in.Period)); err != nil {
			return nil, fromFinanceErr(err)
		}
		updates["period"] = *in.Period
	}
	if in.StartDate != nil {
		if in.StartDate.IsZero() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start date is required")
		}
		updates["start_date"] = finance.DateOf(*in.StartDate)
	}

	if len(updates) > 0 {
		if err := s.db.Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.findBudget(userID, budgetID)
}

// DeleteBudget soft-deletes a budget.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	budget, err := s.findBudget(userID, budgetID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetBudgetProgress calculates spending vs budget for the period window that
// contains asOf. A zero asOf means today.
func (s *budgetService) GetBudgetProgress(userID, budgetID string, asOf time.Time) (*BudgetProgress, error) {
	budget, err := s.findBudget(userID, budgetID)
	if err != nil {
		return nil, err
	}
	return s.progress(budget, asOf)
}

// progress loads the expense transactions of the budget's window, converts
// them into the budget currency and accumulates them. Dates before the
// budget start report the first window.
func (s *budgetService) progress(budget *models.Budget, asOf time.Time) (*BudgetProgress, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	asOf = finance.DateOf(asOf)
	if asOf.Before(budget.StartDate) {
		asOf = finance.DateOf(budget.StartDate)
	}

	spec := finance.BudgetSpec{
		CategoryID: budget.CategoryID,
		Amount:     budget.Amount,
		Currency:   budget.Currency,
		Period:     finance.Period(budget.Period),
		StartDate:  budget.StartDate,
	}
	window, err := finance.PeriodWindow(spec.StartDate, spec.Period, asOf)
	if err != nil {
		return nil, fromFinanceErr(err)
	}

	var transactions []models.Transaction
	err = s.db.Where("user_id = ? AND category_id = ? AND type = ? AND date >= ? AND date < ?",
		budget.UserID, budget.CategoryID, models.TransactionTypeExpense, window.Start, window.End).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var rates map[string]decimal.Decimal
	entries := make([]finance.Entry, 0, len(transactions))
	for _, tx := range transactions {
		amount := tx.Amount
		if !strings.EqualFold(tx.Currency, budget.Currency) {
			if rates == nil {
				if rates, err = loadRates(s.db, budget.UserID); err != nil {
					return nil, err
				}
			}
			if amount, err = convert(tx.Amount, tx.Currency, budget.Currency, rates); err != nil {
				return nil, err
			}
		}
		entries = append(entries, finance.Entry{
			Kind:       finance.KindExpense,
			Amount:     amount,
			Currency:   budget.Currency,
			CategoryID: tx.CategoryID,
			Date:       tx.Date,
		})
	}

	spent, err := finance.ComputeSpent(spec, entries, asOf)
	if err != nil {
		return nil, fromFinanceErr(err)
	}

	return &BudgetProgress{
		BudgetID:    budget.ID,
		Budgeted:    budget.Amount,
		Spent:       spent,
		Remaining:   budget.Amount.Sub(spent),
		Percentage:  finance.Percentage(spent, budget.Amount),
		Currency:    budget.Currency,
		PeriodStart: window.Start,
		PeriodEnd:   window.End,
	}, nil
}
