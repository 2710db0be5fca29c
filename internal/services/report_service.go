package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/finance"
	"pennywise/internal/models"
)

// reportService aggregates transactions in the owner's default currency.
type reportService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB) ReportServicer {
	return &reportService{db: db, now: utcNow}
}

// reportRange normalizes an inclusive date range. A zero "to" means today
// and a zero "from" means the first day of to's month.
func (s *reportService) reportRange(from, to time.Time) (time.Time, time.Time, error) {
	if to.IsZero() {
		to = s.now()
	}
	to = finance.DateOf(to)
	if from.IsZero() {
		from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	from = finance.DateOf(from)
	if from.After(to) {
		return time.Time{}, time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "from must not be after to")
	}
	return from, to, nil
}

// load returns the owner's transactions in [from, to] with their amounts
// converted into the default currency.
func (s *reportService) load(userID string, from, to time.Time, txType *models.TransactionType) ([]models.Transaction, string, error) {
	settings, err := ensureSettings(s.db, userID)
	if err != nil {
		return nil, "", err
	}

	q := s.db.Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to)
	if txType != nil {
		q = q.Where("type = ?", *txType)
	}
	var transactions []models.Transaction
	if err := q.Find(&transactions).Error; err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	base := settings.DefaultCurrency
	var rates map[string]decimal.Decimal
	for i := range transactions {
		tx := &transactions[i]
		if tx.Currency == base {
			continue
		}
		if rates == nil {
			if rates, err = loadRates(s.db, userID); err != nil {
				return nil, "", err
			}
		}
		if tx.Amount, err = convert(tx.Amount, tx.Currency, base, rates); err != nil {
			return nil, "", err
		}
		tx.Currency = base
	}
	return transactions, base, nil
}

// GetSummary totals income and expense between from and to inclusive.
func (s *reportService) GetSummary(userID string, from, to time.Time) (*ReportSummary, error) {
	from, to, err := s.reportRange(from, to)
	if err != nil {
		return nil, err
	}
	transactions, currency, err := s.load(userID, from, to, nil)
	if err != nil {
		return nil, err
	}

	summary := &ReportSummary{
		From:             from,
		To:               to,
		Currency:         currency,
		Income:           decimal.Zero,
		Expense:          decimal.Zero,
		TransactionCount: len(transactions),
	}
	for _, tx := range transactions {
		switch tx.Type {
		case models.TransactionTypeIncome:
			summary.Income = summary.Income.Add(tx.Amount)
		case models.TransactionTypeExpense:
			summary.Expense = summary.Expense.Add(tx.Amount)
		}
	}
	summary.Net = summary.Income.Sub(summary.Expense)
	return summary, nil
}

// GetCategoryBreakdown totals one transaction type per category, largest
// first, with each category's share of the total.
func (s *reportService) GetCategoryBreakdown(userID string, from, to time.Time, txType models.TransactionType) (*CategoryReport, error) {
	if !validTransactionType(txType) {
		return nil, apperrors.ErrInvalidTransactionType
	}
	from, to, err := s.reportRange(from, to)
	if err != nil {
		return nil, err
	}
	transactions, currency, err := s.load(userID, from, to, &txType)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string]*CategoryTotal)
	total := decimal.Zero
	for _, tx := range transactions {
		ct, ok := byCategory[tx.CategoryID]
		if !ok {
			ct = &CategoryTotal{CategoryID: tx.CategoryID, Total: decimal.Zero}
			byCategory[tx.CategoryID] = ct
		}
		ct.Total = ct.Total.Add(tx.Amount)
		ct.Count++
		total = total.Add(tx.Amount)
	}

	ids := make([]string, 0, len(byCategory))
	for id := range byCategory {
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		var categories []models.Category
		if err := s.db.Unscoped().Where("id IN ?", ids).Find(&categories).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, c := range categories {
			byCategory[c.ID].CategoryName = c.Name
		}
	}

	rows := make([]CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		ct.Percentage = finance.Percentage(ct.Total, total)
		rows = append(rows, *ct)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Total.Equal(rows[j].Total) {
			return rows[i].Total.GreaterThan(rows[j].Total)
		}
		return rows[i].CategoryName < rows[j].CategoryName
	})

	return &CategoryReport{
		From:       from,
		To:         to,
		Currency:   currency,
		Type:       txType,
		Total:      total,
		Categories: rows,
	}, nil
}
