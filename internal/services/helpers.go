package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/finance"
	"pennywise/internal/models"
	"pennywise/internal/validator"
)

const (
	defaultCurrencyCode = "USD"
	defaultNotifyBefore = 3
)

// utcNow is the clock every service reads. "Today" is always the UTC
// calendar date, the same one the worker passes in.
func utcNow() time.Time { return time.Now().UTC() }

// fromFinanceErr maps an error from the finance core onto an AppError.
func fromFinanceErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, finance.ErrCurrencyMismatch):
		return apperrors.WithMessage(apperrors.ErrCurrencyMismatch, err.Error())
	case errors.Is(err, finance.ErrNegativeAmount):
		return apperrors.ErrNegativeAmount
	case errors.Is(err, finance.ErrUnknownFrequency):
		return apperrors.WithMessage(apperrors.ErrInvalidFrequency, err.Error())
	case errors.Is(err, finance.ErrUnknownTransactionType):
		return apperrors.WithMessage(apperrors.ErrInvalidTransactionType, err.Error())
	case errors.Is(err, finance.ErrUnknownPeriod),
		errors.Is(err, finance.ErrZeroDate),
		errors.Is(err, finance.ErrBeforeStart),
		errors.Is(err, finance.ErrInvalidNotifyBefore),
		errors.Is(err, finance.ErrInvalidRate),
		errors.Is(err, finance.ErrTooManyOccurrences):
		return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

func validateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperrors.ErrNegativeAmount
	}
	return nil
}

// normalizeCurrency upper-cases code and checks it against ISO 4217.
func normalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !validator.IsCurrencyCode(code) {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("invalid currency code %q", code))
	}
	return code, nil
}

func validTransactionType(t models.TransactionType) bool {
	return t == models.TransactionTypeIncome || t == models.TransactionTypeExpense
}

// requireCategory loads the owner's category and checks it fits txType.
func requireCategory(db *gorm.DB, userID, categoryID string, txType models.TransactionType) (*models.Category, error) {
	var category models.Category
	if err := db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if string(category.Type) != string(txType) {
		return nil, apperrors.ErrCategoryTypeMismatch
	}
	return &category, nil
}

// ensureSettings returns the owner's settings, creating the defaults (and the
// default currency at rate 1) on first use.
func ensureSettings(db *gorm.DB, userID string) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := db.Where("user_id = ?", userID).First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	settings = models.UserSettings{
		UserID:              userID,
		DefaultCurrency:     defaultCurrencyCode,
		DefaultNotifyBefore: defaultNotifyBefore,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := ensureCurrency(tx, userID, defaultCurrencyCode); err != nil {
			return err
		}
		return tx.Create(&settings).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &settings, nil
}

// ensureCurrency registers code at rate 1 unless the owner already has it.
func ensureCurrency(tx *gorm.DB, userID, code string) error {
	var count int64
	if err := tx.Model(&models.Currency{}).Where("user_id = ? AND code = ?", userID, code).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return tx.Create(&models.Currency{
		UserID: userID,
		Code:   code,
		Name:   code,
		Rate:   decimal.NewFromInt(1),
	}).Error
}

// loadRates returns the owner's exchange rates keyed by currency code.
func loadRates(db *gorm.DB, userID string) (map[string]decimal.Decimal, error) {
	var currencies []models.Currency
	if err := db.Where("user_id = ?", userID).Find(&currencies).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	rates := make(map[string]decimal.Decimal, len(currencies))
	for _, c := range currencies {
		rates[c.Code] = c.Rate
	}
	return rates, nil
}

// convert expresses amount, given in "from", in "to" using the owner's rates.
func convert(amount decimal.Decimal, from, to string, rates map[string]decimal.Decimal) (decimal.Decimal, error) {
	if strings.EqualFold(from, to) {
		return amount, nil
	}
	fromRate, ok := rates[strings.ToUpper(from)]
	if !ok {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrCurrencyNotFound, fmt.Sprintf("no exchange rate for %s", from))
	}
	toRate, ok := rates[strings.ToUpper(to)]
	if !ok {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrCurrencyNotFound, fmt.Sprintf("no exchange rate for %s", to))
	}
	converted, err := finance.ConvertAmount(amount, fromRate, toRate)
	if err != nil {
		return decimal.Zero, fromFinanceErr(err)
	}
	return converted, nil
}

// isUniqueViolation reports whether err comes from a unique index, for both
// the postgres and sqlite drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

func dateOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := finance.DateOf(*t)
	return &d
}
