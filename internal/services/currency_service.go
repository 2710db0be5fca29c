package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/logger"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
)

// rateScale is the number of decimal places kept for exchange rates.
const rateScale = 8

// currencyService manages an owner's currencies and exchange rates.
type currencyService struct {
	db    *gorm.DB
	rates RateFetcher
}

// NewCurrencyService creates a new CurrencyServicer. rates may be nil, in
// which case RefreshRates is unavailable.
func NewCurrencyService(db *gorm.DB, rates RateFetcher) CurrencyServicer {
	return &currencyService{db: db, rates: rates}
}

// CreateCurrency registers a currency. A zero rate means 1.
func (s *currencyService) CreateCurrency(userID, code, name, symbol string, rate decimal.Decimal) (*models.Currency, error) {
	code, err := normalizeCurrency(code)
	if err != nil {
		return nil, err
	}
	if rate.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "exchange rate must be positive")
	}
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	if _, err := ensureSettings(s.db, userID); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.Currency{}).Where("user_id = ? AND code = ?", userID, code).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateCurrency
	}

	if strings.TrimSpace(name) == "" {
		name = code
	}
	currency := &models.Currency{
		UserID: userID,
		Code:   code,
		Name:   strings.TrimSpace(name),
		Symbol: strings.TrimSpace(symbol),
		Rate:   rate,
	}
	if err := s.db.Create(currency).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateCurrency
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return currency, nil
}

// GetUserCurrencies lists the owner's currencies by code. The default
// currency is always present.
func (s *currencyService) GetUserCurrencies(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Currency], error) {
	if _, err := ensureSettings(s.db, userID); err != nil {
		return nil, err
	}
	page.Defaults()

	base := s.db.Model(&models.Currency{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var currencies []models.Currency
	if err := base.Order("code ASC").Scopes(pagination.Paginate(page)).Find(&currencies).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(currencies, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCurrency retrieves one of the owner's currencies by code.
func (s *currencyService) GetCurrency(userID, code string) (*models.Currency, error) {
	var currency models.Currency
	err := s.db.Where("user_id = ? AND code = ?", userID, strings.ToUpper(strings.TrimSpace(code))).First(&currency).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCurrencyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &currency, nil
}

// UpdateCurrency changes the display fields or rate of a currency. The
// default currency's rate is fixed at 1.
func (s *currencyService) UpdateCurrency(userID, code string, name, symbol *string, rate *decimal.Decimal) (*models.Currency, error) {
	currency, err := s.GetCurrency(userID, code)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != nil && strings.TrimSpace(*name) != "" {
		updates["name"] = strings.TrimSpace(*name)
	}
	if symbol != nil {
		updates["symbol"] = strings.TrimSpace(*symbol)
	}
	if rate != nil {
		if !rate.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "exchange rate must be positive")
		}
		settings, err := ensureSettings(s.db, userID)
		if err != nil {
			return nil, err
		}
		if settings.DefaultCurrency == currency.Code && !rate.Equal(decimal.NewFromInt(1)) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "the default currency always has rate 1")
		}
		updates["rate"] = *rate
	}

	if len(updates) > 0 {
		if err := s.db.Model(currency).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return s.GetCurrency(userID, code)
}

// DeleteCurrency removes a currency other than the default one.
func (s *currencyService) DeleteCurrency(userID, code string) error {
	currency, err := s.GetCurrency(userID, code)
	if err != nil {
		return err
	}
	settings, err := ensureSettings(s.db, userID)
	if err != nil {
		return err
	}
	if settings.DefaultCurrency == currency.Code {
		return apperrors.ErrDefaultCurrency
	}
	if err := s.db.Delete(currency).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RefreshRates fetches a fresh rate against the default currency for every
// other currency of the owner. Currencies the provider fails on keep their
// old rate; the call fails only when nothing could be refreshed.
func (s *currencyService) RefreshRates(ctx context.Context, userID string) ([]models.Currency, error) {
	if s.rates == nil {
		return nil, apperrors.WithMessage(apperrors.ErrUpstream, "No exchange rate provider is configured")
	}
	settings, err := ensureSettings(s.db, userID)
	if err != nil {
		return nil, err
	}

	var currencies []models.Currency
	if err := s.db.Where("user_id = ?", userID).Order("code ASC").Find(&currencies).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	log := logger.Named("currency")
	attempted, refreshed := 0, 0
	var lastErr error
	for i := range currencies {
		c := &currencies[i]
		if c.Code == settings.DefaultCurrency {
			continue
		}
		attempted++
		rate, err := s.rates.Rate(ctx, settings.DefaultCurrency, c.Code)
		if err == nil && !rate.IsPositive() {
			err = fmt.Errorf("non-positive rate %s", rate)
		}
		if err != nil {
			log.Warnw("Failed to refresh exchange rate", "from", settings.DefaultCurrency, "to", c.Code, "error", err)
			lastErr = err
			continue
		}
		rate = rate.Round(rateScale)
		if err := s.db.Model(c).Update("rate", rate).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		c.Rate = rate
		refreshed++
	}

	if attempted > 0 && refreshed == 0 {
		return nil, apperrors.Wrap(apperrors.ErrUpstream, lastErr)
	}
	return currencies, nil
}
