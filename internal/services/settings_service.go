package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/finance"
	"pennywise/internal/models"
)

// settingsService handles per-owner settings.
type settingsService struct {
	db *gorm.DB
}

// NewSettingsService creates a new SettingsServicer.
func NewSettingsService(db *gorm.DB) SettingsServicer {
	return &settingsService{db: db}
}

// GetSettings returns the owner's settings, creating the defaults on first use.
func (s *settingsService) GetSettings(userID string) (*models.UserSettings, error) {
	return ensureSettings(s.db, userID)
}

// UpdateSettings changes the owner's settings. Switching the default currency
// rebases every rate so the new default has rate 1.
func (s *settingsService) UpdateSettings(userID string, in SettingsUpdate) (*models.UserSettings, error) {
	settings, err := ensureSettings(s.db, userID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.DefaultNotifyBefore != nil {
		if *in.DefaultNotifyBefore < 0 {
			return nil, fromFinanceErr(finance.ErrInvalidNotifyBefore)
		}
		updates["default_notify_before"] = *in.DefaultNotifyBefore
	}

	var newDefault *models.Currency
	if in.DefaultCurrency != nil {
		code := strings.ToUpper(strings.TrimSpace(*in.DefaultCurrency))
		if code != settings.DefaultCurrency {
			var currency models.Currency
			if err := s.db.Where("user_id = ? AND code = ?", userID, code).First(&currency).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, apperrors.WithMessage(apperrors.ErrCurrencyNotFound, "Add the currency before making it the default")
				}
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			newDefault = &currency
			updates["default_currency"] = code
		}
	}

	if len(updates) == 0 {
		return settings, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if newDefault != nil {
			if err := rebaseRates(tx, userID, newDefault); err != nil {
				return err
			}
		}
		return tx.Model(settings).Updates(updates).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return ensureSettings(s.db, userID)
}

// rebaseRates divides every rate of the owner by the rate of base.
func rebaseRates(tx *gorm.DB, userID string, base *models.Currency) error {
	if !base.Rate.IsPositive() {
		return finance.ErrInvalidRate
	}
	var currencies []models.Currency
	if err := tx.Where("user_id = ?", userID).Find(&currencies).Error; err != nil {
		return err
	}
	for i := range currencies {
		c := &currencies[i]
		rate := decimal.NewFromInt(1)
		if c.ID != base.ID {
			rate = c.Rate.DivRound(base.Rate, rateScale)
		}
		if err := tx.Model(c).Update("rate", rate).Error; err != nil {
			return err
		}
	}
	return nil
}
