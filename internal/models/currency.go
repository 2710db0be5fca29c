package models

import "github.com/shopspring/decimal"

// Currency is an owner's exchange-rate entry. Rate is the number of units of
// this currency per one unit of the owner's default currency, so the default
// currency always has rate 1.
type Currency struct {
	Base
	UserID string          `gorm:"type:uuid;not null;uniqueIndex:idx_currencies_user_code,where:deleted_at IS NULL" json:"userId"`
	Code   string          `gorm:"size:3;not null;uniqueIndex:idx_currencies_user_code,where:deleted_at IS NULL" json:"code"`
	Name   string          `gorm:"not null" json:"name"`
	Symbol string          `json:"symbol"`
	Rate   decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"rate"`
}
