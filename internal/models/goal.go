package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal is a savings target the owner contributes towards.
type Goal struct {
	Base
	UserID        string          `gorm:"type:uuid;not null;index" json:"userId"`
	Name          string          `gorm:"not null" json:"name"`
	TargetAmount  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"targetAmount"`
	CurrentAmount decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"currentAmount"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	TargetDate    *time.Time      `json:"targetDate,omitempty"`
	Icon          string          `json:"icon"`
	Color         string          `json:"color"`
	IsCompleted   bool            `gorm:"not null" json:"isCompleted"`
}
