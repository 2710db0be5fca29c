package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the step between two occurrences of a recurring series.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// RecurringTransaction is a template that materializes a Transaction on
// every occurrence. NextDueDate is the first occurrence not yet materialized.
type RecurringTransaction struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index" json:"userId"`
	CategoryID  string          `gorm:"type:uuid;not null;index" json:"categoryId"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	Description string          `json:"description"`
	Frequency   Frequency       `gorm:"not null" json:"frequency"`
	StartDate   time.Time       `gorm:"not null" json:"startDate"`
	EndDate     *time.Time      `json:"endDate,omitempty"`
	NextDueDate time.Time       `gorm:"not null;index" json:"nextDueDate"`
	IsActive    bool            `gorm:"not null;index" json:"isActive"`
	LastRunAt   *time.Time      `json:"lastRunAt,omitempty"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
