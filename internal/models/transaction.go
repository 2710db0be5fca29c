package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction represents a single income or expense entry.
//
// Transactions materialized from a recurring template carry RecurringID and
// OccurrenceDate. The pair is unique, so an occurrence is stored at most once
// no matter how many processors race on it.
type Transaction struct {
	Base
	UserID         string          `gorm:"type:uuid;not null;index" json:"userId"`
	CategoryID     string          `gorm:"type:uuid;not null;index" json:"categoryId"`
	Type           TransactionType `gorm:"not null" json:"type"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Currency       string          `gorm:"size:3;not null" json:"currency"`
	Description    string          `json:"description"`
	Date           time.Time       `gorm:"not null;index" json:"date"`
	RecurringID    *string         `gorm:"type:uuid;uniqueIndex:idx_transactions_recurring_occurrence" json:"recurringId,omitempty"`
	OccurrenceDate *time.Time      `gorm:"uniqueIndex:idx_transactions_recurring_occurrence" json:"occurrenceDate,omitempty"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
