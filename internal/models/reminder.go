package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reminder is a bill that falls due on DueDate. Paying a recurring reminder
// creates its successor, linked through PreviousID.
type Reminder struct {
	Base
	UserID         string          `gorm:"type:uuid;not null;index" json:"userId"`
	CategoryID     *string         `gorm:"type:uuid" json:"categoryId,omitempty"`
	Title          string          `gorm:"not null" json:"title"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Currency       string          `gorm:"size:3;not null" json:"currency"`
	DueDate        time.Time       `gorm:"not null;index" json:"dueDate"`
	IsRecurring    bool            `gorm:"not null" json:"isRecurring"`
	Frequency      *Frequency      `json:"frequency,omitempty"`
	IsPaid         bool            `gorm:"not null;index" json:"isPaid"`
	PaidAt         *time.Time      `json:"paidAt,omitempty"`
	NotifyBefore   int             `gorm:"not null" json:"notifyBefore"`
	PreviousID     *string         `gorm:"type:uuid;index" json:"previousId,omitempty"`
	RecurringID    *string         `gorm:"type:uuid;index" json:"recurringId,omitempty"`
	LastNotifiedAt *time.Time      `json:"lastNotifiedAt,omitempty"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
