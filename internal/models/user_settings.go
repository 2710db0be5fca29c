package models

// UserSettings holds per-owner preferences. DefaultCurrency must name one of
// the owner's currencies.
type UserSettings struct {
	Base
	UserID              string `gorm:"type:uuid;not null;uniqueIndex" json:"userId"`
	DefaultCurrency     string `gorm:"size:3;not null" json:"defaultCurrency"`
	DefaultNotifyBefore int    `gorm:"not null" json:"defaultNotifyBefore"`
}
