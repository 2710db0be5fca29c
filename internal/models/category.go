package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category groups transactions, budgets, recurring templates and reminders.
// Names are unique per owner among live rows.
type Category struct {
	Base
	UserID      string       `gorm:"type:uuid;not null;uniqueIndex:idx_categories_user_name,where:deleted_at IS NULL" json:"userId"`
	Name        string       `gorm:"not null;uniqueIndex:idx_categories_user_name,where:deleted_at IS NULL" json:"name"`
	Type        CategoryType `gorm:"not null" json:"type"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Color       string       `json:"color"`
}
