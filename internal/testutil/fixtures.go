package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"pennywise/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Dec parses a decimal literal and panics on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Date returns the UTC midnight of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email. The password
// is always "password123".
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestSettings stores settings with the given default currency and
// registers that currency with rate 1.
func CreateTestSettings(t *testing.T, db *gorm.DB, userID, defaultCurrency string) *models.UserSettings {
	t.Helper()

	CreateTestCurrency(t, db, userID, defaultCurrency, "1")

	settings := &models.UserSettings{
		UserID:              userID,
		DefaultCurrency:     defaultCurrency,
		DefaultNotifyBefore: 3,
	}
	if err := db.Create(settings).Error; err != nil {
		t.Fatalf("failed to create test settings: %v", err)
	}
	return settings
}

// CreateTestCurrency creates a currency with the given rate per default unit.
func CreateTestCurrency(t *testing.T, db *gorm.DB, userID, code, rate string) *models.Currency {
	t.Helper()

	currency := &models.Currency{
		UserID: userID,
		Code:   code,
		Name:   code,
		Rate:   Dec(rate),
	}
	if err := db.Create(currency).Error; err != nil {
		t.Fatalf("failed to create test currency: %v", err)
	}
	return currency
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Type:   categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a USD transaction on the given date.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, categoryID string, txType models.TransactionType, amount string, date time.Time) *models.Transaction {
	t.Helper()
	return CreateTestTransactionInCurrency(t, db, userID, categoryID, txType, amount, "USD", date)
}

// CreateTestTransactionInCurrency creates a transaction in the given currency.
func CreateTestTransactionInCurrency(t *testing.T, db *gorm.DB, userID, categoryID string, txType models.TransactionType, amount, currency string, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:      userID,
		CategoryID:  categoryID,
		Type:        txType,
		Amount:      Dec(amount),
		Currency:    currency,
		Description: fmt.Sprintf("Test Transaction %d", nextID()),
		Date:        date,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestBudget creates a monthly USD budget of 100 starting 2024-01-01.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, categoryID string) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:     userID,
		CategoryID: categoryID,
		Name:       fmt.Sprintf("Test Budget %d", nextID()),
		Amount:     Dec("100"),
		Currency:   "USD",
		Period:     models.BudgetPeriodMonthly,
		StartDate:  Date(2024, 1, 1),
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestRecurring creates an active USD expense template of 50 whose
// first occurrence is start.
func CreateTestRecurring(t *testing.T, db *gorm.DB, userID, categoryID string, freq models.Frequency, start time.Time) *models.RecurringTransaction {
	t.Helper()

	rt := &models.RecurringTransaction{
		UserID:      userID,
		CategoryID:  categoryID,
		Type:        models.TransactionTypeExpense,
		Amount:      Dec("50"),
		Currency:    "USD",
		Description: fmt.Sprintf("Test Recurring %d", nextID()),
		Frequency:   freq,
		StartDate:   start,
		NextDueDate: start,
		IsActive:    true,
	}
	if err := db.Create(rt).Error; err != nil {
		t.Fatalf("failed to create test recurring transaction: %v", err)
	}
	return rt
}

// CreateTestReminder creates an unpaid one-off reminder of 75 USD.
func CreateTestReminder(t *testing.T, db *gorm.DB, userID string, dueDate time.Time) *models.Reminder {
	t.Helper()

	reminder := &models.Reminder{
		UserID:       userID,
		Title:        fmt.Sprintf("Test Bill %d", nextID()),
		Amount:       Dec("75"),
		Currency:     "USD",
		DueDate:      dueDate,
		NotifyBefore: 3,
	}
	if err := db.Create(reminder).Error; err != nil {
		t.Fatalf("failed to create test reminder: %v", err)
	}
	return reminder
}

// CreateTestRecurringReminder creates an unpaid reminder repeating at freq.
func CreateTestRecurringReminder(t *testing.T, db *gorm.DB, userID string, dueDate time.Time, freq models.Frequency) *models.Reminder {
	t.Helper()

	reminder := &models.Reminder{
		UserID:       userID,
		Title:        fmt.Sprintf("Test Recurring Bill %d", nextID()),
		Amount:       Dec("75"),
		Currency:     "USD",
		DueDate:      dueDate,
		IsRecurring:  true,
		Frequency:    &freq,
		NotifyBefore: 3,
	}
	if err := db.Create(reminder).Error; err != nil {
		t.Fatalf("failed to create test reminder: %v", err)
	}
	return reminder
}

// CreateTestGoal creates a USD goal with a target of 1000 and nothing saved.
func CreateTestGoal(t *testing.T, db *gorm.DB, userID string) *models.Goal {
	t.Helper()

	goal := &models.Goal{
		UserID:        userID,
		Name:          fmt.Sprintf("Test Goal %d", nextID()),
		TargetAmount:  Dec("1000"),
		CurrentAmount: decimal.Zero,
		Currency:      "USD",
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return goal
}
