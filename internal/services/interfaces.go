package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pennywise/internal/finance"
	"pennywise/internal/ical"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name string, categoryType models.CategoryType, description, icon, color string) (*models.Category, error)
	GetUserCategories(userID string, page pagination.PageRequest, categoryType *models.CategoryType) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID, name, description, icon, color string) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// TransactionInput holds the fields of a new transaction. An empty Currency
// means the owner's default currency.
type TransactionInput struct {
	CategoryID  string
	Type        models.TransactionType
	Amount      decimal.Decimal
	Currency    string
	Description string
	Date        time.Time
}

// TransactionUpdate holds optional transaction changes; nil fields are kept.
type TransactionUpdate struct {
	CategoryID  *string
	Type        *models.TransactionType
	Amount      *decimal.Decimal
	Currency    *string
	Description *string
	Date        *time.Time
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate    *time.Time
	ToDate      *time.Time
	Type        *models.TransactionType
	CategoryID  *string
	Currency    *string
	RecurringID *string
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID string, in TransactionInput) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, in TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
}

// BudgetInput holds the fields of a new budget. An empty Currency means the
// owner's default currency.
type BudgetInput struct {
	CategoryID string
	Name       string
	Amount     decimal.Decimal
	Currency   string
	Period     models.BudgetPeriod
	StartDate  time.Time
}

// BudgetUpdate holds optional budget changes; nil fields are kept.
type BudgetUpdate struct {
	Name      *string
	Amount    *decimal.Decimal
	Currency  *string
	Period    *models.BudgetPeriod
	StartDate *time.Time
}

// BudgetProgress contains spending vs budget data for one period window.
type BudgetProgress struct {
	BudgetID    string          `json:"budgetId"`
	Budgeted    decimal.Decimal `json:"budgeted"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	Percentage  decimal.Decimal `json:"percentage"`
	Currency    string          `json:"currency"`
	PeriodStart time.Time       `json:"periodStart"`
	PeriodEnd   time.Time       `json:"periodEnd"`
}

// BudgetSummary is a budget together with its derived spending figures.
type BudgetSummary struct {
	models.Budget
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage decimal.Decimal `json:"percentage"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID string, in BudgetInput) (*models.Budget, error)
	GetUserBudgets(userID string, page pagination.PageRequest, period *models.BudgetPeriod, asOf time.Time) (*pagination.PageResponse[BudgetSummary], error)
	GetBudgetByID(userID, budgetID string, asOf time.Time) (*BudgetSummary, error)
	UpdateBudget(userID, budgetID string, in BudgetUpdate) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
	GetBudgetProgress(userID, budgetID string, asOf time.Time) (*BudgetProgress, error)
}

// RecurringInput holds the fields of a new recurring transaction template.
type RecurringInput struct {
	CategoryID  string
	Type        models.TransactionType
	Amount      decimal.Decimal
	Currency    string
	Description string
	Frequency   models.Frequency
	StartDate   time.Time
	EndDate     *time.Time
}

// RecurringUpdate holds optional template changes; nil fields are kept.
// IsActive pauses or resumes the series.
type RecurringUpdate struct {
	CategoryID  *string
	Amount      *decimal.Decimal
	Currency    *string
	Description *string
	Frequency   *models.Frequency
	EndDate     *time.Time
	IsActive    *bool
}

// AdvanceResult is the outcome of materializing a single occurrence.
type AdvanceResult struct {
	Transaction *models.Transaction          `json:"transaction,omitempty"`
	Recurring   *models.RecurringTransaction `json:"recurring"`
}

// ProcessResult summarizes a catch-up run.
type ProcessResult struct {
	TemplatesProcessed  int `json:"templatesProcessed"`
	TransactionsCreated int `json:"transactionsCreated"`
	TemplatesEnded      int `json:"templatesEnded"`
}

// RecurringServicer defines the contract for recurring transaction templates
// and their materialization.
type RecurringServicer interface {
	CreateRecurring(userID string, in RecurringInput) (*models.RecurringTransaction, error)
	GetUserRecurring(userID string, page pagination.PageRequest, isActive *bool) (*pagination.PageResponse[models.RecurringTransaction], error)
	GetRecurringByID(userID, recurringID string) (*models.RecurringTransaction, error)
	UpdateRecurring(userID, recurringID string, in RecurringUpdate) (*models.RecurringTransaction, error)
	DeleteRecurring(userID, recurringID string) error
	AdvanceRecurring(ctx context.Context, userID, recurringID string) (*AdvanceResult, error)
	ProcessDue(ctx context.Context, userID string, today time.Time) (*ProcessResult, error)
	ProcessAllDue(ctx context.Context, today time.Time) (*ProcessResult, error)
}

// ReminderInput holds the fields of a new reminder. A nil NotifyBefore uses
// the owner's default.
type ReminderInput struct {
	Title        string
	Amount       decimal.Decimal
	Currency     string
	DueDate      time.Time
	CategoryID   *string
	IsRecurring  bool
	Frequency    *models.Frequency
	NotifyBefore *int
}

// ReminderUpdate holds optional reminder changes; nil fields are kept.
type ReminderUpdate struct {
	Title        *string
	Amount       *decimal.Decimal
	Currency     *string
	DueDate      *time.Time
	CategoryID   *string
	IsRecurring  *bool
	Frequency    *models.Frequency
	NotifyBefore *int
}

// ReminderFilter narrows reminder listings.
type ReminderFilter struct {
	IsPaid *bool
	Status *finance.ReminderStatus
}

// ReminderView is a reminder evaluated against today.
type ReminderView struct {
	models.Reminder
	finance.ReminderEvaluation
}

// PaymentResult is a paid reminder and, for recurring bills, its successor.
type PaymentResult struct {
	Reminder *ReminderView `json:"reminder"`
	Next     *ReminderView `json:"next,omitempty"`
}

// ReminderServicer defines the contract for bill reminders.
type ReminderServicer interface {
	CreateReminder(userID string, in ReminderInput) (*ReminderView, error)
	CreateReminderFromRecurring(userID, recurringID string, notifyBefore *int) (*ReminderView, error)
	GetUserReminders(userID string, page pagination.PageRequest, filter ReminderFilter) (*pagination.PageResponse[ReminderView], error)
	GetReminderByID(userID, reminderID string) (*ReminderView, error)
	UpdateReminder(userID, reminderID string, in ReminderUpdate) (*ReminderView, error)
	DeleteReminder(userID, reminderID string) error
	PayReminder(userID, reminderID string) (*PaymentResult, error)
	UnpayReminder(userID, reminderID string) (*ReminderView, error)
	ExportCalendar(userID string) (*ical.Calendar, error)
	NotifyDue(ctx context.Context, today time.Time) (int, error)
}

// RateFetcher looks up how many units of "to" one unit of "from" buys.
type RateFetcher interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// CurrencyServicer defines the contract for an owner's currencies and rates.
type CurrencyServicer interface {
	CreateCurrency(userID, code, name, symbol string, rate decimal.Decimal) (*models.Currency, error)
	GetUserCurrencies(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Currency], error)
	GetCurrency(userID, code string) (*models.Currency, error)
	UpdateCurrency(userID, code string, name, symbol *string, rate *decimal.Decimal) (*models.Currency, error)
	DeleteCurrency(userID, code string) error
	RefreshRates(ctx context.Context, userID string) ([]models.Currency, error)
}

// SettingsUpdate holds optional settings changes; nil fields are kept.
type SettingsUpdate struct {
	DefaultCurrency     *string
	DefaultNotifyBefore *int
}

// SettingsServicer defines the contract for per-owner settings.
type SettingsServicer interface {
	GetSettings(userID string) (*models.UserSettings, error)
	UpdateSettings(userID string, in SettingsUpdate) (*models.UserSettings, error)
}

// GoalInput holds the fields of a new savings goal.
type GoalInput struct {
	Name         string
	TargetAmount decimal.Decimal
	Currency     string
	TargetDate   *time.Time
	Icon         string
	Color        string
}

// GoalUpdate holds optional goal changes; nil fields are kept.
type GoalUpdate struct {
	Name         *string
	TargetAmount *decimal.Decimal
	TargetDate   *time.Time
	Icon         *string
	Color        *string
}

// GoalServicer defines the contract for savings goals.
type GoalServicer interface {
	CreateGoal(userID string, in GoalInput) (*models.Goal, error)
	GetUserGoals(userID string, page pagination.PageRequest, isCompleted *bool) (*pagination.PageResponse[models.Goal], error)
	GetGoalByID(userID, goalID string) (*models.Goal, error)
	UpdateGoal(userID, goalID string, in GoalUpdate) (*models.Goal, error)
	DeleteGoal(userID, goalID string) error
	Contribute(userID, goalID string, amount decimal.Decimal) (*models.Goal, error)
}

// ReportSummary totals income and expense over a date range in the owner's
// default currency.
type ReportSummary struct {
	From             time.Time       `json:"from"`
	To               time.Time       `json:"to"`
	Currency         string          `json:"currency"`
	Income           decimal.Decimal `json:"income"`
	Expense          decimal.Decimal `json:"expense"`
	Net              decimal.Decimal `json:"net"`
	TransactionCount int             `json:"transactionCount"`
}

// CategoryTotal is one row of a category breakdown.
type CategoryTotal struct {
	CategoryID   string          `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Total        decimal.Decimal `json:"total"`
	Count        int             `json:"count"`
	Percentage   decimal.Decimal `json:"percentage"`
}

// CategoryReport breaks one transaction type down by category.
type CategoryReport struct {
	From       time.Time              `json:"from"`
	To         time.Time              `json:"to"`
	Currency   string                 `json:"currency"`
	Type       models.TransactionType `json:"type"`
	Total      decimal.Decimal        `json:"total"`
	Categories []CategoryTotal        `json:"categories"`
}

// ReportServicer defines the contract for reporting.
type ReportServicer interface {
	GetSummary(userID string, from, to time.Time) (*ReportSummary, error)
	GetCategoryBreakdown(userID string, from, to time.Time, txType models.TransactionType) (*CategoryReport, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
