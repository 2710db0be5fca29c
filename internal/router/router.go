// Package router assembles the HTTP surface: services, handlers, middleware
// and routes. Both cmd/api and the integration tests build the engine here.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"pennywise/internal/handlers"
	"pennywise/internal/middleware"
	"pennywise/internal/notify"
	"pennywise/internal/services"
)

// Dependencies are the external collaborators the API needs.
type Dependencies struct {
	DB *gorm.DB
	// Rates backs POST /currencies/refresh. Nil disables the refresh.
	Rates services.RateFetcher
	// Publisher receives reminder and materialization events. Nil means no-op.
	Publisher notify.Publisher
	// PipelineAPIKey guards /internal/v1. Empty makes those routes answer 503.
	PipelineAPIKey string
	// Swagger mounts /swagger/*any when set.
	Swagger bool
}

// New builds the gin engine with every route registered.
func New(deps Dependencies) *gin.Engine {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}

	db := deps.DB
	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db)
	budgetService := services.NewBudgetService(db)
	recurringService := services.NewRecurringService(db, publisher)
	reminderService := services.NewReminderService(db, publisher)
	currencyService := services.NewCurrencyService(db, deps.Rates)
	settingsService := services.NewSettingsService(db)
	goalService := services.NewGoalService(db)
	reportService := services.NewReportService(db)
	auditService := services.NewAuditService(db)

	authHandler := handlers.NewAuthHandler(userService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	recurringHandler := handlers.NewRecurringHandler(recurringService, reminderService, auditService)
	reminderHandler := handlers.NewReminderHandler(reminderService, auditService)
	currencyHandler := handlers.NewCurrencyHandler(currencyService, auditService)
	settingsHandler := handlers.NewSettingsHandler(settingsService, auditService)
	goalHandler := handlers.NewGoalHandler(goalService, auditService)
	reportHandler := handlers.NewReportHandler(reportService)
	internalHandler := handlers.NewInternalHandler(recurringService, reminderService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS())

	if deps.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.GET("/:id/progress", budgetHandler.GetBudgetProgress)

	recurring := protected.Group("/recurring")
	recurring.POST("", recurringHandler.CreateRecurring)
	recurring.GET("", recurringHandler.GetRecurring)
	recurring.POST("/process", recurringHandler.ProcessRecurring)
	recurring.GET("/:id", recurringHandler.GetRecurringByID)
	recurring.PUT("/:id", recurringHandler.UpdateRecurring)
	recurring.DELETE("/:id", recurringHandler.DeleteRecurring)
	recurring.POST("/:id/advance", recurringHandler.AdvanceRecurring)
	recurring.POST("/:id/reminder", recurringHandler.CreateReminder)

	reminders := protected.Group("/reminders")
	reminders.POST("", reminderHandler.CreateReminder)
	reminders.GET("", reminderHandler.GetReminders)
	reminders.GET("/calendar.ics", reminderHandler.ExportCalendar)
	reminders.GET("/:id", reminderHandler.GetReminder)
	reminders.PUT("/:id", reminderHandler.UpdateReminder)
	reminders.DELETE("/:id", reminderHandler.DeleteReminder)
	reminders.POST("/:id/pay", reminderHandler.PayReminder)
	reminders.POST("/:id/unpay", reminderHandler.UnpayReminder)

	currencies := protected.Group("/currencies")
	currencies.POST("", currencyHandler.CreateCurrency)
	currencies.GET("", currencyHandler.GetCurrencies)
	currencies.POST("/refresh", currencyHandler.RefreshRates)
	currencies.GET("/:code", currencyHandler.GetCurrency)
	currencies.PUT("/:code", currencyHandler.UpdateCurrency)
	currencies.DELETE("/:code", currencyHandler.DeleteCurrency)

	protected.GET("/settings", settingsHandler.GetSettings)
	protected.PUT("/settings", settingsHandler.UpdateSettings)

	goals := protected.Group("/goals")
	goals.POST("", goalHandler.CreateGoal)
	goals.GET("", goalHandler.GetGoals)
	goals.GET("/:id", goalHandler.GetGoal)
	goals.PUT("/:id", goalHandler.UpdateGoal)
	goals.DELETE("/:id", goalHandler.DeleteGoal)
	goals.POST("/:id/contribute", goalHandler.Contribute)

	reports := protected.Group("/reports")
	reports.GET("/summary", reportHandler.GetSummary)
	reports.GET("/categories", reportHandler.GetCategoryBreakdown)

	// Scheduler routes
	internal := router.Group("/internal/v1")
	internal.Use(middleware.InternalAuthMiddleware(deps.PipelineAPIKey))
	internal.POST("/recurring/process", internalHandler.ProcessRecurring)
	internal.POST("/reminders/notify", internalHandler.NotifyReminders)

	return router
}
