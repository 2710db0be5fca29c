package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pennywise/internal/config"
	"pennywise/internal/database"
	"pennywise/internal/forex"
	"pennywise/internal/logger"
	"pennywise/internal/notify"
	"pennywise/internal/router"
	"pennywise/internal/validator"

	_ "pennywise/internal/docs" // Import swagger docs
)

// @title           Pennywise API
// @version         1.0
// @description     Pennywise is a personal budget tracker: categories, transactions, budgets, recurring transactions, bill reminders, currencies and savings goals.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Pipeline key for scheduler routes.

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(appConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = database.DefaultMigrationsPath
	}
	if err := dbManager.RunMigrations(migrationsDir); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	var publisher notify.Publisher = notify.NewLogPublisher(logger.Named("notify"))
	if appConfig.AMQPURL != "" {
		amqpPublisher, err := notify.NewAMQPPublisher(appConfig.AMQPURL, appConfig.AMQPExchange, appConfig.AMQPQueue, logger.Named("amqp"))
		if err != nil {
			log.Warnw("AMQP unavailable, notifications will only be logged", "error", err)
		} else {
			publisher = amqpPublisher
		}
	}
	defer publisher.Close()

	validator.Register()

	rates := forex.NewClient(&http.Client{Timeout: appConfig.RequestTimeout}, appConfig.ForexBaseURL)
	engine := router.New(router.Dependencies{
		DB:             dbManager.DB(),
		Rates:          rates,
		Publisher:      publisher,
		PipelineAPIKey: appConfig.PipelineAPIKey,
		Swagger:        appConfig.Env != "production",
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Pennywise backend server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
