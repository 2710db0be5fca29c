package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pennywise/internal/config"
	"pennywise/internal/database"
	"pennywise/internal/logger"
	"pennywise/internal/notify"
	"pennywise/internal/services"
	"pennywise/internal/worker"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run both jobs now and then on every interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().Duration("interval", 0, "time between runs (default from WORKER_INTERVAL)")
	_ = viper.BindPFlag("worker.interval", cmd.Flags().Lookup("interval"))
	return cmd
}

func onceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run both jobs a single time and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := w.RunOnce(cmd.Context())
			if report.Recurring != nil {
				logger.Get().Infow("Run finished",
					"created", report.Recurring.TransactionsCreated,
					"notifications", report.Notifications,
				)
			}
			return err
		},
	}
}

// setup wires the database, publisher and services behind a Worker. The
// returned cleanup closes everything setup opened.
func setup() (*worker.Worker, func(), error) {
	env := viper.GetString("env")
	if env == "" {
		env = os.Getenv("ENV")
	}
	logger.Init(env)
	log := logger.Named("worker")

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if dir := viper.GetString("migrations"); dir != "" {
		if err := dbManager.RunMigrations(dir); err != nil {
			dbManager.Close()
			return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	var publisher notify.Publisher = notify.NewLogPublisher(logger.Named("notify"))
	if cfg.AMQPURL != "" {
		amqpPublisher, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.Named("amqp"))
		if err != nil {
			log.Warnw("AMQP unavailable, notifications will only be logged", "error", err)
		} else {
			publisher = amqpPublisher
		}
	}

	interval := viper.GetDuration("worker.interval")
	if interval <= 0 {
		interval = cfg.WorkerInterval
	}

	db := dbManager.DB()
	w := worker.New(
		services.NewRecurringService(db, publisher),
		services.NewReminderService(db, publisher),
		interval,
		log,
	)

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			log.Warnw("Failed to close publisher", "error", err)
		}
		if err := dbManager.Close(); err != nil {
			log.Warnw("Failed to close database", "error", err)
		}
		logger.Sync()
	}
	return w, cleanup, nil
}
