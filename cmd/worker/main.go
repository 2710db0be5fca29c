package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "pennywise-worker",
		Short: "Background jobs for Pennywise",
		Long: `pennywise-worker materializes due recurring transactions and sends
bill reminder notifications. Use "run" for the periodic loop and "once" for a
single pass from cron.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./pennywise-worker.yaml)")
	rootCmd.PersistentFlags().String("env", "", "logging environment (production, development)")
	rootCmd.PersistentFlags().String("migrations", "", "migrations directory; empty skips migrations")

	_ = viper.BindPFlag("env", rootCmd.PersistentFlags().Lookup("env"))
	_ = viper.BindPFlag("migrations", rootCmd.PersistentFlags().Lookup("migrations"))

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(onceCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("pennywise-worker")
		viper.SetConfigType("yaml")
	}

	// PENNYWISE_WORKER_INTERVAL overrides worker.interval, and so on.
	viper.SetEnvPrefix("PENNYWISE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}
