/*
main.go - Application entry point

PURPOSE:
  The ledger command. Loads configuration, builds the logger and dispatches
  to a subcommand.

COMMANDS:
  serve    Start the HTTP API (graceful shutdown on SIGINT/SIGTERM)
  verify   Re-open every stored book, re-verifying its full history

GLOBAL FLAGS:
  --config      Config file (default: ./ledger.yaml or ~/.config/ledger/ledger.yaml)
  --db          SQLite database path, ":memory:" for an in-memory database
  --log-level   debug, info, warn, error
  --log-format  text, json

ENVIRONMENT:
  Every key can be set with the LEDGER_ prefix, e.g. LEDGER_SERVER_PORT,
  LEDGER_DATABASE_PATH. A .env file in the working directory is loaded first.

EXAMPLES:
  # Run with file database
  ledger serve --db=./data/ledger.db

  # Run with in-memory database on a different port
  ledger serve --db=":memory:" --port=3000

  # Check stored books
  ledger verify

SEE ALSO:
  - config/config.go: Keys and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/warp/invariant-ledger/config"
	"github.com/warp/invariant-ledger/store/sqlite"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger

	rootCmd = &cobra.Command{
		Use:               "ledger",
		Short:             "Invariant-verified double-entry ledger",
		Long:              `ledger records transactions into books and refuses every batch that would break one of the book's rules.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./ledger.yaml)")
	rootCmd.PersistentFlags().String("db", "ledger.db", "SQLite database path")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	// Bind flags to viper
	_ = viper.BindPFlag(config.KeyDBPath, rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(verifyCmd())
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
	var err error
	if cfg, err = config.Load(viper.GetViper(), cfgFile); err != nil {
		return err
	}
	if logger, err = config.NewLogger(cfg, os.Stderr); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	slog.SetDefault(logger)
	return nil
}

func openStore() (*sqlite.Store, error) {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}
