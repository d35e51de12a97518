package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-mailer/internal/config"
)

var (
	version = "1.0.0"

	// Global flags
	configFile   string
	verbose      bool
	outputFormat string
	logFormat    string
	databaseURL  string
	tempDir      string
)

var rootCmd = &cobra.Command{
	Use:   "invoice-mailer",
	Short: "Create, render and email invoices",
	Long: `Invoice Mailer prices client orders, stores them as invoices, renders
each invoice as a PDF and emails it to the client.

Configuration is read from an optional YAML file, a .env file and the
environment (PORT, DATABASE_DRIVER, DATABASE_URL, EMAIL_HOST, EMAIL_PORT,
EMAIL_USER, EMAIL_PASS, EMAIL_FROM, EMAIL_SERVICE, TEMP_DIR, REDIS_ADDR,
CORS_ORIGINS). Flags override both.

Examples:
  # Start the HTTP API
  invoice-mailer serve --config invoice-mailer.yaml

  # Price an order without storing it
  invoice-mailer quote order.json -f table

  # Download a stored invoice
  invoice-mailer export 3f1c... -o invoice.pdf

  # Create the SQL schema
  DATABASE_DRIVER=postgres DATABASE_URL=postgres://... invoice-mailer migrate`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (env: INVOICE_MAILER_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Database connection string (env: DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&tempDir, "temp-dir", "", "Directory for transient documents (env: TEMP_DIR)")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if configFile == "" {
		configFile = os.Getenv("INVOICE_MAILER_CONFIG")
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// loadConfig merges file, environment and global flags and validates the result
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("database-url") {
		cfg.Database.URL = databaseURL
	}
	if flags.Changed("temp-dir") {
		cfg.Storage.TempDir = tempDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), d)
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
