package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-mailer/internal/server"
	"github.com/rezonia/invoice-mailer/internal/store"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
	autoMigrate  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for creating and downloading invoices.

The API provides endpoints for:
  - POST /invoices           - Create, store, render and email an invoice
  - GET  /invoices/:id       - Fetch a stored invoice
  - GET  /invoices/:id/pdf   - Download the invoice document
  - GET  /health             - Health check with pipeline counters

POST /invoices accepts an optional Idempotency-Key header; a repeated key
is answered with 409.

Examples:
  # Start server on the configured port (default :5000)
  invoice-mailer serve

  # Start on a custom address against PostgreSQL
  invoice-mailer serve --address :8080 --database-url postgres://...

  # Start in debug mode
  invoice-mailer serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (env: PORT)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 2*time.Minute, "HTTP write timeout")
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "Create the SQL schema on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("address") {
		cfg.Server.Address = serverAddr
	}
	if flags.Changed("debug") {
		cfg.Server.Debug = serverDebug
	}
	if flags.Changed("read-timeout") {
		cfg.Server.ReadTimeout = readTimeout
	}
	if flags.Changed("write-timeout") {
		cfg.Server.WriteTimeout = writeTimeout
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if sqlStore, ok := st.(*store.SQL); ok && autoMigrate {
		if err := sqlStore.Migrate(ctx); err != nil {
			return err
		}
	}

	sender, err := newSender(cfg, logger)
	if err != nil {
		return fmt.Errorf("mail transport: %w", err)
	}

	guard, closeGuard, err := newGuard(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGuard()

	if err := os.MkdirAll(cfg.Storage.TempDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}

	pipeline := newPipeline(st, sender, cfg, logger)

	srv := server.NewServer(&server.Config{
		Address:         cfg.Server.Address,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		RequestTimeout:  cfg.Server.RequestTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		BodyLimit:       cfg.Server.BodyLimit,
		CORSOrigins:     cfg.Server.CORSOrigins,
		Debug:           cfg.Server.Debug,
	}, pipeline, guard, logger)

	return srv.Run(ctx)
}
