package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-mailer/internal/processor"
	"github.com/rezonia/invoice-mailer/internal/render"
)

var (
	exportOutput  string
	exportTimeout time.Duration
)

var exportCmd = &cobra.Command{
	Use:   "export <invoice-id>",
	Short: "Render a stored invoice to a PDF file",
	Long: `Fetch a stored invoice and write its PDF document without emailing it.

The document is written to invoice_<id>.pdf unless --output is given;
use "-o -" to write to stdout.

Examples:
  invoice-mailer export 3f1c2a9e-... --database-url postgres://...
  invoice-mailer export 3f1c2a9e-... -o - > invoice.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: invoice_<id>.pdf)")
	exportCmd.Flags().DurationVar(&exportTimeout, "timeout", 30*time.Second, "Export timeout")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, exportTimeout)
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// Export never delivers, so no sender is needed
	pipeline := processor.NewPipeline(st, render.NewPDF(), nil,
		processor.WithLogger(slog.Default()),
		processor.WithTimeouts(processor.Timeouts{
			Persist: cfg.Pipeline.PersistTimeout,
			Render:  cfg.Pipeline.RenderTimeout,
		}),
	)

	var buf bytes.Buffer
	inv, err := pipeline.Export(ctx, args[0], &buf)
	if err != nil {
		return err
	}

	pages, err := render.Inspect(buf.Bytes())
	if err != nil {
		return fmt.Errorf("rendered document is unreadable: %w", err)
	}

	var w io.Writer = os.Stdout
	target := exportOutput
	if target == "" {
		target = inv.DocumentName()
	}
	if target != "-" {
		f, err := os.Create(target)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	printVerbose("Wrote %s (%d pages)\n", target, pages)
	return nil
}
