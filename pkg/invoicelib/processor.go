package invoicelib

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rezonia/invoice-mailer/internal/mail"
	"github.com/rezonia/invoice-mailer/internal/processor"
	"github.com/rezonia/invoice-mailer/internal/render"
	"github.com/rezonia/invoice-mailer/internal/store"
)

// MailOptions selects the SMTP relay. Leaving Host and Username empty logs
// messages instead of sending them.
type MailOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Service  string
}

// PipelineOptions configures a Processor
type PipelineOptions struct {
	DatabaseDriver string
	DatabaseURL    string
	ArtifactDir    string
	Mail           MailOptions

	PersistTimeout time.Duration
	RenderTimeout  time.Duration
	DeliverTimeout time.Duration

	Logger *slog.Logger
}

// DefaultPipelineOptions returns options for an in-memory store with logged mail
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		DatabaseDriver: "memory",
		ArtifactDir:    os.TempDir(),
		PersistTimeout: 10 * time.Second,
		RenderTimeout:  30 * time.Second,
		DeliverTimeout: 30 * time.Second,
	}
}

// Processor creates, reads and exports invoices
type Processor struct {
	pipeline *processor.Pipeline
	store    store.Store
}

// NewProcessor connects the store and mail transport described by opts
func NewProcessor(ctx context.Context, opts PipelineOptions) (*Processor, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(ctx, store.Config{Driver: opts.DatabaseDriver, DSN: opts.DatabaseURL})
	if err != nil {
		return nil, err
	}

	sender, err := mail.NewSender(mail.Config(opts.Mail), logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	pipeline := processor.NewPipeline(st, render.NewPDF(), sender,
		processor.WithLogger(logger),
		processor.WithArtifactDir(opts.ArtifactDir),
		processor.WithTimeouts(processor.Timeouts{
			Persist: opts.PersistTimeout,
			Render:  opts.RenderTimeout,
			Deliver: opts.DeliverTimeout,
		}),
	)

	return &Processor{pipeline: pipeline, store: st}, nil
}

// Create stores, renders and mails an invoice. When rendering or delivery
// fails the stored invoice is returned together with the error.
func (p *Processor) Create(ctx context.Context, req Request) (*Invoice, error) {
	result := p.pipeline.Create(ctx, req)
	return result.Invoice, result.Error
}

// Get returns a stored invoice
func (p *Processor) Get(ctx context.Context, id string) (*Invoice, error) {
	return p.pipeline.Get(ctx, id)
}

// ExportPDF writes the document of a stored invoice to w
func (p *Processor) ExportPDF(ctx context.Context, id string, w io.Writer) error {
	_, err := p.pipeline.Export(ctx, id, w)
	return err
}

// Close releases the store connection
func (p *Processor) Close() error {
	return p.store.Close()
}
