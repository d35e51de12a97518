// Package processor runs the invoice pipeline: normalize, persist, render,
// deliver, clean up. Each run is independent; collaborators are shared.
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rezonia/invoice-mailer/internal/billing"
	"github.com/rezonia/invoice-mailer/internal/mail"
	"github.com/rezonia/invoice-mailer/internal/model"
	"github.com/rezonia/invoice-mailer/internal/render"
)

// Store is the durable record keeper the pipeline writes to and reads from
type Store interface {
	Create(ctx context.Context, draft *model.Draft) (*model.Invoice, error)
	Get(ctx context.Context, id string) (*model.Invoice, error)
}

// Renderer lays out an invoice document onto w
type Renderer interface {
	Render(w io.Writer, inv *model.Invoice) error
}

// Sender mails one message with an attachment
type Sender interface {
	Send(ctx context.Context, to, subject, body string, att mail.Attachment) error
}

// Stage is the last state a pipeline run reached
type Stage string

const (
	StageNone       Stage = ""
	StageNormalized Stage = "normalized"
	StagePersisted  Stage = "persisted"
	StageRendered   Stage = "rendered"
	StageDelivered  Stage = "delivered"
	StageCleaned    Stage = "cleaned"
)

// Result holds the outcome of a pipeline run. On failure Stage is the last
// state completed before the error; Invoice is set once the record is stored.
type Result struct {
	Invoice *model.Invoice
	Stage   Stage
	Pages   int
	Error   error
}

// Persisted reports whether the run left a stored invoice behind
func (r *Result) Persisted() bool {
	return r.Invoice != nil
}

// Timeouts bound the individual I/O steps. Zero leaves a step unbounded.
type Timeouts struct {
	Persist time.Duration
	Render  time.Duration
	Deliver time.Duration
}

// Stats is a snapshot of pipeline counters
type Stats struct {
	Runs            int64 `json:"runs"`
	Delivered       int64 `json:"delivered"`
	Failed          int64 `json:"failed"`
	CleanupFailures int64 `json:"cleanupFailures"`
}

// Pipeline orchestrates invoice creation and export
type Pipeline struct {
	store    Store
	renderer Renderer
	sender   Sender
	logger   *slog.Logger
	dir      string
	timeouts Timeouts
	check    func([]byte) (int, error)

	runs            atomic.Int64
	delivered       atomic.Int64
	failed          atomic.Int64
	cleanupFailures atomic.Int64
}

// Option configures the pipeline
type Option func(*Pipeline)

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithArtifactDir sets where transient documents are written
func WithArtifactDir(dir string) Option {
	return func(p *Pipeline) {
		if dir != "" {
			p.dir = dir
		}
	}
}

// WithTimeouts bounds the persist, render and deliver steps
func WithTimeouts(t Timeouts) Option {
	return func(p *Pipeline) {
		p.timeouts = t
	}
}

// WithDocumentCheck replaces the readability check run on rendered
// documents before delivery. A nil check disables it.
func WithDocumentCheck(check func([]byte) (int, error)) Option {
	return func(p *Pipeline) {
		p.check = check
	}
}

// NewPipeline creates a pipeline over the given collaborators
func NewPipeline(store Store, renderer Renderer, sender Sender, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    store,
		renderer: renderer,
		sender:   sender,
		logger:   slog.Default(),
		dir:      os.TempDir(),
		check:    render.Inspect,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Stats returns the current counters
func (p *Pipeline) Stats() Stats {
	return Stats{
		Runs:            p.runs.Load(),
		Delivered:       p.delivered.Load(),
		Failed:          p.failed.Load(),
		CleanupFailures: p.cleanupFailures.Load(),
	}
}

// Create runs the full pipeline for one request. Failures after persistence
// leave the stored invoice in place.
func (p *Pipeline) Create(ctx context.Context, req billing.Request) *Result {
	p.runs.Add(1)
	res := &Result{}

	draft := billing.Prepare(req)
	res.Stage = StageNormalized
	p.logger.DebugContext(ctx, "invoice normalized", "stage", res.Stage, "items", len(draft.Items), "total", draft.Total)

	if err := billing.Validate(draft); err != nil {
		return p.fail(ctx, res, err)
	}

	inv, err := p.persist(ctx, draft)
	if err != nil {
		return p.fail(ctx, res, err)
	}
	res.Invoice = inv
	res.Stage = StagePersisted
	p.logger.DebugContext(ctx, "invoice persisted", "stage", res.Stage, "invoice_id", inv.ID)

	path := filepath.Join(p.dir, inv.DocumentName())
	data, pages, err := p.renderArtifact(ctx, inv, path)
	if err != nil {
		p.cleanup(ctx, inv.ID, path)
		return p.fail(ctx, res, err)
	}
	res.Pages = pages
	res.Stage = StageRendered
	p.logger.DebugContext(ctx, "invoice rendered", "stage", res.Stage, "invoice_id", inv.ID, "pages", pages, "bytes", len(data))

	if err := p.deliver(ctx, inv, data); err != nil {
		p.cleanup(ctx, inv.ID, path)
		return p.fail(ctx, res, err)
	}
	res.Stage = StageDelivered
	p.delivered.Add(1)
	p.logger.DebugContext(ctx, "invoice delivered", "stage", res.Stage, "invoice_id", inv.ID, "to", inv.ClientEmail)

	p.cleanup(ctx, inv.ID, path)
	res.Stage = StageCleaned

	return res
}

// Get returns a stored invoice
func (p *Pipeline) Get(ctx context.Context, id string) (*model.Invoice, error) {
	ctx, cancel := p.bound(ctx, p.timeouts.Persist)
	defer cancel()

	inv, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, asPersistenceError("get", err)
	}
	return inv, nil
}

// Export renders a stored invoice to w without delivery. Nothing is written
// to w unless rendering succeeds.
func (p *Pipeline) Export(ctx context.Context, id string, w io.Writer) (*model.Invoice, error) {
	inv, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := p.renderTo(ctx, &buf, inv); err != nil {
		return inv, err
	}
	if _, err := buf.WriteTo(w); err != nil {
		return inv, model.NewRenderError(inv.ID, "write document", err)
	}
	return inv, nil
}

func (p *Pipeline) fail(ctx context.Context, res *Result, err error) *Result {
	p.failed.Add(1)
	res.Error = err

	attrs := []any{"stage", res.Stage, "error", err}
	if res.Invoice != nil {
		attrs = append(attrs, "invoice_id", res.Invoice.ID)
	}

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		p.logger.InfoContext(ctx, "invoice rejected", attrs...)
	} else {
		p.logger.ErrorContext(ctx, "invoice pipeline failed", attrs...)
	}
	return res
}

func (p *Pipeline) bound(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (p *Pipeline) persist(ctx context.Context, draft *model.Draft) (*model.Invoice, error) {
	ctx, cancel := p.bound(ctx, p.timeouts.Persist)
	defer cancel()

	inv, err := p.store.Create(ctx, draft)
	if err != nil {
		return nil, asPersistenceError("create", err)
	}
	return inv, nil
}

// renderArtifact writes the document to path and reads it back as the
// attachment payload, checking that it parses as a document.
func (p *Pipeline) renderArtifact(ctx context.Context, inv *model.Invoice, path string) ([]byte, int, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, 0, model.NewRenderError(inv.ID, "create artifact", err)
	}

	err = p.renderTo(ctx, f, inv)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = model.NewRenderError(inv.ID, "close artifact", cerr)
	}
	if err != nil {
		return nil, 0, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, model.NewRenderError(inv.ID, "read artifact", err)
	}
	if p.check == nil {
		return data, 0, nil
	}
	pages, err := p.check(data)
	if err != nil {
		return nil, 0, model.NewRenderError(inv.ID, "unreadable document", err)
	}
	return data, pages, nil
}

// renderTo runs the renderer under the render timeout. On timeout the
// renderer goroutine finishes in the background against w, so w must be
// owned by the pipeline.
func (p *Pipeline) renderTo(ctx context.Context, w io.Writer, inv *model.Invoice) error {
	ctx, cancel := p.bound(ctx, p.timeouts.Render)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- p.renderer.Render(w, inv)
	}()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		var re *model.RenderError
		if errors.As(err, &re) {
			return err
		}
		return model.NewRenderError(inv.ID, "render document", err)
	case <-ctx.Done():
		return model.NewRenderError(inv.ID, "render interrupted", ctx.Err())
	}
}

func (p *Pipeline) deliver(ctx context.Context, inv *model.Invoice, data []byte) error {
	ctx, cancel := p.bound(ctx, p.timeouts.Deliver)
	defer cancel()

	att := mail.Attachment{
		Name:        inv.DocumentName(),
		ContentType: render.ContentType,
		Data:        data,
	}

	err := p.sender.Send(ctx, inv.ClientEmail, mail.Subject(inv.ID), mail.Body(inv.ClientName), att)
	if err == nil {
		return nil
	}

	var de *model.DeliveryError
	if errors.As(err, &de) {
		return err
	}
	return model.NewDeliveryError(inv.ClientEmail, "send invoice", err)
}

// cleanup removes the transient artifact. Failure is logged and counted only.
func (p *Pipeline) cleanup(ctx context.Context, invoiceID, path string) {
	err := os.Remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return
	}

	p.cleanupFailures.Add(1)
	p.logger.WarnContext(ctx, "failed to remove invoice artifact",
		"invoice_id", invoiceID,
		"path", path,
		"error", err,
	)
}

func asPersistenceError(op string, err error) error {
	var pe *model.PersistenceError
	var nf *model.NotFoundError
	if errors.As(err, &pe) || errors.As(err, &nf) {
		return err
	}
	return model.NewPersistenceError(op, fmt.Sprintf("store %s failed", op), err)
}
