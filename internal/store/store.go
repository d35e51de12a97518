// Package store persists invoice records. The store assigns identity and
// creation time and is the single source of truth for stored invoices.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rezonia/invoice-mailer/internal/model"
)

// Store is a durable invoice record keeper
type Store interface {
	// Create assigns identity and creation time and persists the draft
	Create(ctx context.Context, draft *model.Draft) (*model.Invoice, error)

	// Get returns the invoice with the given identity or a *model.NotFoundError
	Get(ctx context.Context, id string) (*model.Invoice, error)

	// Close releases the underlying connections
	Close() error
}

// Config selects and tunes the store backend
type Config struct {
	Driver          string // memory, postgres, mysql
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the configured backend. An empty driver or DSN yields an
// in-memory store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Driver == "" || cfg.Driver == "memory" {
		return NewMemory(), nil
	}

	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database driver %s requires a DSN", cfg.Driver)
	}

	dsn, err := dialect.normalizeDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	return NewSQL(db, dialect), nil
}

func newID() string {
	return uuid.NewString()
}

// now is truncated to microseconds, the finest resolution both SQL backends keep
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// checkDraft mirrors the schema's NOT NULL / non-empty constraints
func checkDraft(d *model.Draft) error {
	if d == nil {
		return model.NewPersistenceError("create", "nil draft", nil)
	}
	if d.ClientName == "" {
		return model.NewPersistenceError("create", "constraint violated: client_name is required", nil)
	}
	if d.ClientEmail == "" {
		return model.NewPersistenceError("create", "constraint violated: client_email is required", nil)
	}
	if !d.Status.Valid() {
		return model.NewPersistenceError("create", fmt.Sprintf("constraint violated: status %q", d.Status), nil)
	}
	return nil
}
