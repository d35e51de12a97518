package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/rezonia/invoice-mailer/internal/model"
)

// Dialect is the SQL flavour spoken by the backing database
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// ParseDialect maps a configured driver name to a dialect
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (d Dialect) driverName() string {
	return string(d)
}

// normalizeDSN makes the MySQL driver return DATETIME columns as UTC time.Time
func (d Dialect) normalizeDSN(dsn string) (string, error) {
	if d != MySQL {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

var schemas = map[Dialect]string{
	Postgres: `
		CREATE TABLE IF NOT EXISTS invoices (
			id           VARCHAR(36) PRIMARY KEY,
			client_name  TEXT NOT NULL CHECK (client_name <> ''),
			client_email TEXT NOT NULL CHECK (client_email <> ''),
			client_phone TEXT NOT NULL DEFAULT '',
			items        TEXT NOT NULL,
			tax_percent  DOUBLE PRECISION NOT NULL DEFAULT 0,
			subtotal     DOUBLE PRECISION NOT NULL DEFAULT 0,
			total        DOUBLE PRECISION NOT NULL DEFAULT 0,
			status       VARCHAR(16) NOT NULL DEFAULT 'Pending' CHECK (status IN ('Pending', 'Paid')),
			created_at   TIMESTAMPTZ NOT NULL
		)`,
	MySQL: `
		CREATE TABLE IF NOT EXISTS invoices (
			id           VARCHAR(36) PRIMARY KEY,
			client_name  VARCHAR(255) NOT NULL,
			client_email VARCHAR(255) NOT NULL,
			client_phone VARCHAR(64) NOT NULL DEFAULT '',
			items        LONGTEXT NOT NULL,
			tax_percent  DOUBLE NOT NULL DEFAULT 0,
			subtotal     DOUBLE NOT NULL DEFAULT 0,
			total        DOUBLE NOT NULL DEFAULT 0,
			status       VARCHAR(16) NOT NULL DEFAULT 'Pending',
			created_at   DATETIME(6) NOT NULL,
			CONSTRAINT chk_invoices_client CHECK (client_name <> '' AND client_email <> ''),
			CONSTRAINT chk_invoices_status CHECK (status IN ('Pending', 'Paid'))
		)`,
}

// SQL stores invoices in a relational database through database/sql.
// Line items are kept as a JSON document in the items column.
type SQL struct {
	db      *sql.DB
	dialect Dialect
	newID   func() string
	now     func() time.Time
}

// NewSQL wraps an open connection pool
func NewSQL(db *sql.DB, dialect Dialect) *SQL {
	return &SQL{
		db:      db,
		dialect: dialect,
		newID:   newID,
		now:     now,
	}
}

// Migrate creates the invoices table if it does not exist
func (s *SQL) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemas[s.dialect]); err != nil {
		return fmt.Errorf("create invoices table: %w", err)
	}
	return nil
}

func (s *SQL) Create(ctx context.Context, draft *model.Draft) (*model.Invoice, error) {
	if err := checkDraft(draft); err != nil {
		return nil, err
	}

	items, err := json.Marshal(draft.Items)
	if err != nil {
		return nil, model.NewPersistenceError("create", "encode items", err)
	}
	if draft.Items == nil {
		items = []byte("[]")
	}

	inv := model.FromDraft(draft, s.newID(), s.now())

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO invoices (id, client_name, client_email, client_phone, items, tax_percent, subtotal, total, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		inv.ID, inv.ClientName, inv.ClientEmail, inv.ClientPhone, string(items),
		inv.TaxPercent, inv.Subtotal, inv.Total, string(inv.Status), inv.CreatedAt,
	)
	if err != nil {
		return nil, model.NewPersistenceError("create", describe(err), err)
	}

	return inv, nil
}

func (s *SQL) Get(ctx context.Context, id string) (*model.Invoice, error) {
	var (
		inv    model.Invoice
		items  string
		status string
	)

	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, client_name, client_email, client_phone, items, tax_percent, subtotal, total, status, created_at
		FROM invoices WHERE id = ?`), id,
	).Scan(&inv.ID, &inv.ClientName, &inv.ClientEmail, &inv.ClientPhone, &items,
		&inv.TaxPercent, &inv.Subtotal, &inv.Total, &status, &inv.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError(id)
	}
	if err != nil {
		return nil, model.NewPersistenceError("get", "query invoice", err)
	}

	if err := json.Unmarshal([]byte(items), &inv.Items); err != nil {
		return nil, model.NewPersistenceError("get", "decode items", err)
	}
	if inv.Items == nil {
		inv.Items = []model.LineItem{}
	}
	inv.Status = model.Status(status)
	inv.CreatedAt = inv.CreatedAt.UTC()

	return &inv, nil
}

// Ping checks the database is reachable
func (s *SQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQL) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders into the dialect's form
func (s *SQL) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// describe classifies driver errors for the persistence error message
func describe(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code.Class() == "23" {
			return "constraint violated: " + pqErr.Message
		}
		return "insert invoice: " + pqErr.Code.Name()
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1048, 1062, 3819:
			return "constraint violated: " + myErr.Message
		}
		return fmt.Sprintf("insert invoice: mysql error %d", myErr.Number)
	}

	return "insert invoice"
}
