package store

import (
	"context"
	"sync"
	"time"

	"github.com/rezonia/invoice-mailer/internal/model"
)

// Memory keeps invoices in process memory. Records are copied on the way in
// and out so callers never share state with the store.
type Memory struct {
	mu       sync.RWMutex
	invoices map[string]*model.Invoice
	newID    func() string
	now      func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		invoices: make(map[string]*model.Invoice),
		newID:    newID,
		now:      now,
	}
}

func (m *Memory) Create(ctx context.Context, draft *model.Draft) (*model.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.NewPersistenceError("create", "context done", err)
	}
	if err := checkDraft(draft); err != nil {
		return nil, err
	}

	inv := model.FromDraft(draft, m.newID(), m.now())

	m.mu.Lock()
	m.invoices[inv.ID] = inv
	m.mu.Unlock()

	return inv.Clone(), nil
}

func (m *Memory) Get(ctx context.Context, id string) (*model.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.NewPersistenceError("get", "context done", err)
	}

	m.mu.RLock()
	inv, ok := m.invoices[id]
	m.mu.RUnlock()

	if !ok {
		return nil, model.NewNotFoundError(id)
	}
	return inv.Clone(), nil
}

// Len returns the number of stored invoices
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.invoices)
}

func (m *Memory) Close() error {
	return nil
}
