package model

import "time"

// Status is the payment state of an invoice
type Status string

const (
	StatusPending Status = "Pending"
	StatusPaid    Status = "Paid"
)

// Valid reports whether s is one of the accepted statuses
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusPaid
}

// LineItem is one billable row. Amount is always Quantity * Rate.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

// NewLineItem builds a line item with its amount derived from quantity and rate
func NewLineItem(description string, quantity, rate float64) LineItem {
	return LineItem{
		Description: description,
		Quantity:    quantity,
		Rate:        rate,
		Amount:      quantity * rate,
	}
}

// Draft is an invoice that has been normalized and totalled but not yet stored
type Draft struct {
	ClientName  string     `json:"clientName"`
	ClientEmail string     `json:"clientEmail"`
	ClientPhone string     `json:"clientPhone,omitempty"`
	Items       []LineItem `json:"items"`
	TaxPercent  float64    `json:"tax"`
	Subtotal    float64    `json:"subtotal"`
	Total       float64    `json:"total"`
	Status      Status     `json:"status"`
}

// Invoice is a persisted invoice record. ID and CreatedAt are assigned by the store.
type Invoice struct {
	ID          string     `json:"id"`
	ClientName  string     `json:"clientName"`
	ClientEmail string     `json:"clientEmail"`
	ClientPhone string     `json:"clientPhone"`
	Items       []LineItem `json:"items"`
	TaxPercent  float64    `json:"tax"`
	Subtotal    float64    `json:"subtotal"`
	Total       float64    `json:"total"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// FromDraft materializes a draft under the given identity and creation time
func FromDraft(d *Draft, id string, createdAt time.Time) *Invoice {
	items := make([]LineItem, len(d.Items))
	copy(items, d.Items)

	return &Invoice{
		ID:          id,
		ClientName:  d.ClientName,
		ClientEmail: d.ClientEmail,
		ClientPhone: d.ClientPhone,
		Items:       items,
		TaxPercent:  d.TaxPercent,
		Subtotal:    d.Subtotal,
		Total:       d.Total,
		Status:      d.Status,
		CreatedAt:   createdAt,
	}
}

// TaxAmount is derived from the stored totals, never stored itself
func (inv *Invoice) TaxAmount() float64 {
	return inv.Total - inv.Subtotal
}

// Clone returns a deep copy so callers cannot mutate a stored record
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	c.Items = make([]LineItem, len(inv.Items))
	copy(c.Items, inv.Items)
	return &c
}

// DocumentName is the attachment and download file name of the rendered invoice
func (inv *Invoice) DocumentName() string {
	return "invoice_" + inv.ID + ".pdf"
}
