// Package invoicelib provides a public API for pricing, storing, rendering
// and mailing invoices.
//
// Example usage:
//
//	proc, err := invoicelib.NewProcessor(ctx, invoicelib.DefaultPipelineOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer proc.Close()
//
//	inv, err := proc.Create(ctx, invoicelib.Request{
//	    ClientName:  "Ada",
//	    ClientEmail: "ada@x.io",
//	    Items:       []invoicelib.RawItem{{Description: "Widget", Quantity: 2, Rate: 5}},
//	    Tax:         10,
//	})
//	fmt.Println(inv.Total)
package invoicelib

import (
	"github.com/rezonia/invoice-mailer/internal/billing"
	"github.com/rezonia/invoice-mailer/internal/model"
)

// Re-export core types for public API
type (
	Invoice  = model.Invoice
	LineItem = model.LineItem
	Draft    = model.Draft
	Status   = model.Status
	Request  = billing.Request
	RawItem  = billing.RawItem
	Totals   = billing.Totals
)

// Re-export status constants
const (
	StatusPending = model.StatusPending
	StatusPaid    = model.StatusPaid
)

// Re-export error types
type (
	ValidationError  = model.ValidationError
	PersistenceError = model.PersistenceError
	NotFoundError    = model.NotFoundError
	RenderError      = model.RenderError
	DeliveryError    = model.DeliveryError
)
