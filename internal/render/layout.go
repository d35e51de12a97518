// Package render lays out an invoice as a document and writes it as PDF.
//
// Layout is computed first as plain text (BuildLayout) so that the table and
// summary content is identical for a given invoice regardless of where the
// document is written to.
package render

import (
	"fmt"

	"github.com/rezonia/invoice-mailer/internal/decimal"
	"github.com/rezonia/invoice-mailer/internal/model"
)

// DateLayout is used for the invoice date. Dates are rendered in UTC.
const DateLayout = "2006-01-02"

// Row is one line of the item table
type Row struct {
	Description string
	Quantity    string
	Rate        string
	Amount      string
}

// Layout is the text content of a rendered invoice
type Layout struct {
	Title   string
	Meta    []string
	BillTo  []string
	Header  Row
	Rows    []Row
	Summary []string
	Status  string
}

// TableHeader is the header row of the item table
var TableHeader = Row{
	Description: "Description",
	Quantity:    "Qty",
	Rate:        "Rate",
	Amount:      "Amount",
}

// BuildLayout computes the document text for an invoice without modifying it
func BuildLayout(inv *model.Invoice) Layout {
	l := Layout{
		Title: "INVOICE",
		Meta: []string{
			"Invoice ID: " + inv.ID,
			"Date: " + inv.CreatedAt.UTC().Format(DateLayout),
		},
		BillTo: []string{inv.ClientName, inv.ClientEmail},
		Header: TableHeader,
		Rows:   make([]Row, 0, len(inv.Items)),
		Summary: []string{
			"Subtotal: " + decimal.Fixed2(inv.Subtotal),
			fmt.Sprintf("Tax (%s%%): %s", decimal.Plain(inv.TaxPercent), decimal.Fixed2(inv.TaxAmount())),
			"Total: " + decimal.Fixed2(inv.Total),
		},
		Status: "Status: " + string(inv.Status),
	}

	if inv.ClientPhone != "" {
		l.BillTo = append(l.BillTo, inv.ClientPhone)
	}

	for _, item := range inv.Items {
		l.Rows = append(l.Rows, Row{
			Description: item.Description,
			Quantity:    decimal.Plain(item.Quantity),
			Rate:        decimal.Fixed2(item.Rate),
			Amount:      decimal.Fixed2(item.Amount),
		})
	}

	return l
}
