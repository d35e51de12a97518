package billing

import "github.com/rezonia/invoice-mailer/internal/model"

// Totals holds the derived amounts of an invoice at full precision
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Total    float64 `json:"total"`
}

// TaxAmount is the difference between total and subtotal
func (t Totals) TaxAmount() float64 {
	return t.Total - t.Subtotal
}

// ComputeTotals sums item amounts and applies the tax percentage.
// No rounding is applied; display rounding belongs to the renderer.
func ComputeTotals(items []model.LineItem, taxPercent float64) Totals {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Amount
	}

	return Totals{
		Subtotal: subtotal,
		Total:    subtotal + subtotal*(taxPercent/100),
	}
}
