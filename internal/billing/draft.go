package billing

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rezonia/invoice-mailer/internal/decimal"
	"github.com/rezonia/invoice-mailer/internal/model"
)

var validate = validator.New()

// Request is the create-invoice payload submitted by a client
type Request struct {
	ClientName  string    `json:"clientName"`
	ClientEmail string    `json:"clientEmail"`
	ClientPhone string    `json:"clientPhone,omitempty"`
	Items       []RawItem `json:"items"`
	Tax         any       `json:"tax,omitempty"`
	Status      string    `json:"status,omitempty"`
}

// Prepare normalizes a request into a draft with computed totals.
// It performs no validation and cannot fail.
func Prepare(req Request) *model.Draft {
	items := NormalizeItems(req.Items)
	tax := CoerceNumber(req.Tax)
	totals := ComputeTotals(items, tax)

	status := model.Status(strings.TrimSpace(req.Status))
	if status == "" {
		status = model.StatusPending
	}

	return &model.Draft{
		ClientName:  strings.TrimSpace(req.ClientName),
		ClientEmail: strings.TrimSpace(req.ClientEmail),
		ClientPhone: strings.TrimSpace(req.ClientPhone),
		Items:       items,
		TaxPercent:  tax,
		Subtotal:    totals.Subtotal,
		Total:       totals.Total,
		Status:      status,
	}
}

// Validate checks the client fields, tax, computed amounts and status of a draft.
// The first violation is returned as a *model.ValidationError.
func Validate(d *model.Draft) error {
	if d.ClientName == "" {
		return model.NewValidationError("clientName", nil, "required", "client name is required")
	}

	if d.ClientEmail == "" {
		return model.NewValidationError("clientEmail", nil, "required", "client email is required")
	}
	if err := validate.Var(d.ClientEmail, "email"); err != nil {
		return model.NewValidationError("clientEmail", d.ClientEmail, "email", "must be a valid email address")
	}

	if !decimal.IsNonNegative(d.TaxPercent) {
		return model.NewValidationError("tax", d.TaxPercent, "gte=0", "tax percentage must not be negative")
	}

	for i, item := range d.Items {
		if !decimal.IsFinite(item.Amount) {
			return model.NewValidationError(fmt.Sprintf("items[%d].amount", i), nil, "finite", "line amount is out of range")
		}
	}
	if !decimal.IsFinite(d.Subtotal) {
		return model.NewValidationError("subtotal", nil, "finite", "subtotal is out of range")
	}
	if !decimal.IsFinite(d.Total) {
		return model.NewValidationError("total", nil, "finite", "total is out of range")
	}

	if !d.Status.Valid() {
		return model.NewValidationError("status", string(d.Status), "oneof=Pending Paid", "status must be Pending or Paid")
	}

	return nil
}

// Quote prepares and validates a request without any side effect
func Quote(req Request) (*model.Draft, error) {
	draft := Prepare(req)
	if err := Validate(draft); err != nil {
		return nil, err
	}
	return draft, nil
}
