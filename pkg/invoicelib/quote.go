package invoicelib

import (
	"time"

	"github.com/rezonia/invoice-mailer/internal/billing"
	"github.com/rezonia/invoice-mailer/internal/model"
	"github.com/rezonia/invoice-mailer/internal/render"
)

// QuoteResult is a priced, validated invoice that has not been stored
type QuoteResult struct {
	Draft     *Draft   `json:"draft"`
	TaxAmount float64  `json:"taxAmount"`
	Summary   []string `json:"summary"`
}

// Quote normalizes, totals and validates a request without storing or
// sending anything. Summary holds the document's summary lines.
func Quote(req Request) (*QuoteResult, error) {
	draft, err := billing.Quote(req)
	if err != nil {
		return nil, err
	}

	preview := model.FromDraft(draft, "", time.Time{})
	layout := render.BuildLayout(preview)

	return &QuoteResult{
		Draft:     draft,
		TaxAmount: preview.TaxAmount(),
		Summary:   append(layout.Summary, layout.Status),
	}, nil
}
