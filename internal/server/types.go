package server

import (
	"github.com/rezonia/invoice-mailer/internal/model"
	"github.com/rezonia/invoice-mailer/internal/processor"
)

// IndexResponse is the response for the root endpoint
type IndexResponse struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

// HealthResponse is the response for health endpoint
type HealthResponse struct {
	Status string          `json:"status"`
	Time   string          `json:"time"`
	Stats  processor.Stats `json:"stats"`
}

// CreateResponse is the response for a successful invoice creation
type CreateResponse struct {
	OK      bool           `json:"ok"`
	Invoice *model.Invoice `json:"invoice"`
}

// ErrorResponse is the standard error response. Stage and InvoiceID are set
// on create failures; InvoiceID means the record was stored before the failure.
type ErrorResponse struct {
	Error     string `json:"error"`
	Stage     string `json:"stage,omitempty"`
	InvoiceID string `json:"invoiceId,omitempty"`
}
