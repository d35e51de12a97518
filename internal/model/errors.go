package model

import "fmt"

// ValidationError represents a rejected client field, raised before any side effect
type ValidationError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed on %s: %s (value=%v, rule=%s)", e.Field, e.Message, e.Value, e.Rule)
	}
	return fmt.Sprintf("validation failed on %s: %s (rule=%s)", e.Field, e.Message, e.Rule)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, rule, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	}
}

// PersistenceError represents a store that is unavailable or rejected a record
type PersistenceError struct {
	Op      string
	Message string
	Cause   error
}

func (e *PersistenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("persistence failed [%s]: %s (%v)", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("persistence failed [%s]: %s", e.Op, e.Message)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// NewPersistenceError creates a new persistence error
func NewPersistenceError(op, message string, cause error) *PersistenceError {
	return &PersistenceError{
		Op:      op,
		Message: message,
		Cause:   cause,
	}
}

// NotFoundError is returned when no invoice exists for an identity
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("invoice %s not found", e.ID)
}

// NewNotFoundError creates a new not-found error
func NewNotFoundError(id string) *NotFoundError {
	return &NotFoundError{ID: id}
}

// RenderError represents a document generation or write failure
type RenderError struct {
	InvoiceID string
	Message   string
	Cause     error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render failed [%s]: %s (%v)", e.InvoiceID, e.Message, e.Cause)
	}
	return fmt.Sprintf("render failed [%s]: %s", e.InvoiceID, e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// NewRenderError creates a new render error
func NewRenderError(invoiceID, message string, cause error) *RenderError {
	return &RenderError{
		InvoiceID: invoiceID,
		Message:   message,
		Cause:     cause,
	}
}

// DeliveryError represents a mail transport that rejected or failed to send
type DeliveryError struct {
	To      string
	Message string
	Cause   error
}

func (e *DeliveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("delivery to %s failed: %s (%v)", e.To, e.Message, e.Cause)
	}
	return fmt.Sprintf("delivery to %s failed: %s", e.To, e.Message)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// NewDeliveryError creates a new delivery error
func NewDeliveryError(to, message string, cause error) *DeliveryError {
	return &DeliveryError{
		To:      to,
		Message: message,
		Cause:   cause,
	}
}
