// Package billing turns a client-submitted order description into a validated
// invoice draft: line item normalization, totals and field validation.
package billing

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rezonia/invoice-mailer/internal/decimal"
	"github.com/rezonia/invoice-mailer/internal/model"
)

// RawItem is a line item as submitted by a client. Every field is optional
// and may hold any JSON value.
type RawItem struct {
	Description any `json:"description"`
	Quantity    any `json:"quantity"`
	Rate        any `json:"rate"`
}

// NormalizeItems coerces raw items into line items. It never fails: missing,
// non-numeric, negative or non-finite quantities and rates become 0.
func NormalizeItems(raw []RawItem) []model.LineItem {
	items := make([]model.LineItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, model.NewLineItem(
			CoerceText(r.Description),
			nonNegative(CoerceNumber(r.Quantity)),
			nonNegative(CoerceNumber(r.Rate)),
		))
	}
	return items
}

// CoerceNumber converts a decoded JSON value to a number, defaulting to 0
// when the value is absent or not numeric.
func CoerceNumber(v any) float64 {
	var f float64

	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// CoerceText converts a decoded JSON value to text, defaulting to empty
func CoerceText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return decimal.Plain(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
