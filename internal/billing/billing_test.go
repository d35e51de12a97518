package billing_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-mailer/internal/billing"
	"github.com/rezonia/invoice-mailer/internal/model"
)

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected float64
	}{
		{"nil", nil, 0},
		{"float", 2.5, 2.5},
		{"int", 3, 3},
		{"numeric string", "4", 4},
		{"padded string", " 1.25 ", 1.25},
		{"empty string", "", 0},
		{"garbage string", "abc", 0},
		{"NaN string", "NaN", 0},
		{"infinity", math.Inf(1), 0},
		{"bool", true, 0},
		{"object", map[string]any{"a": 1}, 0},
		{"json number", json.Number("7"), 7},
		{"negative kept", -3.0, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, billing.CoerceNumber(tt.value))
		})
	}
}

func TestCoerceText(t *testing.T) {
	assert.Equal(t, "", billing.CoerceText(nil))
	assert.Equal(t, "Widget", billing.CoerceText("Widget"))
	assert.Equal(t, "42", billing.CoerceText(42.0))
	assert.Equal(t, "", billing.CoerceText([]any{"x"}))
}

func TestNormalizeItems(t *testing.T) {
	raw := []billing.RawItem{
		{Description: "Widget", Quantity: 2.0, Rate: 5.0},
		{Quantity: "3", Rate: "1.5"},
		{Description: "Broken", Quantity: "lots", Rate: nil},
		{Description: "Refund", Quantity: -1.0, Rate: 10.0},
	}

	items := billing.NormalizeItems(raw)
	require.Len(t, items, 4)

	assert.Equal(t, model.LineItem{Description: "Widget", Quantity: 2, Rate: 5, Amount: 10}, items[0])
	assert.Equal(t, model.LineItem{Description: "", Quantity: 3, Rate: 1.5, Amount: 4.5}, items[1])
	assert.Equal(t, model.LineItem{Description: "Broken", Quantity: 0, Rate: 0, Amount: 0}, items[2])
	assert.Equal(t, 0.0, items[3].Quantity)
	assert.Equal(t, 0.0, items[3].Amount)

	for _, item := range items {
		assert.Equal(t, item.Quantity*item.Rate, item.Amount)
	}
}

func TestNormalizeItems_Empty(t *testing.T) {
	items := billing.NormalizeItems(nil)
	require.NotNil(t, items)
	assert.Empty(t, items)
}

func TestNormalizeItems_FromJSON(t *testing.T) {
	var raw []billing.RawItem
	require.NoError(t, json.Unmarshal([]byte(`[{"description":"A","quantity":"2","rate":5},{"quantity":true}]`), &raw))

	items := billing.NormalizeItems(raw)
	require.Len(t, items, 2)
	assert.Equal(t, 10.0, items[0].Amount)
	assert.Equal(t, 0.0, items[1].Amount)
}

func TestComputeTotals(t *testing.T) {
	items := []model.LineItem{
		model.NewLineItem("A", 2, 5),
		model.NewLineItem("B", 1, 2.5),
	}

	totals := billing.ComputeTotals(items, 10)
	assert.Equal(t, 12.5, totals.Subtotal)
	assert.InDelta(t, 13.75, totals.Total, 1e-9)
	assert.InDelta(t, 1.25, totals.TaxAmount(), 1e-9)
}

func TestComputeTotals_ZeroTax(t *testing.T) {
	items := []model.LineItem{model.NewLineItem("A", 3, 3)}

	totals := billing.ComputeTotals(items, 0)
	assert.Equal(t, 9.0, totals.Subtotal)
	assert.Equal(t, 9.0, totals.Total)
}

func TestComputeTotals_Empty(t *testing.T) {
	totals := billing.ComputeTotals(nil, 20)
	assert.Zero(t, totals.Subtotal)
	assert.Zero(t, totals.Total)
}

func TestComputeTotals_KeepsFullPrecision(t *testing.T) {
	items := []model.LineItem{
		model.NewLineItem("A", 1, 0.1),
		model.NewLineItem("B", 1, 0.2),
	}

	a, b := 0.1, 0.2
	totals := billing.ComputeTotals(items, 0)
	assert.Equal(t, a+b, totals.Subtotal)
	assert.Equal(t, 0.30000000000000004, totals.Subtotal)
}

func TestPrepare_Defaults(t *testing.T) {
	draft := billing.Prepare(billing.Request{
		ClientName:  "Ada",
		ClientEmail: "ada@x.io",
	})

	assert.Equal(t, model.StatusPending, draft.Status)
	assert.Zero(t, draft.TaxPercent)
	assert.Empty(t, draft.Items)
	assert.Zero(t, draft.Subtotal)
	assert.Zero(t, draft.Total)
}

func TestPrepare_Ada(t *testing.T) {
	draft := billing.Prepare(billing.Request{
		ClientName:  "Ada",
		ClientEmail: "ada@x.io",
		Items:       []billing.RawItem{{Description: "Widget", Quantity: 2.0, Rate: 5.0}},
		Tax:         10.0,
	})

	require.Len(t, draft.Items, 1)
	assert.Equal(t, 10.0, draft.Items[0].Amount)
	assert.Equal(t, 10.0, draft.Subtotal)
	assert.Equal(t, 11.0, draft.Total)
	assert.Equal(t, model.StatusPending, draft.Status)
	assert.NoError(t, billing.Validate(draft))
}

func TestPrepare_NonNumericTax(t *testing.T) {
	draft := billing.Prepare(billing.Request{Tax: "ten"})
	assert.Zero(t, draft.TaxPercent)
}

func TestValidate(t *testing.T) {
	valid := func() *model.Draft {
		return &model.Draft{ClientName: "Ada", ClientEmail: "ada@x.io", Status: model.StatusPaid}
	}

	tests := []struct {
		name   string
		mutate func(d *model.Draft)
		field  string
	}{
		{"missing name", func(d *model.Draft) { d.ClientName = "" }, "clientName"},
		{"missing email", func(d *model.Draft) { d.ClientEmail = "" }, "clientEmail"},
		{"malformed email", func(d *model.Draft) { d.ClientEmail = "not-an-email" }, "clientEmail"},
		{"negative tax", func(d *model.Draft) { d.TaxPercent = -5 }, "tax"},
		{"unknown status", func(d *model.Draft) { d.Status = "Overdue" }, "status"},
		{"lowercase status", func(d *model.Draft) { d.Status = "paid" }, "status"},
		{"infinite line amount", func(d *model.Draft) {
			d.Items = []model.LineItem{model.NewLineItem("A", 1, 1), model.NewLineItem("B", 1e200, 1e200)}
		}, "items[1].amount"},
		{"infinite subtotal", func(d *model.Draft) { d.Subtotal = math.Inf(1) }, "subtotal"},
		{"NaN total", func(d *model.Draft) { d.Total = math.NaN() }, "total"},
	}

	require.NoError(t, billing.Validate(valid()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)

			err := billing.Validate(d)
			var ve *model.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestQuote_RejectsOverflowingAmounts(t *testing.T) {
	_, err := billing.Quote(billing.Request{
		ClientName:  "Ada",
		ClientEmail: "ada@x.io",
		Items:       []billing.RawItem{{Quantity: 1e200, Rate: 1e200}},
		Tax:         0,
	})

	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "items[0].amount", ve.Field)
}

func TestQuote(t *testing.T) {
	_, err := billing.Quote(billing.Request{ClientEmail: "ada@x.io"})
	require.Error(t, err)

	draft, err := billing.Quote(billing.Request{ClientName: "Ada", ClientEmail: "ada@x.io", Status: "Paid"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, draft.Status)
}
