// Package costing prices an order's signage items from their bill-of-quantities
// lines. Compute is a total function: malformed numeric input is normalized by
// the defaulting rules below and never produces an error.
package costing

import "strconv"

// DefaultGSTPercent applies when an item carries no explicit GST rate.
const DefaultGSTPercent = 18.0

// RateKey renders a GST rate as the map key used for per-rate summaries.
// Rates key JSON-serialized maps, so they are carried as strings ("18",
// "12.5") rather than floats.
func RateKey(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

// BOQLine is one material/quantity/cost-per-unit triple of an item.
type BOQLine struct {
	Material    string
	Unit        string
	Quantity    float64
	CostPerUnit float64
}

// Item is one priced deliverable with its BOQ lines.
type Item struct {
	ID            int64
	Name          string
	Quantity      float64
	MarginPercent *float64
	GSTPercent    *float64
	Lines         []BOQLine
}

// Input carries everything a costing pass needs. At most one of
// BillingPercent and BillingAmount is authoritative; the other is re-derived
// in the output so the two representations can never drift.
type Input struct {
	Items          []Item
	Discount       float64
	BillingPercent *float64
	BillingAmount  *float64
}

// ItemTotals is the priced output for a single item.
type ItemTotals struct {
	ItemID          int64   `json:"item_id"`
	Name            string  `json:"name"`
	Quantity        float64 `json:"quantity"`
	BOQTotal        float64 `json:"boq_total"`
	TotalWithMargin float64 `json:"total_with_margin"`
	Rate            float64 `json:"rate"`
	Amount          float64 `json:"amount"`
	GSTPercent      float64 `json:"gst_percent"`
	GSTAmount       float64 `json:"gst_amount"`
	CostAfterTax    float64 `json:"cost_after_tax"`
}

// Totals aggregates an order's priced items.
type Totals struct {
	Items          []ItemTotals       `json:"items"`
	Total          float64            `json:"total"`
	NetTotal       float64            `json:"net_total"`
	GST            float64            `json:"gst"`
	GrandTotal     float64            `json:"grand_total"`
	UnscaledTotal  float64            `json:"unscaled_total"`
	BillingPercent float64            `json:"billing_percent"`
	BillingAmount  float64            `json:"billing_amount"`
	GSTSummary     map[string]float64 `json:"gst_summary"`
}

// Compute prices every item and aggregates order totals.
func Compute(in Input) Totals {
	items := make([]ItemTotals, 0, len(in.Items))
	var unscaledTotal float64
	for _, item := range in.Items {
		it := computeItem(item)
		unscaledTotal += it.Amount
		items = append(items, it)
	}

	factor := scalingFactor(in, unscaledTotal)
	if factor != 1 {
		for i := range items {
			items[i].Rate *= factor
			items[i].Amount *= factor
			items[i].GSTAmount *= factor
			items[i].CostAfterTax *= factor
		}
	}

	discount := in.Discount
	if discount < 0 {
		discount = 0
	}

	out := Totals{
		Items:         items,
		UnscaledTotal: unscaledTotal,
		GSTSummary:    make(map[string]float64),
	}
	for _, it := range items {
		out.Total += it.Amount
		out.GST += it.GSTAmount
		out.GSTSummary[RateKey(it.GSTPercent)] += it.GSTAmount
	}
	out.NetTotal = out.Total - discount
	out.GrandTotal = out.NetTotal + out.GST
	out.BillingPercent = factor * 100
	out.BillingAmount = factor * unscaledTotal
	return out
}

func computeItem(item Item) ItemTotals {
	qty := item.Quantity
	if qty <= 0 {
		qty = 1
	}

	var boqTotal float64
	for _, line := range item.Lines {
		lq, lc := line.Quantity, line.CostPerUnit
		if lq < 0 {
			lq = 0
		}
		if lc < 0 {
			lc = 0
		}
		boqTotal += lq * lc
	}

	margin := 0.0
	if item.MarginPercent != nil && *item.MarginPercent > 0 {
		margin = *item.MarginPercent
	}
	gstPercent := DefaultGSTPercent
	if item.GSTPercent != nil && *item.GSTPercent >= 0 {
		gstPercent = *item.GSTPercent
	}

	totalWithMargin := boqTotal * (1 + margin/100)
	rate := totalWithMargin / qty
	amount := rate * qty
	gstAmount := amount * gstPercent / 100

	return ItemTotals{
		ItemID:          item.ID,
		Name:            item.Name,
		Quantity:        qty,
		BOQTotal:        boqTotal,
		TotalWithMargin: totalWithMargin,
		Rate:            rate,
		Amount:          amount,
		GSTPercent:      gstPercent,
		GSTAmount:       gstAmount,
		CostAfterTax:    amount + gstAmount,
	}
}

// scalingFactor derives the partial-GST-billing multiplier. Percent wins when
// supplied; an absolute amount is converted against the unscaled total, with
// factor 1 when that total is zero.
func scalingFactor(in Input, unscaledTotal float64) float64 {
	if in.BillingPercent != nil && *in.BillingPercent != 100 && *in.BillingPercent >= 0 {
		return *in.BillingPercent / 100
	}
	if in.BillingPercent == nil && in.BillingAmount != nil && *in.BillingAmount != unscaledTotal {
		if unscaledTotal == 0 {
			return 1
		}
		return *in.BillingAmount / unscaledTotal
	}
	return 1
}
