package invoices

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var inrPrinter = message.NewPrinter(language.MustParse("en-IN"))

// View is the listing shape consumed by UIs and exports. Draft rows carry a
// preview label only; confirmed rows render from their frozen snapshot.
type View struct {
	ID            int64     `json:"id"`
	OrderID       int64     `json:"order_id"`
	Status        Status    `json:"status"`
	Number        *int64    `json:"number,omitempty"`
	DisplayNumber string    `json:"display_number"`
	InvoiceDate   time.Time `json:"invoice_date"`
	GrandTotal    string    `json:"grand_total,omitempty"`
	PreviewNumber *int64    `json:"preview_number,omitempty"`
}

// FormatINR renders an amount with Indian digit grouping for display.
func FormatINR(amount float64) string {
	return inrPrinter.Sprintf("₹%.2f", amount)
}

// BuildViews merges invoices with their draft previews for presentation.
func BuildViews(invs []Invoice, previews []DraftPreview) []View {
	previewByID := make(map[int64]int64, len(previews))
	for _, p := range previews {
		previewByID[p.InvoiceID] = p.Number
	}

	out := make([]View, 0, len(invs))
	for _, inv := range invs {
		v := View{
			ID:          inv.ID,
			OrderID:     inv.OrderID,
			Status:      inv.Status,
			Number:      inv.Number,
			InvoiceDate: inv.InvoiceDate,
		}
		switch {
		case inv.Status == StatusConfirmed && inv.Number != nil:
			v.DisplayNumber = fmt.Sprintf("INV-%04d", *inv.Number)
			if len(inv.Snapshot) > 0 {
				var snap Snapshot
				if err := json.Unmarshal(inv.Snapshot, &snap); err == nil {
					v.GrandTotal = FormatINR(snap.Totals.GrandTotal)
				}
			}
		default:
			if n, ok := previewByID[inv.ID]; ok {
				preview := n
				v.PreviewNumber = &preview
				v.DisplayNumber = fmt.Sprintf("Draft (INV-%04d)", n)
			} else {
				v.DisplayNumber = "Draft"
			}
		}
		out = append(out, v)
	}
	return out
}
