package invoices

import (
	"encoding/json"
	"time"

	"github.com/signcraft-erp/signcraft-erp/internal/costing"
	"github.com/signcraft-erp/signcraft-erp/internal/tax"
)

// Status enumerates invoice lifecycle states.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
)

// Invoice cycles between Draft and Confirmed. Number is nil while Draft; once
// assigned it is immutable until a revert releases it. Released numbers are
// never reassigned automatically.
type Invoice struct {
	ID          int64
	OrderID     int64
	Status      Status
	Number      *int64
	InvoiceDate time.Time
	Snapshot    json.RawMessage
	SortOrder   int
	// DraftLabel holds the numeric label left behind by a revert. It orders
	// draft previews and never reserves a number.
	DraftLabel string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Snapshot freezes the computed totals at confirmation time. Confirmed
// invoices render from this, not from live costing.
type Snapshot struct {
	Totals        costing.Totals       `json:"totals"`
	TaxSplit      map[string]tax.Split `json:"tax_split"`
	OrderTax      tax.Split            `json:"order_tax"`
	CustomerGSTIN string               `json:"customer_gstin"`
	ConfirmedBy   string               `json:"confirmed_by"`
	TakenAt       time.Time            `json:"taken_at"`
}
