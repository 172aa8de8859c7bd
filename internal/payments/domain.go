package payments

import "time"

// CompensationMarker tags the single auto-managed payment representing the
// non-GST-billed portion of an order. User-entered payments never carry it,
// and the synchronizer never touches a payment without it.
const CompensationMarker = "gst-billing-adjustment"

// Payment is one ledger entry against an order.
type Payment struct {
	ID        int64
	OrderID   int64
	Number    string
	Amount    float64
	Method    string
	Note      string
	Marker    string
	PaidAt    time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsCompensation reports whether this is the synchronizer-managed entry.
func (p Payment) IsCompensation() bool {
	return p.Marker == CompensationMarker
}
