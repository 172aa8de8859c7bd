package orders

import "time"

// Order is the aggregate root for a signage job. The partial-GST-billing
// configuration is stored as a single scale factor; percent and amount views
// are projections of it.
type Order struct {
	ID            int64
	CustomerName  string
	CustomerGSTIN string
	Discount      float64
	BillingScale  BillingScale
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SignageItem is one priced deliverable within an order.
type SignageItem struct {
	ID              int64
	OrderID         int64
	Name            string
	Quantity        float64
	MarginPercent   *float64
	GSTPercent      *float64
	TotalWithMargin *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BOQLine belongs to exactly one signage item.
type BOQLine struct {
	ID          int64
	ItemID      int64
	Material    string
	Unit        string
	Quantity    float64
	CostPerUnit float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
