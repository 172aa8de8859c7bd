package orders

type CreateOrderRequest struct {
	CustomerName  string  `json:"customer_name" validate:"required,max=200"`
	CustomerGSTIN string  `json:"customer_gstin" validate:"omitempty,min=2,max=15"`
	Discount      float64 `json:"discount" validate:"gte=0"`
}

type ItemRequest struct {
	Name          string   `json:"name" validate:"required,max=200"`
	Quantity      float64  `json:"quantity" validate:"gte=0"`
	MarginPercent *float64 `json:"margin_percent,omitempty" validate:"omitempty,gte=0"`
	GSTPercent    *float64 `json:"gst_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
}

type LineRequest struct {
	Material    string  `json:"material" validate:"required,max=200"`
	Unit        string  `json:"unit" validate:"max=20"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	CostPerUnit float64 `json:"cost_per_unit" validate:"gte=0"`
}

// SetBillingRequest carries exactly one authoritative representation.
type SetBillingRequest struct {
	Percent *float64 `json:"percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	Amount  *float64 `json:"amount,omitempty" validate:"omitempty,gte=0"`
}

type SetDiscountRequest struct {
	Discount float64 `json:"discount" validate:"gte=0"`
}
