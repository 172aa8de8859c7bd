package orders

import "context"

// Repository defines data access for orders, signage items and BOQ lines.
type Repository interface {
	CreateOrder(ctx context.Context, o Order) (int64, error)
	GetOrder(ctx context.Context, id int64) (*Order, error)
	UpdateOrderBilling(ctx context.Context, id int64, scale BillingScale) error
	UpdateOrderDiscount(ctx context.Context, id int64, discount float64) error

	ListItems(ctx context.Context, orderID int64) ([]SignageItem, error)
	GetItem(ctx context.Context, id int64) (*SignageItem, error)
	CreateItem(ctx context.Context, item SignageItem) (int64, error)
	UpdateItem(ctx context.Context, item SignageItem) error
	UpdateItemTotal(ctx context.Context, itemID int64, totalWithMargin float64) error
	DeleteItem(ctx context.Context, id int64) error

	ListLines(ctx context.Context, itemID int64) ([]BOQLine, error)
	CreateLine(ctx context.Context, line BOQLine) (int64, error)
	UpdateLine(ctx context.Context, line BOQLine) error
	DeleteLine(ctx context.Context, id int64) error
}
