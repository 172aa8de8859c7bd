package payments

import "context"

type Repository interface {
	Get(ctx context.Context, id int64) (*Payment, error)
	ListByOrder(ctx context.Context, orderID int64) ([]Payment, error)
	FindByMarker(ctx context.Context, orderID int64, marker string) (*Payment, error)
	Create(ctx context.Context, p Payment) (*Payment, error)
	UpdateAmount(ctx context.Context, id int64, amount float64) error
	Delete(ctx context.Context, id int64) error
}
