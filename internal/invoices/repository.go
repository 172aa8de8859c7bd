package invoices

import (
	"context"
	"encoding/json"
	"time"
)

// Repository defines invoice persistence. Confirm must execute its fresh
// max-number read and the status/number/snapshot write as one atomic unit;
// a lost race surfaces as shared.ErrConflict for the caller to retry.
type Repository interface {
	Get(ctx context.Context, id int64) (*Invoice, error)
	ListByOrder(ctx context.Context, orderID int64) ([]Invoice, error)
	ListConfirmedNumbers(ctx context.Context) ([]int64, error)
	FindDraftByOrder(ctx context.Context, orderID int64) (*Invoice, error)
	Create(ctx context.Context, inv Invoice) (*Invoice, error)
	UpdateDate(ctx context.Context, id int64, date time.Time, sortOrder int) error
	Confirm(ctx context.Context, id int64, snapshot json.RawMessage, date time.Time) (*Invoice, error)
	Revert(ctx context.Context, id int64, draftLabel string) (*Invoice, error)
}
