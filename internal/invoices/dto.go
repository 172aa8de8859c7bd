package invoices

import "time"

// ActorRequest identifies who performs a lifecycle operation. The actor is
// always supplied explicitly rather than read from ambient request state.
type ActorRequest struct {
	ActorID   int64  `json:"actor_id" validate:"required,gt=0"`
	ActorName string `json:"actor_name" validate:"required,max=100"`
}

type SetDateRequest struct {
	InvoiceDate time.Time `json:"invoice_date" validate:"required"`
	SortOrder   int       `json:"sort_order" validate:"gte=0"`
}

type ListResponse struct {
	Invoices []View `json:"invoices"`
}
