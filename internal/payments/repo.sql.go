package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/signcraft-erp/signcraft-erp/internal/shared"
)

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const paymentColumns = `id, order_id, number, amount, method, note, marker, paid_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Number, &p.Amount, &p.Method, &p.Note, &p.Marker,
		&p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Get fetches a payment by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("payments: get: %w", err)
	}
	return p, err
}

// ListByOrder returns an order's payments, stable by id.
func (r *PGRepository) ListByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("payments: list by order: %w", err)
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Number, &p.Amount, &p.Method, &p.Note, &p.Marker,
			&p.PaidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FindByMarker returns the order's payment carrying the given marker, or
// shared.ErrNotFound. A partial unique index guarantees at most one row.
func (r *PGRepository) FindByMarker(ctx context.Context, orderID int64, marker string) (*Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 AND marker = $2`, orderID, marker))
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("payments: find by marker: %w", err)
	}
	return p, err
}

// Create inserts a payment.
func (r *PGRepository) Create(ctx context.Context, p Payment) (*Payment, error) {
	created, err := scanPayment(r.pool.QueryRow(ctx,
		`INSERT INTO payments (order_id, number, amount, method, note, marker, paid_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		 RETURNING `+paymentColumns,
		p.OrderID, p.Number, p.Amount, p.Method, p.Note, p.Marker, p.PaidAt))
	if err != nil {
		return nil, fmt.Errorf("payments: create: %w", err)
	}
	return created, nil
}

// UpdateAmount rewrites a payment's amount.
func (r *PGRepository) UpdateAmount(ctx context.Context, id int64, amount float64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE payments SET amount = $1, updated_at = NOW() WHERE id = $2`, amount, id)
	if err != nil {
		return fmt.Errorf("payments: update amount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a payment.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("payments: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
