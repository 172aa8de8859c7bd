package invoices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/signcraft-erp/signcraft-erp/internal/platform/db"
	"github.com/signcraft-erp/signcraft-erp/internal/shared"
)

const uniqueViolation = "23505"

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const invoiceColumns = `id, order_id, status, number, invoice_date, snapshot, sort_order, draft_label, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.OrderID, &inv.Status, &inv.Number, &inv.InvoiceDate,
		&inv.Snapshot, &inv.SortOrder, &inv.DraftLabel, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// Get fetches an invoice by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
}

// ListByOrder returns an order's invoices by date then manual sort order.
func (r *PGRepository) ListByOrder(ctx context.Context, orderID int64) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1 ORDER BY invoice_date, sort_order, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("invoices: list by order: %w", err)
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.OrderID, &inv.Status, &inv.Number, &inv.InvoiceDate,
			&inv.Snapshot, &inv.SortOrder, &inv.DraftLabel, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ListConfirmedNumbers returns every number held by a confirmed invoice.
func (r *PGRepository) ListConfirmedNumbers(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT number FROM invoices WHERE status = $1 AND number IS NOT NULL ORDER BY number`, StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("invoices: list confirmed numbers: %w", err)
	}
	defer rows.Close()
	var numbers []int64
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// FindDraftByOrder returns the order's draft invoice, if any.
func (r *PGRepository) FindDraftByOrder(ctx context.Context, orderID int64) (*Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1 AND status = $2 ORDER BY id LIMIT 1`,
		orderID, StatusDraft))
}

// Create inserts a draft invoice.
func (r *PGRepository) Create(ctx context.Context, inv Invoice) (*Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx,
		`INSERT INTO invoices (order_id, status, invoice_date, sort_order, draft_label, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING `+invoiceColumns,
		inv.OrderID, StatusDraft, inv.InvoiceDate, inv.SortOrder, inv.DraftLabel))
}

// UpdateDate moves a draft's date and advisory sort position.
func (r *PGRepository) UpdateDate(ctx context.Context, id int64, date time.Time, sortOrder int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invoices SET invoice_date = $1, sort_order = $2, updated_at = NOW()
		 WHERE id = $3 AND status = $4`, date, sortOrder, id, StatusDraft)
	if err != nil {
		return fmt.Errorf("invoices: update date: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Confirm assigns the next sequential number and freezes the snapshot in a
// single transaction. The fresh MAX read and the write commit together; the
// partial unique index on confirmed numbers turns a concurrent duplicate into
// shared.ErrConflict.
func (r *PGRepository) Confirm(ctx context.Context, id int64, snapshot json.RawMessage, date time.Time) (*Invoice, error) {
	var confirmed *Invoice
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var maxNumber int64
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(number), 0) FROM invoices WHERE status = $1`, StatusConfirmed).
			Scan(&maxNumber); err != nil {
			return fmt.Errorf("invoices: read max number: %w", err)
		}

		number := NextNumber(maxNumber)
		inv, err := scanInvoice(tx.QueryRow(ctx,
			`UPDATE invoices
			 SET status = $1, number = $2, snapshot = $3, invoice_date = $4, updated_at = NOW()
			 WHERE id = $5 AND status = $6
			 RETURNING `+invoiceColumns,
			StatusConfirmed, number, snapshot, date, id, StatusDraft))
		if err != nil {
			return err
		}
		confirmed = inv
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("invoices: number allocation raced: %w", shared.ErrConflict)
		}
		return nil, err
	}
	return confirmed, nil
}

// Revert returns a confirmed invoice to draft, releasing its number and
// clearing the snapshot in one statement. The released number survives only
// as a non-binding draft label.
func (r *PGRepository) Revert(ctx context.Context, id int64, draftLabel string) (*Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx,
		`UPDATE invoices
		 SET status = $1, number = NULL, snapshot = NULL, draft_label = $2, updated_at = NOW()
		 WHERE id = $3 AND status = $4
		 RETURNING `+invoiceColumns,
		StatusDraft, draftLabel, id, StatusConfirmed))
}
