package orders

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

// CreateOrder inserts a new order.
func (r *PGRepository) CreateOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO orders (customer_name, customer_gstin, discount, billing_scale, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id`,
		o.CustomerName, o.CustomerGSTIN, o.Discount, float64(o.BillingScale)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("orders: create order: %w", err)
	}
	return id, nil
}

// GetOrder fetches an order by id.
func (r *PGRepository) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var o Order
	var scale float64
	err := r.pool.QueryRow(ctx,
		`SELECT id, customer_name, customer_gstin, discount, billing_scale, created_at, updated_at
		 FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.CustomerName, &o.CustomerGSTIN, &o.Discount, &scale, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("orders: get order: %w", err)
	}
	o.BillingScale = BillingScale(scale)
	return &o, nil
}

// UpdateOrderBilling stores the billing scale factor.
func (r *PGRepository) UpdateOrderBilling(ctx context.Context, id int64, scale BillingScale) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET billing_scale = $1, updated_at = NOW() WHERE id = $2`, float64(scale), id)
	if err != nil {
		return fmt.Errorf("orders: update billing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateOrderDiscount stores the absolute discount.
func (r *PGRepository) UpdateOrderDiscount(ctx context.Context, id int64, discount float64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET discount = $1, updated_at = NOW() WHERE id = $2`, discount, id)
	if err != nil {
		return fmt.Errorf("orders: update discount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListItems returns an order's signage items, stable by id.
func (r *PGRepository) ListItems(ctx context.Context, orderID int64) ([]SignageItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, name, quantity, margin_percent, gst_percent, total_with_margin, created_at, updated_at
		 FROM signage_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("orders: list items: %w", err)
	}
	defer rows.Close()
	var items []SignageItem
	for rows.Next() {
		var it SignageItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Name, &it.Quantity, &it.MarginPercent,
			&it.GSTPercent, &it.TotalWithMargin, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetItem fetches a signage item by id.
func (r *PGRepository) GetItem(ctx context.Context, id int64) (*SignageItem, error) {
	var it SignageItem
	err := r.pool.QueryRow(ctx,
		`SELECT id, order_id, name, quantity, margin_percent, gst_percent, total_with_margin, created_at, updated_at
		 FROM signage_items WHERE id = $1`, id).
		Scan(&it.ID, &it.OrderID, &it.Name, &it.Quantity, &it.MarginPercent,
			&it.GSTPercent, &it.TotalWithMargin, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("orders: get item: %w", err)
	}
	return &it, nil
}

// CreateItem inserts a signage item.
func (r *PGRepository) CreateItem(ctx context.Context, item SignageItem) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO signage_items (order_id, name, quantity, margin_percent, gst_percent, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING id`,
		item.OrderID, item.Name, item.Quantity, item.MarginPercent, item.GSTPercent).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("orders: create item: %w", err)
	}
	return id, nil
}

// UpdateItem rewrites a signage item's user-editable fields.
func (r *PGRepository) UpdateItem(ctx context.Context, item SignageItem) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE signage_items SET name = $1, quantity = $2, margin_percent = $3, gst_percent = $4, updated_at = NOW()
		 WHERE id = $5`,
		item.Name, item.Quantity, item.MarginPercent, item.GSTPercent, item.ID)
	if err != nil {
		return fmt.Errorf("orders: update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateItemTotal refreshes the cached total_with_margin after a recompute.
func (r *PGRepository) UpdateItemTotal(ctx context.Context, itemID int64, totalWithMargin float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE signage_items SET total_with_margin = $1, updated_at = NOW() WHERE id = $2`,
		totalWithMargin, itemID)
	if err != nil {
		return fmt.Errorf("orders: update item total: %w", err)
	}
	return nil
}

// DeleteItem removes a signage item. BOQ lines are not cascaded; callers must
// delete or reassign them first.
func (r *PGRepository) DeleteItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM signage_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("orders: delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListLines returns a signage item's BOQ lines, stable by id.
func (r *PGRepository) ListLines(ctx context.Context, itemID int64) ([]BOQLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, item_id, material, unit, quantity, cost_per_unit, created_at, updated_at
		 FROM boq_lines WHERE item_id = $1 ORDER BY id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("orders: list lines: %w", err)
	}
	defer rows.Close()
	var lines []BOQLine
	for rows.Next() {
		var l BOQLine
		if err := rows.Scan(&l.ID, &l.ItemID, &l.Material, &l.Unit, &l.Quantity, &l.CostPerUnit,
			&l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// CreateLine inserts a BOQ line.
func (r *PGRepository) CreateLine(ctx context.Context, line BOQLine) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO boq_lines (item_id, material, unit, quantity, cost_per_unit, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING id`,
		line.ItemID, line.Material, line.Unit, line.Quantity, line.CostPerUnit).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("orders: create line: %w", err)
	}
	return id, nil
}

// UpdateLine rewrites a BOQ line.
func (r *PGRepository) UpdateLine(ctx context.Context, line BOQLine) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE boq_lines SET material = $1, unit = $2, quantity = $3, cost_per_unit = $4, updated_at = NOW()
		 WHERE id = $5`,
		line.Material, line.Unit, line.Quantity, line.CostPerUnit, line.ID)
	if err != nil {
		return fmt.Errorf("orders: update line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteLine removes a BOQ line.
func (r *PGRepository) DeleteLine(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM boq_lines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("orders: delete line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
